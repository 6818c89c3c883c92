package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/callops/batch-dialer/pkg/core"
)

// ParseCursor interprets a cursor cell. A blank cell reads as 0.
func ParseCursor(cell string) (int, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(cell)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidCursor, cell)
	}
	return n, nil
}
