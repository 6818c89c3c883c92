package storage

import (
	"context"
	"time"

	"github.com/callops/batch-dialer/pkg/core"
)

// AttemptStats counts Call Attempts by state, optionally only those created at or after since.
func (s *GormStorage) AttemptStats(ctx context.Context, since time.Time) (map[core.AttemptState]int64, error) {
	type row struct {
		State string
		Count int64
	}
	var rows []row

	q := s.db.WithContext(ctx).
		Model(&core.Attempt{}).
		Select("state, count(*) as count")
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if err := q.Group("state").Find(&rows).Error; err != nil {
		return nil, err
	}

	stats := make(map[core.AttemptState]int64, len(rows))
	for _, r := range rows {
		stats[core.AttemptState(r.State)] += r.Count
	}
	return stats, nil
}
