package batch

// DefaultBatchSize is the number of contact rows attempted per run.
const DefaultBatchSize = 19

// Window computes the half-open batch window [start, end) for a cursor over
// total data rows. A cursor at or past the end of the table reports reset
// and an empty window. Negative cursors are treated as 0.
func Window(cursor, total, size int) (start, end int, reset bool) {
	if cursor < 0 {
		cursor = 0
	}
	if size < 1 {
		size = DefaultBatchSize
	}
	if cursor >= total {
		return 0, 0, true
	}
	end = cursor + size
	if end > total {
		end = total
	}
	return cursor, end, false
}
