// Package schedule provides scheduling implementations for recurring batch runs.
//
// This package includes:
//   - Schedule interface for defining run schedules
//   - Every() for fixed-interval schedules
//   - Daily() and DailyIn() for daily schedules at a wall-clock time
//   - ParseDaily() and ParseCron() for configuration input
//
// Most users should import the root package github.com/callops/batch-dialer
// which re-exports these functions.
package schedule
