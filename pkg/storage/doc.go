// Package storage provides run-history and run-lease persistence for the dialer.
//
// This package includes:
//   - GormStorage: a GORM-based core.RunStore supporting SQLite and PostgreSQL
//   - Open: DSN-driven driver selection with connection pool configuration
//
// The RunStore interface is defined in pkg/core and must be implemented
// by any custom storage backend.
package storage
