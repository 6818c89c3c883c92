// Package ledger implements the external tabular store a batch run reads
// contacts from, keeps its cursor in and appends call results to.
//
// Three backends satisfy core.Ledger and core.LedgerProvider:
//
//   - Sheets: three Google spreadsheets (contacts, cursor cell, results)
//   - SQL: GORM tables on SQLite or PostgreSQL
//   - Memory: an in-process fake with error injection, for tests
//
// None of the backends cache. Every call reflects the stored state at the
// time of the call, and there is no atomicity across the three resources.
package ledger
