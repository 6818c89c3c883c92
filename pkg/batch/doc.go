// Package batch runs the cursor-driven call batch: it reads the contact
// table from a ledger, dials the next window of contacts one at a time,
// records each outcome and advances the persisted cursor.
package batch
