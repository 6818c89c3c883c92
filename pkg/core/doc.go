// Package core provides the fundamental types and interfaces for the dialer packages.
//
// This package contains:
//   - Contact rows and header mapping for the contact table
//   - CallOutcome, PlacedCall and the Call Attempt lifecycle
//   - Run, Attempt and RunLease data models with GORM annotations
//   - Ledger, Gateway and RunStore interfaces defining the collaborator contracts
//   - Error types for batch processing
//
// Most users should import the root package github.com/callops/batch-dialer
// instead of this package directly.
package core
