// Package security provides validation, sanitization, and limits for the dialer packages.
//
// This package includes:
//   - Phone number validation and masking for logs and run history
//   - Error message sanitization to prevent sensitive data leakage
//   - Constant-time bearer token comparison for the trigger endpoint
//   - Clamping functions to enforce safe limits on list queries
//
// Most users should import the root package github.com/callops/batch-dialer
// which re-exports these functions.
package security
