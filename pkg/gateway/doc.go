// Package gateway is the REST client for the voice-agent telephony
// service. It places outbound calls and resolves their outcomes.
//
// A Client is safe for concurrent use.
package gateway
