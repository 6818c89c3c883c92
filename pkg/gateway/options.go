package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/callops/batch-dialer/pkg/retry"
)

// Defaults of the reference deployment.
const (
	DefaultBaseURL           = "https://api.retellai.com"
	DefaultNameVariable      = "nurse_name"
	DefaultClassificationKey = "short main mudda"
	DefaultTimeout           = 30 * time.Second
	DefaultFixedWait         = 10 * time.Minute
)

// Mode selects how AwaitOutcome decides a call has finished.
type Mode string

const (
	// ModeFixed sleeps FixedWait and fetches the outcome once.
	ModeFixed Mode = "fixed"
	// ModePoll polls the call record with backoff until it is terminal.
	ModePoll Mode = "poll"
)

// CompletionPolicy configures AwaitOutcome.
type CompletionPolicy struct {
	Mode Mode

	// FixedWait is the single delay used in ModeFixed.
	FixedWait time.Duration

	// InitialDelay is waited before the first poll in ModePoll.
	InitialDelay time.Duration

	// Backoff spaces polls. MaxAttempts is ignored; MaxWait bounds polling.
	Backoff retry.Config

	// MaxWait bounds the total time spent polling, including InitialDelay.
	// When it expires one last fetch is made and its result returned.
	MaxWait time.Duration
}

// DefaultCompletionPolicy polls from one minute after dialing for up to
// twenty minutes.
func DefaultCompletionPolicy() CompletionPolicy {
	return CompletionPolicy{
		Mode:         ModePoll,
		FixedWait:    DefaultFixedWait,
		InitialDelay: time.Minute,
		Backoff: retry.Config{
			InitialBackoff:    15 * time.Second,
			MaxBackoff:        2 * time.Minute,
			BackoffMultiplier: 1.5,
			JitterFraction:    0.1,
		},
		MaxWait: 20 * time.Minute,
	}
}

// FixedCompletionPolicy waits d and fetches once.
func FixedCompletionPolicy(d time.Duration) CompletionPolicy {
	p := DefaultCompletionPolicy()
	p.Mode = ModeFixed
	p.FixedWait = d
	return p
}

// Option configures a Client.
type Option interface {
	apply(*Client)
}

type optionFunc func(*Client)

func (f optionFunc) apply(c *Client) { f(c) }

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return optionFunc(func(c *Client) {
		c.baseURL = u
	})
}

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *Client) {
		c.apiKey = key
	})
}

// WithFromNumber sets the caller-ID number calls are placed from.
func WithFromNumber(n string) Option {
	return optionFunc(func(c *Client) {
		c.fromNumber = n
	})
}

// WithAgentID sets the agent that handles every call.
func WithAgentID(id string) Option {
	return optionFunc(func(c *Client) {
		c.agentID = id
	})
}

// WithNameVariable sets the dynamic variable carrying the display name.
func WithNameVariable(name string) Option {
	return optionFunc(func(c *Client) {
		c.nameVariable = name
	})
}

// WithClassificationKey sets the custom analysis field read as the classification.
func WithClassificationKey(key string) Option {
	return optionFunc(func(c *Client) {
		c.classificationKey = key
	})
}

// WithHTTPClient replaces the HTTP client. Its Timeout is left as is.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *Client) {
		c.hc = hc
	})
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *Client) {
		c.timeout = d
	})
}

// WithCompletionPolicy sets how AwaitOutcome waits for calls to end.
func WithCompletionPolicy(p CompletionPolicy) Option {
	return optionFunc(func(c *Client) {
		c.policy = p
	})
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *Client) {
		if l != nil {
			c.logger = l
		}
	})
}
