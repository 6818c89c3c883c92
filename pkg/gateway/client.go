package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/callops/batch-dialer/pkg/core"
	"github.com/callops/batch-dialer/pkg/security"
)

// maxErrorBody caps how much of a failed response body is read.
const maxErrorBody = 4096

// Client talks to the voice-agent REST API.
type Client struct {
	baseURL           string
	apiKey            string
	fromNumber        string
	agentID           string
	nameVariable      string
	classificationKey string
	timeout           time.Duration
	hc                *http.Client
	policy            CompletionPolicy
	logger            *slog.Logger
}

// New creates a Client. The API key, source number and agent id are required.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:           DefaultBaseURL,
		nameVariable:      DefaultNameVariable,
		classificationKey: DefaultClassificationKey,
		timeout:           DefaultTimeout,
		policy:            DefaultCompletionPolicy(),
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt.apply(c)
	}

	var errs []error
	if c.apiKey == "" {
		errs = append(errs, errors.New("api key is required"))
	}
	if c.fromNumber == "" {
		errs = append(errs, errors.New("from number is required"))
	}
	if c.agentID == "" {
		errs = append(errs, errors.New("agent id is required"))
	}
	if _, err := url.ParseRequestURI(c.baseURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid base url: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	c.baseURL = strings.TrimRight(c.baseURL, "/")
	if c.hc == nil {
		c.hc = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

type createCallRequest struct {
	FromNumber       string            `json:"from_number"`
	ToNumber         string            `json:"to_number"`
	OverrideAgentID  string            `json:"override_agent_id"`
	DynamicVariables map[string]string `json:"retell_llm_dynamic_variables"`
}

// PlaceCall asks the gateway to dial phoneNumber, passing displayName to
// the agent as a templating variable. It is not retried.
func (c *Client) PlaceCall(ctx context.Context, phoneNumber, displayName string) (*core.PlacedCall, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if err := security.ValidatePhoneNumber(phoneNumber); err != nil {
		return nil, fmt.Errorf("%w: %s rejected before dialing", err, security.MaskPhone(phoneNumber))
	}

	req := createCallRequest{
		FromNumber:       c.fromNumber,
		ToNumber:         phoneNumber,
		OverrideAgentID:  c.agentID,
		DynamicVariables: map[string]string{c.nameVariable: displayName},
	}

	var placed core.PlacedCall
	if err := c.doJSON(ctx, "create-phone-call", http.MethodPost, "/v2/create-phone-call", &req, &placed); err != nil {
		return nil, err
	}
	if placed.CallID == "" {
		return nil, &core.GatewayError{Op: "create-phone-call", Message: "response has no call_id"}
	}
	return &placed, nil
}

// GetOutcome fetches the call record once and flattens it.
func (c *Client) GetOutcome(ctx context.Context, callID string) (*core.CallOutcome, error) {
	rec, err := c.getCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	return c.extract(rec)
}

func (c *Client) getCall(ctx context.Context, callID string) (*callRecord, error) {
	var rec callRecord
	path := "/v2/get-call/" + url.PathEscape(callID)
	if err := c.doJSON(ctx, "get-call", http.MethodGet, path, nil, &rec); err != nil {
		return nil, err
	}
	if rec.CallID == "" {
		rec.CallID = callID
	}
	return &rec, nil
}

// doJSON sends in (if non-nil) as JSON and decodes a 2xx response into out.
func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("gateway %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("gateway %s: build request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &core.GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &core.GatewayError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    security.SanitizeErrorMessage(errorMessage(raw)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gateway %s: decode response: %w", op, err)
	}
	return nil
}

// errorMessage pulls a message out of an error body, falling back to the raw text.
func errorMessage(raw []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if s, ok := e.Error.(string); ok && s != "" {
			return s
		}
	}
	return strings.TrimSpace(string(raw))
}

var _ core.Gateway = (*Client)(nil)
