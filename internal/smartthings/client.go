// Package smartthings talks to the remote automation provider: resolving
// human-readable location, room and device names to provider ids,
// translating plan triggers into provider rules, and sending switch
// commands.
package smartthings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/pronovic/vplan/internal/model"
)

// Page sizes requested from the provider's list endpoints.
const (
	locationLimit = "100"
	roomLimit     = "250"
	deviceLimit   = "1000"
	ruleLimit     = "100"
)

// ClientError indicates a non-2xx response or transport failure from the
// provider.
type ClientError struct {
	StatusCode int // 0 for transport errors
	Message    string
}

func (e *ClientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("smartthings: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("smartthings: %s", e.Message)
}

// Config controls client behavior. Zero values fall back to defaults.
type Config struct {
	BaseAPIURL string
	Timeout    time.Duration

	MaxAttempts     int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
	RetryMultiplier float64

	RateLimitRPS float64
}

func (c *Config) applyDefaults() {
	if c.BaseAPIURL == "" {
		c.BaseAPIURL = "https://api.smartthings.com"
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.MinRetryBackoff == 0 {
		c.MinRetryBackoff = 1 * time.Second
	}
	if c.MaxRetryBackoff == 0 {
		c.MaxRetryBackoff = 30 * time.Second
	}
	if c.RetryMultiplier == 0 {
		c.RetryMultiplier = 2.0
	}
	if c.RateLimitRPS == 0 {
		c.RateLimitRPS = 5.0
	}
}

// Client is an authenticated provider API client. All calls share one
// rate limiter: the provider enforces request-rate limits and every
// reconciliation and toggle call in this process funnels through here.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter

	maxAttempts int
	minBackoff  time.Duration
	maxBackoff  time.Duration
	multiplier  float64
}

// NewClient creates a provider client for a PAT token.
func NewClient(token string, cfg Config) *Client {
	cfg.applyDefaults()
	return &Client{
		baseURL:     cfg.BaseAPIURL,
		token:       token,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), int(cfg.RateLimitRPS)+1),
		maxAttempts: cfg.MaxAttempts,
		minBackoff:  cfg.MinRetryBackoff,
		maxBackoff:  cfg.MaxRetryBackoff,
		multiplier:  cfg.RetryMultiplier,
	}
}

// Locations lists all locations visible to the token.
func (c *Client) Locations(ctx context.Context) ([]Location, error) {
	var page locationsPage
	query := url.Values{"limit": {locationLimit}}
	if err := c.get(ctx, "/locations", query, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Rooms lists all rooms in a location.
func (c *Client) Rooms(ctx context.Context, locationID string) ([]Room, error) {
	var page roomsPage
	query := url.Values{"limit": {roomLimit}}
	if err := c.get(ctx, "/locations/"+locationID+"/rooms", query, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Devices lists all switch-capable devices in a location.
func (c *Client) Devices(ctx context.Context, locationID string) ([]DeviceItem, error) {
	var page devicesPage
	query := url.Values{
		"locationId": {locationID},
		"capability": {"switch"},
		"limit":      {deviceLimit},
	}
	if err := c.get(ctx, "/devices", query, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Rules lists all automation rules in a location.
func (c *Client) Rules(ctx context.Context, locationID string) ([]Rule, error) {
	var page rulesPage
	query := url.Values{"locationId": {locationID}, "limit": {ruleLimit}}
	if err := c.get(ctx, "/rules", query, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// CreateRule creates a rule in a location and returns it with the
// provider-assigned id.
func (c *Client) CreateRule(ctx context.Context, locationID string, rule Rule) (Rule, error) {
	var created Rule
	query := url.Values{"locationId": {locationID}}
	if err := c.do(ctx, http.MethodPost, "/rules", query, rule, &created); err != nil {
		return Rule{}, err
	}
	return created, nil
}

// DeleteRule deletes a rule from a location.
func (c *Client) DeleteRule(ctx context.Context, locationID, ruleID string) error {
	query := url.Values{"locationId": {locationID}}
	return c.do(ctx, http.MethodDelete, "/rules/"+ruleID, query, nil, nil)
}

// ExecuteSwitch sends an on/off command to a device component.
func (c *Client) ExecuteSwitch(ctx context.Context, deviceID, component string, state model.SwitchState) error {
	body := commandsRequest{Commands: []DeviceCommand{{
		Component:  component,
		Capability: "switch",
		Command:    string(state),
	}}}
	return c.do(ctx, http.MethodPost, "/devices/"+deviceID+"/commands", nil, body, nil)
}

// SwitchStatus reads the current switch state of a device component.
func (c *Client) SwitchStatus(ctx context.Context, deviceID, component string) (model.SwitchState, error) {
	var status switchStatus
	path := "/devices/" + deviceID + "/components/" + component + "/capabilities/switch/status"
	if err := c.get(ctx, path, nil, &status); err != nil {
		return "", err
	}
	if status.Switch.Value == string(model.SwitchOn) {
		return model.SwitchOn, nil
	}
	return model.SwitchOff, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// do runs one API call with rate limiting and bounded retries. Transport
// errors and 429/5xx responses are retried with exponential backoff
// between the configured minimum and maximum delays.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	backoff := c.minBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			log.Debug().
				Str("method", method).
				Str("path", path).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying provider call")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return &ClientError{Message: ctx.Err().Error()}
			}
			backoff = time.Duration(float64(backoff) * c.multiplier)
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return &ClientError{Message: err.Error()}
		}

		retryable, err := c.once(ctx, method, path, query, encoded, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return lastErr
}

func (c *Client) once(ctx context.Context, method, path string, query url.Values, body []byte, out any) (retryable bool, err error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return false, &ClientError{Message: err.Error()}
	}
	req.Header.Set("Accept", "application/vnd.smartthings+json;v=1")
	req.Header.Set("Accept-Language", "en_US")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, &ClientError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		clientErr := &ClientError{StatusCode: resp.StatusCode, Message: string(message)}
		return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, clientErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, &ClientError{Message: fmt.Sprintf("decode response: %s", err)}
		}
	}
	return false, nil
}
