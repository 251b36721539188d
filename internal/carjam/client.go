// Package carjam looks up New Zealand vehicle registrations through the
// CarJam API without exposing the API key to browsers.
package carjam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ldotspots/zuco-motors/internal/config"
)

const DefaultBaseURL = "https://www.carjam.co.nz/api/car/"

var (
	ErrNotConfigured = errors.New("carjam api key not configured")
	ErrUpstream      = errors.New("carjam request failed")
	ErrMissingPlate  = errors.New("missing plate parameter")
)

// NormalizePlate uppercases a plate and strips all whitespace from it.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.CarJamConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
	}
}

// Result is the upstream JSON body and whether CarJam answered with a 2xx.
type Result struct {
	Body json.RawMessage
	OK   bool
}

// Lookup fetches the basic record for a plate. Transport and decode failures
// wrap ErrUpstream; an upstream error status is reported through Result.OK.
func (c *Client) Lookup(ctx context.Context, plate string) (Result, error) {
	plate = NormalizePlate(plate)
	if plate == "" {
		return Result{}, ErrMissingPlate
	}
	if c.apiKey == "" {
		return Result{}, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.lookupURL(plate), nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, scrub(err, c.apiKey))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	var body json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return Result{}, fmt.Errorf("%w: invalid JSON from upstream: %v", ErrUpstream, err)
	}

	return Result{Body: body, OK: resp.StatusCode >= 200 && resp.StatusCode < 300}, nil
}

func (c *Client) lookupURL(plate string) string {
	return c.baseURL + "?key=" + url.QueryEscape(c.apiKey) +
		"&plate=" + url.QueryEscape(plate) +
		"&basic=1&f=json&translate=1"
}

// scrub removes the API key from transport errors, which quote the URL.
func scrub(err error, key string) string {
	msg := err.Error()
	if key == "" {
		return msg
	}
	return strings.ReplaceAll(msg, url.QueryEscape(key), "***")
}

// Details returns the cause text of an upstream failure, without the
// sentinel prefix.
func Details(err error) string {
	return strings.TrimPrefix(err.Error(), ErrUpstream.Error()+": ")
}
