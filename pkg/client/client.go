// Package client probes the launched model servers over HTTP. The supervisor
// itself only checks the process table; this is the complementary readiness
// check against each server's root endpoint.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ServiceInfo is the JSON body both model servers return from GET /.
type ServiceInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Docs    string `json:"docs"`
}

// Health is the outcome of probing one server.
type Health struct {
	URL       string        `json:"url"`
	Reachable bool          `json:"reachable"`
	Latency   time.Duration `json:"latency"`
	Info      *ServiceInfo  `json:"info,omitempty"`
	Err       string        `json:"error,omitempty"`
}

// Client probes model servers with a bounded per-request timeout.
type Client struct {
	hc *http.Client
}

// Config holds client configuration.
type Config struct {
	Timeout time.Duration // per-probe bound, default 5s
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{hc: &http.Client{Timeout: timeout}}
}

// Probe issues GET {baseURL}/ and decodes the service banner. An unreachable
// or non-200 server is reported in the Health value, not as a Go error;
// only a malformed baseURL fails outright.
func (c *Client) Probe(ctx context.Context, baseURL string) (Health, error) {
	h := Health{URL: baseURL}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/", nil)
	if err != nil {
		return h, fmt.Errorf("build probe request for %s: %w", baseURL, err)
	}
	start := time.Now()
	resp, err := c.hc.Do(req)
	h.Latency = time.Since(start)
	if err != nil {
		h.Err = err.Error()
		return h, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		h.Err = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return h, nil
	}
	h.Reachable = true
	var info ServiceInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err == nil {
		h.Info = &info
	}
	return h, nil
}

// BaseURL builds the probe URL for a host:port pair, mapping the wildcard
// bind address to loopback.
func BaseURL(host string, port int) string {
	if host == "0.0.0.0" || host == "::" || host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}
