// Package health implements the gateway's backend liveness checks: a
// one-shot probe (C3) and the continuous monitor that schedules it (C4).
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Result is the outcome of a single probe.
type Result struct {
	OK        bool
	LatencyMs int
	Error     string
}

// Prober performs a bounded health check against a backend's /v1/models
// endpoint. Success requires a 2xx status and a JSON object body.
type Prober struct {
	client *http.Client
}

// NewProber returns a Prober using a dedicated http.Client so probe
// deadlines never interact with the proxy engine's own client pool.
func NewProber() *Prober {
	return &Prober{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 4,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

// Probe performs a GET on endpointURL+"/v1/models" with a hard deadline.
// Any transport error, non-2xx status, non-JSON-object body, or deadline
// exceeded is reported as a failure with a short diagnostic string.
func (p *Prober) Probe(ctx context.Context, endpointURL string, timeout time.Duration) Result {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := strings.TrimRight(endpointURL, "/") + "/v1/models"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Result{OK: false, Error: "malformed probe request"}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{OK: false, LatencyMs: int(time.Since(start).Milliseconds()), Error: "transport error: " + err.Error()}
	}
	defer resp.Body.Close()

	latency := int(time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{OK: false, LatencyMs: latency, Error: "non-2xx status"}
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{OK: false, LatencyMs: latency, Error: "response body is not a JSON object"}
	}

	return Result{OK: true, LatencyMs: latency}
}
