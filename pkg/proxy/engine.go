// Package proxy implements the gateway's proxy engine (C6): it forwards a
// client's already-validated JSON body to a chosen backend, returning
// either a buffered response or a lazily-pulled stream of raw SSE bytes,
// and classifies failures so the request handler can decide whether a
// retry is eligible.
package proxy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/multiverse-hub/inference-gateway/pkg/registry"
)

// OutcomeKind discriminates the four shapes a forwarded request can settle into.
type OutcomeKind int

const (
	Buffered OutcomeKind = iota
	Streaming
	PreResponseFailure
	PostResponseFailure
)

// Chunk is one unit pulled from a Streaming outcome's byte stream. Err is
// set (and Data empty) exactly once, on the final pull, if the stream broke
// before completing normally; a nil Err with io.EOF-like exhaustion is
// signaled by closing Chunks without a trailing error Chunk.
type Chunk struct {
	Data []byte
	Err  error
}

// Outcome is the result of a single forward() call.
type Outcome struct {
	Kind OutcomeKind

	// Buffered and Streaming fields.
	Status int
	Header http.Header
	Body   []byte     // Buffered only.
	Chunks <-chan Chunk // Streaming only.

	// Failure fields.
	Reason    string
	BytesSent int64 // PostResponseFailure only.
}

// Config tunes the engine's deadlines.
type Config struct {
	// TotalTimeout bounds buffered forwards end-to-end.
	TotalTimeout time.Duration
	// IdleChunkTimeout bounds the gap between successive SSE chunks on a
	// streaming forward; it is not a total-duration deadline.
	IdleChunkTimeout time.Duration
}

// Engine forwards chat/completions-shaped requests to backend servers.
type Engine struct {
	client *http.Client
	cfg    Config
}

// NewEngine constructs an Engine. The underlying client has no per-request
// timeout of its own; deadlines are applied per call via context so
// buffered and streaming forwards can use different budgets.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg: cfg,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

// Forward sends body to record's endpoint at path, adding the backend
// bearer credential and request id header. Streaming is selected when body
// contains "stream": true.
func (e *Engine) Forward(ctx context.Context, record *registry.ServerRecord, path string, body []byte, requestID string) *Outcome {
	stream := requestWantsStream(body)

	if stream {
		return e.forwardStreaming(ctx, record, path, body, requestID)
	}
	return e.forwardBuffered(ctx, record, path, body, requestID)
}

func requestWantsStream(body []byte) bool {
	var probe struct {
		Stream bool `json:"stream"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return probe.Stream
}

func (e *Engine) newRequest(ctx context.Context, record *registry.ServerRecord, path string, body []byte, requestID string) (*http.Request, error) {
	target := strings.TrimRight(record.EndpointURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if record.BackendAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+record.BackendAPIKey)
	}
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	return req, nil
}

func (e *Engine) forwardBuffered(ctx context.Context, record *registry.ServerRecord, path string, body []byte, requestID string) *Outcome {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.TotalTimeout)
	defer cancel()

	req, err := e.newRequest(ctx, record, path, body, requestID)
	if err != nil {
		return &Outcome{Kind: PreResponseFailure, Reason: "malformed upstream request"}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return &Outcome{Kind: PreResponseFailure, Reason: classifyTransportError(err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Outcome{Kind: PostResponseFailure, Reason: "body read interrupted", BytesSent: int64(len(respBody))}
	}

	return &Outcome{
		Kind:   Buffered,
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   respBody,
	}
}

func (e *Engine) forwardStreaming(ctx context.Context, record *registry.ServerRecord, path string, body []byte, requestID string) *Outcome {
	// No total deadline: the idle-chunk watchdog below bounds stall time instead.
	req, err := e.newRequest(ctx, record, path, body, requestID)
	if err != nil {
		return &Outcome{Kind: PreResponseFailure, Reason: "malformed upstream request"}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return &Outcome{Kind: PreResponseFailure, Reason: classifyTransportError(err)}
	}

	chunks := make(chan Chunk, 4)
	go e.pumpSSE(ctx, resp, chunks)

	return &Outcome{
		Kind:   Streaming,
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Chunks: chunks,
	}
}

// pumpSSE reads raw bytes from resp.Body, splitting on the "\n\n" SSE event
// delimiter, and forwards each event verbatim. It never reshapes frames; the
// terminating "data: [DONE]\n\n" is passed through exactly as received.
func (e *Engine) pumpSSE(ctx context.Context, resp *http.Response, out chan<- Chunk) {
	defer close(out)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(splitSSEEvents)

	for {
		done := make(chan bool, 1)
		var ok bool
		go func() {
			ok = scanner.Scan()
			done <- true
		}()

		select {
		case <-ctx.Done():
			out <- Chunk{Err: fmt.Errorf("client disconnected")}
			return
		case <-time.After(e.cfg.IdleChunkTimeout):
			out <- Chunk{Err: fmt.Errorf("idle chunk timeout exceeded")}
			return
		case <-done:
		}

		if !ok {
			if err := scanner.Err(); err != nil {
				out <- Chunk{Err: err}
			}
			return
		}

		event := append([]byte(nil), scanner.Bytes()...)
		out <- Chunk{Data: event}
	}
}

// splitSSEEvents is a bufio.SplitFunc that breaks on the "\n\n" delimiter
// separating SSE events, including the trailing delimiter in each token so
// byte-for-byte framing survives the round trip.
func splitSSEEvents(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if idx := bytes.Index(data, []byte("\n\n")); idx >= 0 {
		return idx + 2, data[:idx+2], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	if atEOF {
		return 0, nil, io.EOF
	}
	return 0, nil, nil
}

func classifyTransportError(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case strings.Contains(err.Error(), "context deadline exceeded"):
		return "timeout before first byte"
	case strings.Contains(err.Error(), "connection refused"):
		return "connection refused"
	case strings.Contains(err.Error(), "no such host"):
		return "dns resolution failed"
	default:
		return "transport error: " + err.Error()
	}
}
