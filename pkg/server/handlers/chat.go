package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/multiverse-hub/inference-gateway/pkg/apierrors"
	"github.com/multiverse-hub/inference-gateway/pkg/proxy"
	"github.com/multiverse-hub/inference-gateway/pkg/proxy/middleware"
	"github.com/multiverse-hub/inference-gateway/pkg/registry"
)

// ServerIDHeader names the response header identifying which backend served
// a proxied request.
const ServerIDHeader = "X-Gateway-Server-ID"

// chatHandler serves both POST /v1/chat/completions and POST
// /v1/completions. The two differ only in the request/response schema the
// gateway forwards verbatim; the handler's control flow (C7) is identical.
type chatHandler struct {
	deps Dependencies
}

type inferenceRequestEnvelope struct {
	Model string `json:"model"`
}

func (h *chatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		apierrors.Write(w, apierrors.New(apierrors.KindBadRequest, "method not allowed"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		apierrors.Write(w, apierrors.New(apierrors.KindBadRequest, "failed to read request body"))
		return
	}

	var envelope inferenceRequestEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		apierrors.Write(w, apierrors.New(apierrors.KindBadRequest, "request body is not valid JSON"))
		return
	}
	if envelope.Model == "" {
		apierrors.Write(w, apierrors.New(apierrors.KindBadRequest, "missing required field: model"))
		return
	}

	requestID := middleware.GetRequestID(r.Context())
	h.run(r.Context(), w, envelope.Model, r.URL.Path, body, requestID)
}

func (h *chatHandler) run(ctx context.Context, w http.ResponseWriter, model, path string, body []byte, requestID string) {
	tried := make(map[string]bool)

	for attempt := 0; attempt <= h.deps.MaxAttempts; attempt++ {
		server, err := h.deps.Selector.SelectExcluding(ctx, model, tried)
		if err != nil {
			if attempt == 0 {
				h.deps.Metrics.ObserveRequest(model, "no_server")
				apierrors.Write(w, asAPIError(err))
				return
			}
			h.deps.Metrics.ObserveRequest(model, "failover_exhausted")
			apierrors.Write(w, apierrors.New(apierrors.KindAllAttemptsFailed, "all failover attempts exhausted"))
			return
		}

		outcome := h.deps.Engine.Forward(ctx, server, path, body, requestID)

		switch outcome.Kind {
		case proxy.Buffered:
			h.writeBuffered(ctx, w, server, model, outcome)
			return

		case proxy.Streaming:
			h.writeStreaming(ctx, w, server, model, outcome)
			return

		case proxy.PostResponseFailure:
			h.demote(ctx, server, "post-response failure before any reply was produced")
			h.deps.Metrics.ObserveRequest(model, "post_response_failure")
			apierrors.Write(w, apierrors.New(apierrors.KindInternal, "upstream response was interrupted"))
			return

		case proxy.PreResponseFailure:
			h.demote(ctx, server, outcome.Reason)
			tried[server.RegistrationID] = true
			slog.Warn("backend attempt failed, retrying",
				"request_id", requestID,
				"model", model,
				"registration_id", server.RegistrationID,
				"reason", outcome.Reason,
				"attempt", attempt,
			)
			continue
		}
	}

	h.deps.Metrics.ObserveRequest(model, "failover_exhausted")
	apierrors.Write(w, apierrors.New(apierrors.KindAllAttemptsFailed, "all failover attempts exhausted"))
}

func (h *chatHandler) writeBuffered(ctx context.Context, w http.ResponseWriter, server *registry.ServerRecord, model string, outcome *proxy.Outcome) {
	copyHeaders(w.Header(), outcome.Header)
	w.Header().Set(ServerIDHeader, server.RegistrationID)
	w.WriteHeader(outcome.Status)
	w.Write(outcome.Body)

	if outcome.Status >= 200 && outcome.Status < 300 {
		h.markSuccess(ctx, server)
		h.deps.Metrics.ObserveRequest(model, "success")
	} else {
		h.deps.Metrics.ObserveRequest(model, "upstream_error")
	}
}

func (h *chatHandler) writeStreaming(ctx context.Context, w http.ResponseWriter, server *registry.ServerRecord, model string, outcome *proxy.Outcome) {
	copyHeaders(w.Header(), outcome.Header)
	w.Header().Set(ServerIDHeader, server.RegistrationID)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(outcome.Status)

	flusher, _ := w.(http.Flusher)

	var bytesSent int64
	failed := false
	for chunk := range outcome.Chunks {
		if chunk.Err != nil {
			failed = true
			break
		}
		n, err := w.Write(chunk.Data)
		bytesSent += int64(n)
		if err != nil {
			failed = true
			break
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	if failed {
		h.demote(ctx, server, "stream interrupted after response started")
		h.deps.Metrics.ObserveRequest(model, "stream_interrupted")
		slog.Error("streaming response terminated early",
			"registration_id", server.RegistrationID,
			"model", model,
			"bytes_sent", bytesSent,
		)
		return
	}

	h.markSuccess(ctx, server)
	h.deps.Metrics.ObserveRequest(model, "success")
}

// markSuccess resets a server's failure count and refreshes its health
// bookkeeping after a successful forward, matching the monitor's own
// success transition.
func (h *chatHandler) markSuccess(ctx context.Context, server *registry.ServerRecord) {
	healthy := registry.StatusHealthy
	zero := 0
	now := time.Now().UTC()
	if _, err := h.deps.Store.Patch(ctx, server.RegistrationID, registry.Patch{
		HealthStatus:        &healthy,
		ConsecutiveFailures: &zero,
		LastCheckedAt:       &now,
	}); err != nil {
		slog.Error("failed to record forward success", "registration_id", server.RegistrationID, "error", err)
	}
}

// demote transitions a server to Unhealthy after a pre- or post-response
// failure, applying the same auto-deregistration threshold as the health
// monitor.
func (h *chatHandler) demote(ctx context.Context, server *registry.ServerRecord, reason string) {
	unhealthy := registry.StatusUnhealthy
	failures := server.ConsecutiveFailures + 1
	now := time.Now().UTC()

	updated, err := h.deps.Store.Patch(ctx, server.RegistrationID, registry.Patch{
		HealthStatus:        &unhealthy,
		ConsecutiveFailures: &failures,
		LastCheckedAt:       &now,
	})
	if err != nil {
		slog.Error("failed to demote backend", "registration_id", server.RegistrationID, "error", err)
		return
	}

	if h.deps.AutoDeregister && updated.ConsecutiveFailures >= h.deps.MaxConsecutiveFailures {
		if err := h.deps.Store.SoftDelete(ctx, server.RegistrationID); err != nil {
			slog.Error("failed to auto-deregister backend", "registration_id", server.RegistrationID, "error", err)
			return
		}
		slog.Error("backend auto-deregistered after consecutive failures",
			"registration_id", server.RegistrationID,
			"model_name", server.ModelName,
			"consecutive_failures", updated.ConsecutiveFailures,
			"reason", reason,
		)
	}
}

// copyHeaders copies backend response headers verbatim, except the few that
// the Go HTTP server must control itself.
func copyHeaders(dst, src http.Header) {
	for k, values := range src {
		switch k {
		case "Content-Length", "Connection", "Transfer-Encoding":
			continue
		}
		for _, v := range values {
			dst.Add(k, v)
		}
	}
}

// asAPIError extracts the *apierrors.Error a selector call failed with, or
// falls back to a generic internal error if err is of an unexpected type.
func asAPIError(err error) *apierrors.Error {
	if apiErr, ok := apierrors.As(err); ok {
		return apiErr
	}
	return apierrors.Wrap(apierrors.KindInternal, "request failed", err)
}
