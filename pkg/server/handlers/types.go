// Package handlers implements the gateway's HTTP surface: the client-facing
// chat/completions/models endpoints (C7) and the admin registration CRUD
// (C8), wired against the registry, selector, and proxy engine.
package handlers

import (
	"net/http"
	"time"

	"github.com/multiverse-hub/inference-gateway/pkg/health"
	"github.com/multiverse-hub/inference-gateway/pkg/proxy"
	"github.com/multiverse-hub/inference-gateway/pkg/registry"
	"github.com/multiverse-hub/inference-gateway/pkg/routing"
	"github.com/multiverse-hub/inference-gateway/pkg/security/auth"
	"github.com/multiverse-hub/inference-gateway/pkg/security/validator"
	"github.com/multiverse-hub/inference-gateway/pkg/telemetry"
	telemetryhealth "github.com/multiverse-hub/inference-gateway/pkg/telemetry/health"
)

// Dependencies collects everything the handlers need to serve a request.
type Dependencies struct {
	Store     registry.Store
	Selector  *routing.Selector
	Engine    *proxy.Engine
	Validator *validator.Validator
	Metrics   *telemetry.Metrics
	Checker   *telemetryhealth.Checker
	Prober    *health.Prober

	// ProbeTimeout bounds the one-shot registration probe (C3) run by
	// POST /admin/register.
	ProbeTimeout time.Duration

	// MaxAttempts is the number of additional attempts after the first
	// (R in the failover algorithm).
	MaxAttempts int

	// MaxConsecutiveFailures and AutoDeregister mirror the health
	// monitor's thresholds, so a pre-response failure demotion in the
	// request path can auto-deregister using the same rule.
	MaxConsecutiveFailures int
	AutoDeregister         bool

	ServiceName string
	Version     string
}

// Register mounts every route onto mux, gating the admin surface behind
// adminAuth.
func Register(mux *http.ServeMux, deps Dependencies, adminAuth *auth.Middleware) {
	c := &chatHandler{deps: deps}
	mux.Handle("/v1/chat/completions", c)
	mux.Handle("/v1/completions", c)
	mux.Handle("/v1/models", &modelsHandler{deps: deps})
	mux.Handle("/health", &healthHandler{deps: deps})

	admin := &adminHandler{deps: deps}
	mux.Handle("/admin/register", adminAuth.Handle(admin))
	mux.Handle("/admin/register/", adminAuth.Handle(admin))
	mux.Handle("/admin/servers", adminAuth.Handle(admin))
	mux.Handle("/admin/stats", adminAuth.Handle(admin))
}
