package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/multiverse-hub/inference-gateway/pkg/apierrors"
	"github.com/multiverse-hub/inference-gateway/pkg/registry"
)

var modelNameRE = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// adminHandler serves the admin registration CRUD surface (C8). Every route
// it handles is mounted behind auth.Middleware by Register.
type adminHandler struct {
	deps Dependencies
}

func (h *adminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/admin/register" && r.Method == http.MethodPost:
		h.register(w, r)
	case strings.HasPrefix(r.URL.Path, "/admin/register/") && r.Method == http.MethodDelete:
		h.deregister(w, r, strings.TrimPrefix(r.URL.Path, "/admin/register/"))
	case strings.HasPrefix(r.URL.Path, "/admin/register/") && r.Method == http.MethodPut:
		h.update(w, r, strings.TrimPrefix(r.URL.Path, "/admin/register/"))
	case r.URL.Path == "/admin/servers" && r.Method == http.MethodGet:
		h.list(w, r)
	case r.URL.Path == "/admin/stats" && r.Method == http.MethodGet:
		h.stats(w, r)
	default:
		apierrors.Write(w, apierrors.New(apierrors.KindBadRequest, "unsupported admin route"))
	}
}

type registerRequest struct {
	ModelName     string                `json:"model_name"`
	EndpointURL   string                `json:"endpoint_url"`
	BackendAPIKey string                `json:"backend_api_key,omitempty"`
	Capabilities  registry.Capabilities `json:"capabilities"`
	Owner         registry.Owner        `json:"owner"`
}

type registerResponse struct {
	RegistrationID string                `json:"registration_id"`
	Status         string                `json:"status"`
	HealthStatus   registry.HealthStatus `json:"health_status"`
}

func (h *adminHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.Write(w, apierrors.New(apierrors.KindBadRequest, "request body is not valid JSON"))
		return
	}

	if !modelNameRE.MatchString(req.ModelName) || len(req.ModelName) > 128 {
		apierrors.Write(w, apierrors.New(apierrors.KindBadRequest, "model_name must match ^[A-Za-z0-9._-]+$ and be 1-128 characters"))
		return
	}

	if apiErr := h.deps.Validator.Validate(r.Context(), req.EndpointURL); apiErr != nil {
		apierrors.Write(w, apiErr)
		return
	}

	id, err := registry.NewRegistrationID()
	if err != nil {
		apierrors.Write(w, apierrors.Wrap(apierrors.KindInternal, "failed to generate registration id", err))
		return
	}

	result := h.deps.Prober.Probe(r.Context(), req.EndpointURL, h.deps.ProbeTimeout)
	healthStatus := registry.StatusUnhealthy
	var lastLatency *int
	var lastChecked *time.Time
	now := time.Now().UTC()
	lastChecked = &now
	if result.OK {
		healthStatus = registry.StatusHealthy
		lastLatency = &result.LatencyMs
	}

	record := &registry.ServerRecord{
		RegistrationID:      id,
		ModelName:           req.ModelName,
		EndpointURL:         req.EndpointURL,
		BackendAPIKey:       req.BackendAPIKey,
		Capabilities:        req.Capabilities,
		Owner:               req.Owner,
		RegisteredAt:        now,
		LastCheckedAt:       lastChecked,
		LastLatencyMs:       lastLatency,
		HealthStatus:        healthStatus,
		ConsecutiveFailures: 0,
		IsActive:            true,
		UpdatedAt:           now,
	}

	if err := h.deps.Store.Insert(r.Context(), record); err != nil {
		apierrors.Write(w, asAPIError(err))
		return
	}

	apierrors.WriteJSON(w, http.StatusCreated, registerResponse{
		RegistrationID: id,
		Status:         "registered",
		HealthStatus:   healthStatus,
	})
}

func (h *adminHandler) deregister(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.deps.Store.Get(r.Context(), id); err != nil {
		apierrors.Write(w, asAPIError(err))
		return
	}
	if err := h.deps.Store.SoftDelete(r.Context(), id); err != nil {
		apierrors.Write(w, asAPIError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateRequest struct {
	EndpointURL  *string                `json:"endpoint_url,omitempty"`
	ModelName    *string                `json:"model_name,omitempty"`
	Capabilities *registry.Capabilities `json:"capabilities,omitempty"`
	Owner        *registry.Owner        `json:"owner,omitempty"`
}

func (h *adminHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.Write(w, apierrors.New(apierrors.KindBadRequest, "request body is not valid JSON"))
		return
	}

	if req.ModelName != nil && (!modelNameRE.MatchString(*req.ModelName) || len(*req.ModelName) > 128) {
		apierrors.Write(w, apierrors.New(apierrors.KindBadRequest, "model_name must match ^[A-Za-z0-9._-]+$ and be 1-128 characters"))
		return
	}

	if req.EndpointURL != nil {
		if apiErr := h.deps.Validator.Validate(r.Context(), *req.EndpointURL); apiErr != nil {
			apierrors.Write(w, apiErr)
			return
		}
	}

	patch := registry.Patch{
		EndpointURL:  req.EndpointURL,
		ModelName:    req.ModelName,
		Capabilities: req.Capabilities,
		Owner:        req.Owner,
	}

	updated, err := h.deps.Store.Patch(r.Context(), id, patch)
	if err != nil {
		apierrors.Write(w, asAPIError(err))
		return
	}

	apierrors.WriteJSON(w, http.StatusOK, updated)
}

func (h *adminHandler) list(w http.ResponseWriter, r *http.Request) {
	filter := registry.Filter{
		ModelName:       r.URL.Query().Get("model"),
		IncludeInactive: true,
	}
	if health := r.URL.Query().Get("health"); health != "" {
		filter.HealthStatus = registry.HealthStatus(health)
	}

	records, err := h.deps.Store.List(r.Context(), filter)
	if err != nil {
		apierrors.Write(w, apierrors.Wrap(apierrors.KindInternal, "failed to list registry", err))
		return
	}

	if activeParam := r.URL.Query().Get("active"); activeParam != "" {
		want, err := strconv.ParseBool(activeParam)
		if err != nil {
			apierrors.Write(w, apierrors.New(apierrors.KindBadRequest, "active must be a boolean"))
			return
		}
		filtered := make([]*registry.ServerRecord, 0, len(records))
		for _, rec := range records {
			if rec.IsActive == want {
				filtered = append(filtered, rec)
			}
		}
		records = filtered
	}

	apierrors.WriteJSON(w, http.StatusOK, records)
}

func (h *adminHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.Store.Stats(r.Context())
	if err != nil {
		apierrors.Write(w, apierrors.Wrap(apierrors.KindInternal, "failed to aggregate registry stats", err))
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, stats)
}
