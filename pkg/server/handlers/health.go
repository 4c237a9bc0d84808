package handlers

import (
	"net/http"

	"github.com/multiverse-hub/inference-gateway/pkg/apierrors"
)

type healthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Version  string `json:"version"`
	Database string `json:"database"`
}

// healthHandler serves GET /health, reporting 200 if the registry store is
// reachable and 503 otherwise.
type healthHandler struct {
	deps Dependencies
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apierrors.Write(w, apierrors.New(apierrors.KindBadRequest, "method not allowed"))
		return
	}

	readiness := h.deps.Checker.CheckReadiness(r.Context())

	database := "ok"
	status := "ok"
	code := http.StatusOK
	if check, ok := readiness.Checks["database"]; ok && check.Status != "ok" {
		database = "unreachable"
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	apierrors.WriteJSON(w, code, healthResponse{
		Status:   status,
		Service:  h.deps.ServiceName,
		Version:  h.deps.Version,
		Database: database,
	})
}
