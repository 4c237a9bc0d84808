package handlers

import (
	"net/http"

	"github.com/multiverse-hub/inference-gateway/pkg/apierrors"
	"github.com/multiverse-hub/inference-gateway/pkg/registry"
)

type modelObject struct {
	ID               string `json:"id"`
	Object           string `json:"object"`
	Created          int64  `json:"created"`
	OwnedBy          string `json:"owned_by"`
	AvailableServers int    `json:"available_servers"`
}

type modelListResponse struct {
	Object string        `json:"object"`
	Data   []modelObject `json:"data"`
}

// modelsHandler serves GET /v1/models, grouping active registrations by
// model_name. Models with zero active records never appear: they simply
// have no records to group.
type modelsHandler struct {
	deps Dependencies
}

func (h *modelsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apierrors.Write(w, apierrors.New(apierrors.KindBadRequest, "method not allowed"))
		return
	}

	records, err := h.deps.Store.List(r.Context(), registry.Filter{IncludeInactive: false})
	if err != nil {
		apierrors.Write(w, apierrors.Wrap(apierrors.KindInternal, "failed to list registry", err))
		return
	}

	type agg struct {
		earliest int64
		healthy  int
	}
	byModel := make(map[string]*agg)
	order := make([]string, 0)

	for _, rec := range records {
		a, ok := byModel[rec.ModelName]
		if !ok {
			a = &agg{earliest: rec.RegisteredAt.Unix()}
			byModel[rec.ModelName] = a
			order = append(order, rec.ModelName)
		} else if rec.RegisteredAt.Unix() < a.earliest {
			a.earliest = rec.RegisteredAt.Unix()
		}
		if rec.HealthStatus == registry.StatusHealthy {
			a.healthy++
		}
	}

	data := make([]modelObject, 0, len(order))
	for _, name := range order {
		a := byModel[name]
		data = append(data, modelObject{
			ID:               name,
			Object:           "model",
			Created:          a.earliest,
			OwnedBy:          "multiverse",
			AvailableServers: a.healthy,
		})
	}

	apierrors.WriteJSON(w, http.StatusOK, modelListResponse{Object: "list", Data: data})
}
