package http

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/pushdeploy/pkg/domain/model"
	"github.com/m-mizutani/pushdeploy/pkg/domain/types"
)

// ToolProbe reports whether an external command can be found
type ToolProbe func(tool string) bool

// healthHandler answers 200 when every required tool is installed and 503 otherwise
func healthHandler(probe ToolProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := model.NewHealthStatus("pushdeploy", types.Version, probe)

		code := http.StatusOK
		if status.Status != model.HealthOK {
			code = http.StatusServiceUnavailable
			ctxlog.From(r.Context()).Warn("Required tools are missing", "tools", status.Tools)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			ctxlog.From(r.Context()).Error("Failed to encode health response", "error", err)
		}
	}
}
