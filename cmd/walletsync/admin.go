package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/c360/walletsync/errors"
	"github.com/c360/walletsync/integration"
	"github.com/c360/walletsync/metric"
	"github.com/c360/walletsync/warmer"
)

// setupHTTPServer wires the metrics endpoint, health check, and the admin
// operations the subsystem exposes to operators. The product API routes live
// in a separate service.
func setupHTTPServer(addr string, registry *metric.MetricsRegistry, cacheWarmer *warmer.Warmer,
	orchestrator *integration.Orchestrator, logger *slog.Logger) *http.Server {

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", registry.Handler())

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		status := cacheWarmer.Health()
		code := http.StatusOK
		if !status.IsHealthy() {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status, logger)
	})

	mux.HandleFunc("GET /admin/warming/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, cacheWarmer.GetStats(), logger)
	})

	mux.HandleFunc("POST /admin/warming/trigger", func(w http.ResponseWriter, r *http.Request) {
		var overrides warmer.SettingsPatch
		if r.Body != nil {
			// An empty body means no overrides.
			_ = json.NewDecoder(r.Body).Decode(&overrides)
		}
		result := cacheWarmer.TriggerWarming(r.Context(), overrides)
		if result.Status == warmer.StatusSkipped && result.Reason == warmer.ReasonAlreadyRunning {
			writeJSON(w, http.StatusConflict, map[string]string{"error": errors.ErrAlreadyRunning.Error()}, logger)
			return
		}
		writeJSON(w, http.StatusOK, result, logger)
	})

	mux.HandleFunc("PATCH /admin/warming/settings", func(w http.ResponseWriter, r *http.Request) {
		var patch warmer.SettingsPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, "invalid settings patch", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, cacheWarmer.UpdateSettings(patch), logger)
	})

	mux.HandleFunc("POST /admin/warming/wallets", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Add    []string `json:"add,omitempty"`
			Remove []string `json:"remove,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid wallet list", http.StatusBadRequest)
			return
		}
		current, rejects := cacheWarmer.AddCustomWallets(body.Add)
		if len(body.Remove) > 0 {
			current = cacheWarmer.RemoveCustomWallets(body.Remove)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"custom_wallets": current,
			"rejected":       rejects,
		}, logger)
	})

	mux.HandleFunc("GET /admin/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int64{"data_version": orchestrator.GetDataVersion()}, logger)
	})

	mux.HandleFunc("POST /admin/version/bump", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]int64{"data_version": orchestrator.UpdateDataVersion()}, logger)
	})

	mux.HandleFunc("POST /admin/caches/clear", func(w http.ResponseWriter, r *http.Request) {
		deleted, err := orchestrator.ClearAllCaches(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted}, logger)
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("response encoding failed", "error", err)
	}
}
