package loadgen

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("response encode failed", slog.Int("status", status), slog.Any("err", err))
	}
}

// Register mounts the control endpoints.
func (g *Generator) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", g.home)
	mux.HandleFunc("GET /stats", g.getStats)
	mux.HandleFunc("POST /enable", g.enable)
	mux.HandleFunc("POST /disable", g.disable)
	mux.HandleFunc("POST /intensity", g.setIntensity)
	mux.HandleFunc("POST /reset", g.reset)
}

func (g *Generator) home(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, g.log, http.StatusOK, map[string]any{
		"name":      "cartsaga load generator",
		"status":    "running",
		"enabled":   g.Enabled(),
		"intensity": g.Intensity(),
		"endpoints": "/stats, /enable, /disable, /intensity?level=low|medium|high, /reset",
	})
}

func (g *Generator) getStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, g.log, http.StatusOK, g.stats.Snapshot())
}

func (g *Generator) enable(w http.ResponseWriter, _ *http.Request) {
	g.SetEnabled(true)
	writeJSON(w, g.log, http.StatusOK, map[string]string{"status": "enabled", "message": "load generation enabled"})
}

func (g *Generator) disable(w http.ResponseWriter, _ *http.Request) {
	g.SetEnabled(false)
	writeJSON(w, g.log, http.StatusOK, map[string]string{"status": "disabled", "message": "load generation disabled"})
}

func (g *Generator) setIntensity(w http.ResponseWriter, r *http.Request) {
	level, err := ParseIntensity(r.URL.Query().Get("level"))
	if err != nil {
		writeJSON(w, g.log, http.StatusBadRequest, map[string]string{"error": "InvalidInput", "message": err.Error()})
		return
	}

	g.SetIntensity(level)
	writeJSON(w, g.log, http.StatusOK, map[string]string{
		"intensity": string(level),
		"message":   "load intensity set to " + string(level),
	})
}

func (g *Generator) reset(w http.ResponseWriter, _ *http.Request) {
	g.stats.Reset()
	writeJSON(w, g.log, http.StatusOK, map[string]string{"status": "reset", "message": "statistics reset"})
}
