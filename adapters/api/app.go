// Package api serves the artifact ledger over HTTP, read-only. Writes
// happen exclusively through the triage and gate services; the API never
// mutates a run.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"seqtriage/domain/core"
	"seqtriage/ports"
)

// DefaultRunLimit bounds the run list when the caller gives no limit.
const DefaultRunLimit = 50

// App is the read-only artifact API.
type App struct {
	router *chi.Mux
	reader ports.LedgerReaderPort
}

// NewApp creates the API over a ledger reader.
func NewApp(reader ports.LedgerReaderPort) *App {
	app := &App{
		router: chi.NewRouter(),
		reader: reader,
	}
	app.setupMiddleware()
	app.setupRoutes()
	return app
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)

	a.router.Get("/api/runs", a.handleListRuns)
	a.router.Get("/api/runs/{runID}/manifest", a.handleRunManifest)
	a.router.Get("/api/runs/{runID}/ranked", a.handleRunArtifact(core.ArtifactRankedTable))
	a.router.Get("/api/runs/{runID}/clusters", a.handleRunArtifact(core.ArtifactClusterMap))
	a.router.Get("/api/runs/{runID}/top", a.handleRunArtifact(core.ArtifactTopExport))
	a.router.Get("/api/runs/{runID}/report", a.handleRunArtifact(core.ArtifactValidationReport))

	a.router.Get("/api/artifacts/{artifactID}", a.handleGetArtifact)
}

// ServeHTTP makes the app mountable and testable as a plain handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Start blocks serving the API on the given address.
func (a *App) Start(addr string) error {
	log.Printf("Starting seqtriage API server on %s", addr)
	return http.ListenAndServe(addr, a.router)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

func (a *App) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", DefaultRunLimit)
	offset := queryInt(r, "offset", 0)

	runs, err := a.reader.ListRuns(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func (a *App) handleRunManifest(w http.ResponseWriter, r *http.Request) {
	runID := core.RunID(chi.URLParam(r, "runID"))

	manifest, err := a.reader.GetTriageManifest(r.Context(), runID)
	if err != nil {
		if core.IsNotFoundError(err) {
			respondError(w, http.StatusNotFound, "run not found: "+runID.String())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load manifest")
		return
	}
	respondJSON(w, http.StatusOK, manifest)
}

// handleRunArtifact serves the single artifact of the given kind stored
// for a run.
func (a *App) handleRunArtifact(kind core.ArtifactKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := core.RunID(chi.URLParam(r, "runID"))

		artifacts, err := a.reader.GetArtifactsByRun(r.Context(), runID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to load run artifacts")
			return
		}
		for _, artifact := range artifacts {
			if artifact.Kind == kind {
				respondJSON(w, http.StatusOK, artifact)
				return
			}
		}
		respondError(w, http.StatusNotFound, "run "+runID.String()+" has no "+string(kind)+" artifact")
	}
}

func (a *App) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	artifactID := core.ArtifactID(chi.URLParam(r, "artifactID"))

	artifact, err := a.reader.GetArtifact(r.Context(), artifactID)
	if err != nil {
		if core.IsNotFoundError(err) {
			respondError(w, http.StatusNotFound, "artifact not found: "+artifactID.String())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load artifact")
		return
	}
	respondJSON(w, http.StatusOK, artifact)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] response encoding error: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]interface{}{"error": msg})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
