package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ashgrove/chorus/internal/transport"
)

var _ Handler = (*Backend)(nil)

// Routes returns the path patterns the backend serves, mirroring the endpoint
// layout of the real studio backend.
func (b *Backend) Routes() []string {
	return []string{
		"POST /api/generate",
		"POST /api/separate",
		"POST /api/midi",
		"POST /api/voice/clone",
		"GET /api/jobs/{id}",
		"GET /api/progress",
		"GET /api/features/{id}",
		"POST /api/features/{id}/ensure",
		"GET /api/artifacts",
		"POST /api/training/{action}",
	}
}

// ServeHTTP dispatches matched routes to the shared state machine.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/generate":
		var params transport.GenerationParams
		if !readJSON(w, r, &params) {
			return
		}
		writeJSON(w, http.StatusOK, b.submit("song", titleOr(params.Prompt, "Untitled song")))
	case path == "/api/separate":
		var params transport.SeparationParams
		if !readJSON(w, r, &params) {
			return
		}
		writeJSON(w, http.StatusOK, b.submit("stems", "Stems of "+params.ArtifactID))
	case path == "/api/midi":
		var params transport.MIDIParams
		if !readJSON(w, r, &params) {
			return
		}
		writeJSON(w, http.StatusOK, b.submit("midi", "MIDI of "+params.ArtifactID))
	case path == "/api/voice/clone":
		var params transport.VoiceCloneParams
		if !readJSON(w, r, &params) {
			return
		}
		writeJSON(w, http.StatusOK, b.submit("voice", titleOr(params.Name, "Voice clone")))
	case strings.HasPrefix(path, "/api/jobs/"):
		status, err := b.jobStatus(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, status)
	case path == "/api/progress":
		writeJSON(w, http.StatusOK, b.sharedProgress())
	case strings.HasSuffix(path, "/ensure"):
		if err := b.ensureFeature(r.PathValue("id")); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case strings.HasPrefix(path, "/api/features/"):
		status, err := b.featureStatus(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, status)
	case path == "/api/artifacts":
		writeJSON(w, http.StatusOK, b.listArtifacts())
	case strings.HasPrefix(path, "/api/training/"):
		action := transport.TrainingAction(r.PathValue("action"))
		if !action.Valid() {
			writeError(w, http.StatusBadRequest, "unknown training action")
			return
		}
		writeJSON(w, http.StatusOK, b.controlTraining(action))
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// NewHTTPHandler assembles the backend behind the router with request logging.
func NewHTTPHandler(backend *Backend, logger *log.Logger) http.Handler {
	router := NewBasicRouter()
	router.Use(Logging(logger))
	router.Handler(backend)
	return router
}

// Logging returns [Middleware] that logs each request with method, path, and
// elapsed time.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("handled request",
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start),
			)
		})
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
