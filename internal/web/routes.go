package web

import (
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/attendance/internal/web/handlers"
	"github.com/kozaktomas/attendance/internal/web/middleware"
	"github.com/kozaktomas/attendance/internal/web/static"
)

// requestTimeout bounds every request except the capture event stream.
const requestTimeout = 5 * time.Minute

func (s *Server) setupRoutes() {
	authHandler := handlers.NewAuthHandler(s.config, s.sessionManager)
	configHandler := handlers.NewConfigHandler(s.config)
	statsHandler := handlers.NewStatsHandler(s.config, s.opts.Store)
	studentsHandler := handlers.NewStudentsHandler(s.config, s.opts.Store)
	trainHandler := handlers.NewTrainHandler(s.config, s.opts.Store, s.opts.Backend)
	captureHandler := handlers.NewCaptureHandler(s.config, s.opts.Backend, s.jobManager)
	subjectsHandler := handlers.NewSubjectsHandler(s.config)
	historyHandler := handlers.NewHistoryHandler()
	speechHandler := handlers.NewSpeechHandler(s.opts.Speech)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		r.Group(func(r chi.Router) {
			if s.config.Web.Password != "" {
				r.Use(middleware.RequireAuth(s.sessionManager))
			}

			// Capture events stream for the whole window, outside the timeout
			r.Get("/capture/{jobId}/events", captureHandler.Events)

			r.Group(func(r chi.Router) {
				r.Use(chiMiddleware.Timeout(requestTimeout))

				r.Get("/config", configHandler.Get)
				r.Get("/stats", statsHandler.Get)

				// Roster and training samples
				r.Get("/students", studentsHandler.List)
				r.Post("/students", studentsHandler.Create)
				r.Get("/students/{enrollment}", studentsHandler.Get)
				r.Post("/students/{enrollment}/samples", studentsHandler.UploadSamples)

				r.Post("/train", trainHandler.Train)

				// Attendance capture (one job at a time)
				r.Get("/capture", captureHandler.Active)
				r.Post("/capture", captureHandler.Start)
				r.Get("/capture/{jobId}", captureHandler.Status)
				r.Post("/capture/{jobId}/stop", captureHandler.Stop)
				r.Delete("/capture/{jobId}", captureHandler.Cancel)

				// Subjects, sessions and summaries
				r.Get("/subjects", subjectsHandler.List)
				r.Get("/subjects/{subject}/sessions", subjectsHandler.Sessions)
				r.Get("/subjects/{subject}/sessions/{file}", subjectsHandler.Session)
				r.Get("/subjects/{subject}/summary", subjectsHandler.Summary)
				r.Post("/subjects/{subject}/summary", subjectsHandler.SaveSummary)
				r.Get("/subjects/{subject}/summary.csv", subjectsHandler.SummaryCSV)

				r.Get("/history", historyHandler.List)
				r.Get("/speech", speechHandler.Speak)
			})
		})
	})

	s.router.Get("/*", s.serveSPA)
}

// serveSPA serves the embedded dashboard, falling back to index.html for client routes
func (s *Server) serveSPA(w http.ResponseWriter, r *http.Request) {
	if dist, ok := static.Dashboard(); ok {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			name = "index.html"
		}

		asset := strings.HasPrefix(name, "assets/")
		if serveFile(w, dist, name, asset) {
			return
		}
		if !asset && serveFile(w, dist, "index.html", false) {
			return
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Attendance</title></head>
<body>
    <h1>Attendance</h1>
    <p>The dashboard is not built. The API is available at <a href="/api/v1/health">/api/v1/health</a>.</p>
</body>
</html>`))
}

// serveFile writes a regular file of fsys with a content type derived from
// its extension and reports whether it existed. Hashed assets are cached forever.
func serveFile(w http.ResponseWriter, fsys fs.FS, name string, immutable bool) bool {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return false
	}
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if immutable {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
	return true
}
