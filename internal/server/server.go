// Package server is the local web console: server-rendered pages over the
// same view controllers the CLI uses.
package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/Polarify/internal/pipeline"
	"github.com/TobiSchelling/Polarify/internal/results"
	"github.com/TobiSchelling/Polarify/internal/session"
	"github.com/TobiSchelling/Polarify/internal/views"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

var pageNames = []string{
	"index.html", "login.html", "register.html", "dashboard.html",
	"projects.html", "project.html", "stats.html", "raw.html", "csv.html",
}

// Options configure the console.
type Options struct {
	// PageSize is the number of history rows per page.
	PageSize int
	// DateFrom and DateTo prefill the analysis forms.
	DateFrom string
	DateTo   string
}

// Server is the HTTP server for the console.
type Server struct {
	backend views.Backend
	session *session.Session
	journal pipeline.Journal
	opts    Options
	pages   map[string]*template.Template
	router  chi.Router
}

// New creates a Server. journal may be nil.
func New(backend views.Backend, sess *session.Session, journal pipeline.Journal, opts Options) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown":    renderMarkdown,
		"formatDate":  func(t results.Text) string { return results.FormatDate(t.String()) },
		"formatScore": results.FormatScore,
		"score":       func(s results.Score) string { return results.FormatScore(s.Float()) },
		"buckets":     func() []results.Bucket { return results.Buckets },
		"percent": func(d results.Distribution, b results.Bucket) string {
			return fmt.Sprintf("%.1f", d.Percent(b))
		},
		"deref": func(p *float64) float64 {
			if p == nil {
				return 0
			}
			return *p
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so {{define "content"}} does not
	// collide between pages.
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	if opts.PageSize < 1 {
		opts.PageSize = results.DefaultPageSize
	}
	s := &Server{backend: backend, session: sess, journal: journal, opts: opts, pages: pages}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	r.Get("/", s.handleIndex)
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/register", s.handleRegisterPage)
	r.Post("/register", s.handleRegister)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireLogin)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/projects", s.handleProjects)
		r.Post("/projects", s.handleCreateProject)
		r.Get("/projects/{id}", s.handleProject)
		r.Post("/projects/{id}/edit", s.handleEditProject)
		r.Post("/projects/{id}/delete", s.handleDeleteProject)
		r.Get("/projects/{id}/statistical_measures", s.handleStatistics)
		r.Get("/sentiment-analysis-raw", s.handleRawPage)
		r.Post("/sentiment-analysis-raw", s.handleRawSubmit)
		r.Get("/sentiment-analysis-csv", s.handleCSVPage)
		r.Post("/sentiment-analysis-csv", s.handleCSVSubmit)
	})

	s.router = r
}

// requireLogin sends signed-out visitors to the login page.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.session.LoggedIn() {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data map[string]any) {
	tmpl, ok := s.pages[name]
	if !ok {
		slog.Error("template not found", "template", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if data == nil {
		data = map[string]any{}
	}
	data["LoggedIn"] = s.session.LoggedIn()
	data["User"] = s.session.User()

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		slog.Error("rendering template", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func renderMarkdown(text results.Text) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(string(text)))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve runs srv on 127.0.0.1:port until ctx is done.
func Serve(ctx context.Context, srv *Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "url", "http://"+addr)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("shutting down server")
		return hs.Shutdown(shutdownCtx)
	}
}
