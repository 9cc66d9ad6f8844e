package server

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/TobiSchelling/Polarify/internal/api"
	"github.com/TobiSchelling/Polarify/internal/pipeline"
	"github.com/TobiSchelling/Polarify/internal/results"
	"github.com/TobiSchelling/Polarify/internal/views"
)

// maxUpload bounds a CSV upload.
const maxUpload = 10 << 20

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index.html", nil)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "login.html", map[string]any{
		"Registered": r.URL.Query().Get("registered") != "",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	if _, err := views.Login(r.Context(), s.backend, s.session, email, r.FormValue("password")); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		s.render(w, "login.html", map[string]any{"Error": views.Message(err), "Email": email})
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "register.html", nil)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	username, email := r.FormValue("username"), r.FormValue("email")
	if err := views.Register(r.Context(), s.backend, s.session, username, email, r.FormValue("password")); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		s.render(w, "register.html", map[string]any{"Error": views.Message(err), "Username": username, "Email": email})
		return
	}
	http.Redirect(w, r, "/login?registered=1", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := views.Logout(s.session); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, "dashboard.html", map[string]any{
		"Dashboard": views.LoadDashboard(r.Context(), s.backend),
	})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	s.render(w, "projects.html", map[string]any{
		"Library": views.LoadLibrary(r.Context(), s.backend),
	})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	name, desc := r.FormValue("name"), r.FormValue("description")
	if _, err := views.CreateProject(r.Context(), s.backend, name, desc); err != nil {
		w.WriteHeader(statusFor(err))
		s.render(w, "projects.html", map[string]any{
			"Library":     views.LoadLibrary(r.Context(), s.backend),
			"FormError":   views.Message(err),
			"Name":        name,
			"Description": desc,
		})
		return
	}
	http.Redirect(w, r, "/projects", http.StatusFound)
}

func (s *Server) detailQuery(r *http.Request) views.DetailQuery {
	q := r.URL.Query()
	return views.ParseDetailQuery(q.Get("year"), q.Get("score"), q.Get("page"), s.opts.PageSize)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	id := results.ID(chi.URLParam(r, "id"))
	s.renderProject(w, r, id, "")
}

func (s *Server) renderProject(w http.ResponseWriter, r *http.Request, id results.ID, formError string) {
	q := s.detailQuery(r)
	detail := views.LoadProject(r.Context(), s.backend, id, q)
	s.render(w, "project.html", map[string]any{
		"Detail":    detail,
		"ID":        id,
		"FormError": formError,
		"PrevURL":   pageURL(id, q, detail.Page.PrevNumber()),
		"NextURL":   pageURL(id, q, detail.Page.NextNumber()),
	})
}

func pageURL(id results.ID, q views.DetailQuery, page int) string {
	v := url.Values{}
	if q.Year != "" {
		v.Set("year", q.Year)
	}
	if q.Bucket != results.All {
		v.Set("score", string(q.Bucket))
	}
	v.Set("page", strconv.Itoa(page))
	return "/projects/" + url.PathEscape(id.String()) + "?" + v.Encode()
}

func (s *Server) handleEditProject(w http.ResponseWriter, r *http.Request) {
	id := results.ID(chi.URLParam(r, "id"))
	if _, err := views.UpdateProject(r.Context(), s.backend, id, r.FormValue("name"), r.FormValue("description")); err != nil {
		w.WriteHeader(statusFor(err))
		s.renderProject(w, r, id, views.Message(err))
		return
	}
	http.Redirect(w, r, "/projects/"+url.PathEscape(id.String()), http.StatusFound)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id := results.ID(chi.URLParam(r, "id"))
	if err := views.DeleteProject(r.Context(), s.backend, id); err != nil {
		w.WriteHeader(statusFor(err))
		s.renderProject(w, r, id, views.Message(err))
		return
	}
	http.Redirect(w, r, "/projects", http.StatusFound)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	id := results.ID(chi.URLParam(r, "id"))
	s.render(w, "stats.html", map[string]any{
		"Stats": views.LoadStatistics(r.Context(), s.backend, id),
	})
}

// window reads the project and period fields shared by both forms,
// falling back to the configured defaults.
func (s *Server) window(r *http.Request, choices views.Choices) api.Window {
	w := api.Window{
		ProjectID: results.ID(strings.TrimSpace(r.FormValue("project_id"))),
		DateFrom:  strings.TrimSpace(r.FormValue("date_from")),
		DateTo:    strings.TrimSpace(r.FormValue("date_to")),
	}
	if w.ProjectID == "" && r.Method == http.MethodGet {
		w.ProjectID = choices.Default
	}
	if w.DateFrom == "" {
		w.DateFrom = s.opts.DateFrom
	}
	if w.DateTo == "" {
		w.DateTo = s.opts.DateTo
	}
	return w
}

func (s *Server) handleRawPage(w http.ResponseWriter, r *http.Request) {
	choices := views.LoadChoices(r.Context(), s.backend)
	form := views.NewRawForm(s.window(r, choices))
	s.renderRaw(w, form, choices, nil)
}

func (s *Server) renderRaw(w http.ResponseWriter, form *views.RawForm, choices views.Choices, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["Form"] = form
	data["Choices"] = choices
	s.render(w, "raw.html", data)
}

func (s *Server) handleRawSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	choices := views.LoadChoices(r.Context(), s.backend)
	lastID, _ := strconv.Atoi(r.FormValue("last_id"))
	form := views.RestoreRawForm(s.window(r, choices), rawRows(r), lastID)

	action := r.FormValue("action")
	switch {
	case action == "add":
		form.Add("")
		s.renderRaw(w, form, choices, nil)
		return
	case strings.HasPrefix(action, "remove:"):
		form.Remove(strings.TrimPrefix(action, "remove:"))
		s.renderRaw(w, form, choices, nil)
		return
	}

	ctx, requestID := s.requestContext(r)
	summary, err := form.Submit(ctx, s.backend)
	if !views.IsValidation(err) {
		s.journalSubmission(requestID, "raw", "", form.Window, summary, err)
	}
	if err != nil {
		w.WriteHeader(statusFor(err))
		s.renderRaw(w, form, choices, map[string]any{"Error": views.Message(err), "Blank": form.Blank()})
		return
	}
	s.renderRaw(w, views.NewRawForm(form.Window), choices, map[string]any{"Summary": summary})
}

// rawRows pairs the repeated opinion_id and content fields.
func rawRows(r *http.Request) []api.Opinion {
	ids := r.PostForm["opinion_id"]
	contents := r.PostForm["content"]
	rows := make([]api.Opinion, 0, len(contents))
	for i, c := range contents {
		op := api.Opinion{Content: c}
		if i < len(ids) {
			op.ID = ids[i]
		}
		rows = append(rows, op)
	}
	return rows
}

func (s *Server) handleCSVPage(w http.ResponseWriter, r *http.Request) {
	choices := views.LoadChoices(r.Context(), s.backend)
	s.render(w, "csv.html", map[string]any{"Window": s.window(r, choices), "Choices": choices})
}

func (s *Server) handleCSVSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		http.Error(w, "Upload too large or malformed", http.StatusBadRequest)
		return
	}
	choices := views.LoadChoices(r.Context(), s.backend)
	win := s.window(r, choices)

	var upload *views.CSVFile
	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		upload = &views.CSVFile{Name: header.Filename, ContentType: header.Header.Get("Content-Type"), Body: file}
	}

	ctx, requestID := s.requestContext(r)
	summary, err := views.SubmitCSV(ctx, s.backend, win, upload)
	if upload != nil && !views.IsValidation(err) {
		s.journalSubmission(requestID, "csv", upload.Name, win, summary, err)
	}
	data := map[string]any{"Window": win, "Choices": choices}
	if err != nil {
		w.WriteHeader(statusFor(err))
		data["Error"] = views.Message(err)
	} else {
		data["Summary"] = summary
	}
	s.render(w, "csv.html", data)
}

// requestContext tags the backend call with a fresh request id, which is
// also the journal key.
func (s *Server) requestContext(r *http.Request) (context.Context, string) {
	id := uuid.NewString()
	return api.WithRequestID(r.Context(), id), id
}

func (s *Server) journalSubmission(requestID, kind, origin string, win api.Window, summary *results.Record, submitErr error) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.InsertSubmission(pipeline.Entry(requestID, kind, origin, win, summary, submitErr)); err != nil {
		slog.Warn("journaling submission", "request_id", requestID, "error", err)
	}
}

func statusFor(err error) int {
	if views.IsValidation(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}
