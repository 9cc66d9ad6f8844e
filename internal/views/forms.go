package views

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/TobiSchelling/Polarify/internal/api"
	"github.com/TobiSchelling/Polarify/internal/results"
)

// Choices is the project selector shared by both analysis forms.
type Choices struct {
	Projects []api.Project
	// Default is the first project, preselected when the user has not chosen.
	Default results.ID
	Error   string
}

// LoadChoices lists the projects a submission can target.
func LoadChoices(ctx context.Context, b Backend) Choices {
	projects, err := b.Projects(ctx)
	if err != nil {
		slog.Error("loading projects", "error", err)
		return Choices{Projects: []api.Project{}, Error: "Could not load projects."}
	}
	c := Choices{Projects: projects}
	if len(projects) > 0 {
		c.Default = projects[0].ID
	}
	return c
}

// RawForm holds the rows of a raw analysis submission.
type RawForm struct {
	Window   api.Window
	Opinions []api.Opinion
	seq      *api.Sequence
}

// NewRawForm starts a form with one empty row.
func NewRawForm(w api.Window) *RawForm {
	f := &RawForm{Window: w, seq: &api.Sequence{}}
	f.Add("")
	return f
}

// RestoreRawForm rebuilds a form from submitted rows. Row ids are kept and
// the sequence continues after lastID or the highest numeric id, whichever
// is larger.
func RestoreRawForm(w api.Window, opinions []api.Opinion, lastID int) *RawForm {
	last := lastID
	for _, op := range opinions {
		if n, err := strconv.Atoi(op.ID); err == nil && n > last {
			last = n
		}
	}
	f := &RawForm{Window: w, seq: api.ResumeSequence(last)}
	for _, op := range opinions {
		if op.ID == "" {
			op.ID = f.seq.Next()
		}
		f.Opinions = append(f.Opinions, op)
	}
	if len(f.Opinions) == 0 {
		f.Add("")
	}
	return f
}

// Add appends a row and returns it.
func (f *RawForm) Add(content string) api.Opinion {
	op := api.Opinion{ID: f.seq.Next(), Content: content}
	f.Opinions = append(f.Opinions, op)
	return op
}

// Remove deletes the row with the given id. The last remaining row is kept.
func (f *RawForm) Remove(id string) bool {
	if len(f.Opinions) <= 1 {
		return false
	}
	for i, op := range f.Opinions {
		if op.ID == id {
			f.Opinions = append(f.Opinions[:i], f.Opinions[i+1:]...)
			return true
		}
	}
	return false
}

// Set replaces the content of the row with the given id.
func (f *RawForm) Set(id, content string) bool {
	for i := range f.Opinions {
		if f.Opinions[i].ID == id {
			f.Opinions[i].Content = content
			return true
		}
	}
	return false
}

// LastID is the number of the most recently issued row id.
func (f *RawForm) LastID() int { return f.seq.Last() }

// Blank returns the ids of rows with no content, for highlighting.
func (f *RawForm) Blank() map[string]bool {
	out := map[string]bool{}
	for _, op := range f.Opinions {
		if strings.TrimSpace(op.Content) == "" {
			out[op.ID] = true
		}
	}
	return out
}

// Validate checks the form without touching the network.
func (f *RawForm) Validate() error {
	if f.Window.ProjectID == "" {
		return invalid("Please select a project.")
	}
	if len(f.Opinions) == 0 || len(f.Blank()) > 0 {
		return invalid("All feedback entries must have content.")
	}
	return nil
}

// Submit validates and sends the rows for analysis.
func (f *RawForm) Submit(ctx context.Context, b Backend) (*results.Record, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	summary, err := b.AnalyzeRaw(ctx, f.Window, f.Opinions)
	if err != nil {
		slog.Error("raw analysis failed", "project_id", f.Window.ProjectID, "opinions", len(f.Opinions), "error", err)
		return nil, backendFailure(err, "Error connecting to server.")
	}
	slog.Info("raw analysis submitted", "project_id", f.Window.ProjectID, "opinions", len(f.Opinions))
	return summary, nil
}

// CSVFile is an uploaded file awaiting analysis.
type CSVFile struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// CheckCSVFile accepts a .csv name or a text/csv content type.
func CheckCSVFile(name, contentType string) error {
	ext := strings.ToLower(filepath.Ext(name))
	mediaType := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ext == ".csv" || mediaType == "text/csv" {
		return nil
	}
	return invalid("Please upload a valid CSV file.")
}

// SubmitCSV validates and uploads a CSV file for analysis.
func SubmitCSV(ctx context.Context, b Backend, w api.Window, file *CSVFile) (*results.Record, error) {
	if w.ProjectID == "" || file == nil || file.Body == nil {
		return nil, invalid("Please select a project and upload a CSV file.")
	}
	if err := CheckCSVFile(file.Name, file.ContentType); err != nil {
		return nil, err
	}
	summary, err := b.AnalyzeCSV(ctx, w, file.Name, file.Body)
	if err != nil {
		slog.Error("csv analysis failed", "project_id", w.ProjectID, "file", file.Name, "error", err)
		return nil, backendFailure(err, "Error processing CSV file.")
	}
	slog.Info("csv analysis submitted", "project_id", w.ProjectID, "file", file.Name)
	return summary, nil
}
