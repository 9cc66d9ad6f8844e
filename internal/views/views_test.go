package views

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TobiSchelling/Polarify/internal/api"
	"github.com/TobiSchelling/Polarify/internal/results"
	"github.com/TobiSchelling/Polarify/internal/session"
)

// fakeBackend serves canned data and records calls.
type fakeBackend struct {
	mu sync.Mutex

	user        *api.User
	projects    []api.Project
	projectsErr error
	meErr       error
	results     map[results.ID][]results.Record
	resultsErr  map[results.ID]error
	measures    *results.Measures
	measuresErr error
	summary     *results.Record
	analyzeErr  error
	login       *api.LoginResponse
	loginErr    error

	calls      []string
	inFlight   atomic.Int32
	maxFlight  atomic.Int32
	delay      time.Duration
	gotWindow  api.Window
	gotOps     []api.Opinion
	gotCSVName string
	gotCSVBody string
	gotInput   api.ProjectInput
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeBackend) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeBackend) Login(_ context.Context, email, _ string) (*api.LoginResponse, error) {
	f.record("login " + email)
	return f.login, f.loginErr
}

func (f *fakeBackend) Register(_ context.Context, username, _, _ string) (*api.RegisterResponse, error) {
	f.record("register " + username)
	return &api.RegisterResponse{Token: "reg-token"}, nil
}

func (f *fakeBackend) Me(context.Context) (*api.User, error) {
	f.record("me")
	return f.user, f.meErr
}

func (f *fakeBackend) Projects(context.Context) ([]api.Project, error) {
	f.record("projects")
	return f.projects, f.projectsErr
}

func (f *fakeBackend) Project(_ context.Context, id results.ID) (*api.Project, error) {
	f.record("project " + id.String())
	for _, p := range f.projects {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, &api.Error{StatusCode: 404, Detail: "Project not found"}
}

func (f *fakeBackend) CreateProject(_ context.Context, in api.ProjectInput) (*api.Project, error) {
	f.record("create " + in.Name)
	f.gotInput = in
	return &api.Project{ID: "99", Name: in.Name}, nil
}

func (f *fakeBackend) UpdateProject(_ context.Context, id results.ID, in api.ProjectInput) (*api.Project, error) {
	f.record("update " + id.String())
	f.gotInput = in
	return &api.Project{ID: id, Name: in.Name}, nil
}

func (f *fakeBackend) DeleteProject(_ context.Context, id results.ID) error {
	f.record("delete " + id.String())
	return nil
}

func (f *fakeBackend) Results(_ context.Context, id results.ID, year string) ([]results.Record, error) {
	f.record(fmt.Sprintf("results %s %s", id, year))
	n := f.inFlight.Add(1)
	for {
		peak := f.maxFlight.Load()
		if n <= peak || f.maxFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.inFlight.Add(-1)
	if err := f.resultsErr[id]; err != nil {
		return nil, err
	}
	return f.results[id], nil
}

func (f *fakeBackend) Measures(_ context.Context, id results.ID) (*results.Measures, error) {
	f.record("measures " + id.String())
	return f.measures, f.measuresErr
}

func (f *fakeBackend) AnalyzeRaw(_ context.Context, w api.Window, ops []api.Opinion) (*results.Record, error) {
	f.record("analyze-raw")
	f.gotWindow = w
	f.gotOps = ops
	return f.summary, f.analyzeErr
}

func (f *fakeBackend) AnalyzeCSV(_ context.Context, w api.Window, name string, file io.Reader) (*results.Record, error) {
	f.record("analyze-csv")
	f.gotWindow = w
	f.gotCSVName = name
	data, _ := io.ReadAll(file)
	f.gotCSVBody = string(data)
	return f.summary, f.analyzeErr
}

func ptr(v float64) *float64 { return &v }

func TestLoadDashboard(t *testing.T) {
	b := &fakeBackend{
		user:     &api.User{ID: "1", Username: "ana"},
		projects: []api.Project{{ID: "1"}, {ID: "2"}, {ID: "3"}},
	}
	d := LoadDashboard(context.Background(), b)
	if d.Error != "" {
		t.Fatalf("unexpected error: %s", d.Error)
	}
	if d.User == nil || d.User.Username != "ana" {
		t.Errorf("expected user ana, got %+v", d.User)
	}
	if d.ProjectCount != 3 {
		t.Errorf("expected 3 projects, got %d", d.ProjectCount)
	}
}

func TestLoadDashboardFailure(t *testing.T) {
	b := &fakeBackend{user: &api.User{Username: "ana"}, projectsErr: errors.New("connection refused")}
	d := LoadDashboard(context.Background(), b)
	if d.Error == "" {
		t.Fatal("expected an error message")
	}
	if d.User != nil || d.ProjectCount != 0 {
		t.Errorf("expected empty model, got %+v", d)
	}
}

func TestLoadLibraryEnrichment(t *testing.T) {
	b := &fakeBackend{
		projects: []api.Project{{ID: "1", Name: "A"}, {ID: "2", Name: "B"}, {ID: "3", Name: "C"}},
		results: map[results.ID][]results.Record{
			"1": {{AvgSentiment: 0.5, OpinionsCount: 1}, {AvgSentiment: -0.1, OpinionsCount: 100}},
		},
		resultsErr: map[results.ID]error{"3": errors.New("boom")},
	}
	lib := LoadLibrary(context.Background(), b)
	if lib.Error != "" {
		t.Fatalf("unexpected error: %s", lib.Error)
	}
	if len(lib.Projects) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(lib.Projects))
	}
	if lib.Projects[0].Name != "A" || lib.Projects[2].Name != "C" {
		t.Error("expected cards in project order")
	}
	if s := lib.Projects[0].Score; s == nil || *s < 0.1999 || *s > 0.2001 {
		t.Errorf("expected simple average 0.2, got %v", s)
	}
	if lib.Projects[1].Score != nil {
		t.Error("expected nil score for project without runs")
	}
	if lib.Projects[2].Score != nil {
		t.Error("expected nil score for failed enrichment")
	}
	if got := lib.Projects[2].Bucket(); got != results.Neutral {
		t.Errorf("expected neutral bucket without score, got %s", got)
	}
}

func TestLoadLibraryBoundedConcurrency(t *testing.T) {
	b := &fakeBackend{delay: 5 * time.Millisecond}
	for i := 0; i < 3*MaxEnrichment; i++ {
		b.projects = append(b.projects, api.Project{ID: results.ID(fmt.Sprint(i))})
	}
	lib := LoadLibrary(context.Background(), b)
	if len(lib.Projects) != 3*MaxEnrichment {
		t.Fatalf("expected %d cards, got %d", 3*MaxEnrichment, len(lib.Projects))
	}
	if got := b.maxFlight.Load(); got > MaxEnrichment {
		t.Errorf("expected at most %d concurrent fetches, got %d", MaxEnrichment, got)
	}
	if got := b.callCount("results"); got != 3*MaxEnrichment {
		t.Errorf("expected one results call per project, got %d", got)
	}
}

func TestLoadLibraryFailure(t *testing.T) {
	b := &fakeBackend{projectsErr: errors.New("down")}
	lib := LoadLibrary(context.Background(), b)
	if lib.Error != "Failed to synchronize project library." {
		t.Errorf("unexpected error message %q", lib.Error)
	}
	if lib.Projects == nil || len(lib.Projects) != 0 {
		t.Error("expected empty project list")
	}
}

func TestProjectCardBarPercent(t *testing.T) {
	tests := []struct {
		score *float64
		want  float64
	}{
		{nil, 0},
		{ptr(0.42), 42},
		{ptr(-0.3), 30},
		{ptr(1.7), 100},
	}
	for _, tt := range tests {
		c := ProjectCard{Score: tt.score}
		if got := c.BarPercent(); got < tt.want-1e-9 || got > tt.want+1e-9 {
			t.Errorf("BarPercent(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestCreateProjectRequiresName(t *testing.T) {
	b := &fakeBackend{}
	_, err := CreateProject(context.Background(), b, "   ", "desc")
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("expected errors.Is to match ErrValidation")
	}
	if b.callCount("create") != 0 {
		t.Error("expected no backend call for empty name")
	}

	p, err := CreateProject(context.Background(), b, " Launch ", " notes ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Launch" || *b.gotInput.Description != "notes" {
		t.Errorf("expected trimmed input, got %+v", b.gotInput)
	}
}

func TestLoadProject(t *testing.T) {
	now = func() time.Time { return time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC) }
	defer func() { now = time.Now }()

	b := &fakeBackend{
		projects: []api.Project{{ID: "7", Name: "Launch"}},
		results: map[results.ID][]results.Record{
			"7": {
				{ID: "a", CreatedAt: "2024-01-05", DateFrom: "2024-01-01", AvgSentiment: 0.8, OpinionsCount: 4, PositiveCount: 4},
				{ID: "b", CreatedAt: "2024-06-01", DateFrom: "2024-05-01", AvgSentiment: -0.9, OpinionsCount: 1, NegativeCount: 1},
				{ID: "c", CreatedAt: "2024-03-01", DateFrom: "2023-01-01", DateTo: "2023-12-31", AvgSentiment: 0.2, OpinionsCount: 2},
			},
		},
	}

	d := LoadProject(context.Background(), b, "7", ParseDetailQuery("2024", "", "1", 10))
	if d.Error != "" {
		t.Fatalf("unexpected error: %s", d.Error)
	}
	if d.Project == nil || d.Project.Name != "Launch" {
		t.Fatalf("expected project Launch, got %+v", d.Project)
	}
	if d.Filtered != 2 {
		t.Fatalf("expected 2 records in 2024, got %d", d.Filtered)
	}
	if d.Page.Items[0].ID != "b" || d.Page.Items[1].ID != "a" {
		t.Errorf("expected newest first, got %v %v", d.Page.Items[0].ID, d.Page.Items[1].ID)
	}
	if d.WeightedAverage < 0.4599 || d.WeightedAverage > 0.4601 {
		t.Errorf("expected weighted average 0.46, got %v", d.WeightedAverage)
	}
	if d.Bucket != results.Positive {
		t.Errorf("expected positive headline, got %s", d.Bucket)
	}
	if d.Distribution.Positive != 4 || d.Distribution.Negative != 1 || d.Distribution.Opinions != 5 {
		t.Errorf("unexpected distribution %+v", d.Distribution)
	}
	if len(d.Years) != 5 || d.Years[0] != 2024 || d.Years[4] != 2020 {
		t.Errorf("unexpected years %v", d.Years)
	}
	if b.callCount("results 7 2024") != 1 {
		t.Error("expected the year to be pushed to the backend")
	}

	d = LoadProject(context.Background(), b, "7", ParseDetailQuery("", "negative", "1", 10))
	if d.Filtered != 1 || d.Page.Items[0].ID != "b" {
		t.Errorf("expected negative filter to keep b, got %d records", d.Filtered)
	}
}

func TestLoadProjectFailure(t *testing.T) {
	b := &fakeBackend{}
	d := LoadProject(context.Background(), b, "404", ParseDetailQuery("", "", "", 10))
	if d.Error != "Project not found" {
		t.Errorf("expected backend detail, got %q", d.Error)
	}
	if d.Project != nil || len(d.Page.Items) != 0 || d.Page.TotalPages != 1 {
		t.Errorf("expected empty model, got %+v", d)
	}
}

func TestParseDetailQuery(t *testing.T) {
	q := ParseDetailQuery("2023", "bogus", "-4", 0)
	if q.Bucket != results.All || q.Page != 1 || q.Year != "2023" {
		t.Errorf("unexpected query %+v", q)
	}
	q = ParseDetailQuery("", "Positive", "3", 10)
	if q.Bucket != results.Positive || q.Page != 3 {
		t.Errorf("unexpected query %+v", q)
	}
}

func TestLoadStatistics(t *testing.T) {
	b := &fakeBackend{measures: &results.Measures{Mean: 0.256, Count: 12}}
	s := LoadStatistics(context.Background(), b, "1")
	if s.Error != "" || s.Cards[0].Value != "0.26" || s.Cards[5].Value != "12.00" {
		t.Errorf("unexpected statistics %+v", s)
	}

	b = &fakeBackend{measuresErr: errors.New("down")}
	s = LoadStatistics(context.Background(), b, "1")
	if s.Error == "" {
		t.Error("expected an error message")
	}
	for _, c := range s.Cards {
		if c.Value != "0.00" {
			t.Errorf("%s: expected 0.00, got %s", c.Label, c.Value)
		}
	}
}

func TestRawFormRows(t *testing.T) {
	f := NewRawForm(api.Window{ProjectID: "1"})
	if len(f.Opinions) != 1 || f.Opinions[0].ID != "1" {
		t.Fatalf("expected one empty row with id 1, got %+v", f.Opinions)
	}
	if f.Remove("1") {
		t.Error("expected the last row to be kept")
	}
	f.Add("second")
	f.Add("third")
	if !f.Remove("2") {
		t.Fatal("expected row 2 to be removed")
	}
	op := f.Add("fourth")
	if op.ID != "4" {
		t.Errorf("expected ids not to be reused, got %s", op.ID)
	}
	if !f.Set("1", "first") {
		t.Error("expected row 1 to be updated")
	}
	if f.Set("2", "gone") {
		t.Error("expected removed row to be unknown")
	}
}

func TestRawFormValidation(t *testing.T) {
	b := &fakeBackend{summary: &results.Record{AvgSentiment: 0.3, OpinionsCount: 2}}
	f := NewRawForm(api.Window{ProjectID: "1", DateFrom: "2024-01-01", DateTo: "2024-12-31"})
	f.Set("1", "Great product")
	f.Add("  ")

	_, err := f.Submit(context.Background(), b)
	if Message(err) != "All feedback entries must have content." {
		t.Fatalf("unexpected error %v", err)
	}
	if b.callCount("analyze") != 0 {
		t.Fatal("expected no network call on invalid form")
	}
	if !f.Blank()["2"] || f.Blank()["1"] {
		t.Errorf("unexpected blank rows %v", f.Blank())
	}

	f.Set("2", "Slow support")
	summary, err := f.Submit(context.Background(), b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.OpinionsCount != 2 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if len(b.gotOps) != 2 || b.gotWindow.DateFrom != "2024-01-01" {
		t.Errorf("unexpected submission %+v %+v", b.gotWindow, b.gotOps)
	}
}

func TestRawFormRequiresProject(t *testing.T) {
	f := NewRawForm(api.Window{})
	f.Set("1", "text")
	if err := f.Validate(); !IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRawFormBackendFailure(t *testing.T) {
	f := NewRawForm(api.Window{ProjectID: "1"})
	f.Set("1", "text")

	_, err := f.Submit(context.Background(), &fakeBackend{analyzeErr: errors.New("dial tcp: refused")})
	if Message(err) != "Error connecting to server." || IsValidation(err) {
		t.Errorf("unexpected error %v", err)
	}

	_, err = f.Submit(context.Background(), &fakeBackend{analyzeErr: &api.Error{StatusCode: 422, Detail: "date_from is invalid"}})
	if Message(err) != "date_from is invalid" {
		t.Errorf("expected backend detail, got %q", Message(err))
	}
}

func TestRestoreRawForm(t *testing.T) {
	f := RestoreRawForm(api.Window{}, []api.Opinion{{ID: "3", Content: "a"}, {ID: "7", Content: "b"}}, 0)
	if got := f.Add("").ID; got != "8" {
		t.Errorf("expected sequence to continue at 8, got %s", got)
	}
	f = RestoreRawForm(api.Window{}, []api.Opinion{{ID: "1", Content: "a"}}, 5)
	if got := f.Add("").ID; got != "6" {
		t.Errorf("expected removed ids to stay retired, got %s", got)
	}
	if f := RestoreRawForm(api.Window{}, nil, 0); len(f.Opinions) != 1 {
		t.Error("expected an empty row when nothing was submitted")
	}
}

func TestCheckCSVFile(t *testing.T) {
	tests := []struct {
		name, contentType string
		ok                bool
	}{
		{"data.csv", "", true},
		{"DATA.CSV", "application/octet-stream", true},
		{"export", "text/csv; charset=utf-8", true},
		{"notes.txt", "text/plain", false},
		{"", "", false},
	}
	for _, tt := range tests {
		err := CheckCSVFile(tt.name, tt.contentType)
		if (err == nil) != tt.ok {
			t.Errorf("CheckCSVFile(%q, %q) = %v, want ok=%v", tt.name, tt.contentType, err, tt.ok)
		}
		if err != nil && Message(err) != "Please upload a valid CSV file." {
			t.Errorf("unexpected message %q", Message(err))
		}
	}
}

func TestSubmitCSV(t *testing.T) {
	b := &fakeBackend{summary: &results.Record{OpinionsCount: 3}}

	_, err := SubmitCSV(context.Background(), b, api.Window{}, &CSVFile{Name: "a.csv", Body: strings.NewReader("x")})
	if Message(err) != "Please select a project and upload a CSV file." {
		t.Errorf("unexpected error %v", err)
	}
	_, err = SubmitCSV(context.Background(), b, api.Window{ProjectID: "1"}, nil)
	if Message(err) != "Please select a project and upload a CSV file." {
		t.Errorf("unexpected error %v", err)
	}
	if b.callCount("analyze") != 0 {
		t.Fatal("expected no upload on invalid input")
	}

	summary, err := SubmitCSV(context.Background(), b, api.Window{ProjectID: "1"}, &CSVFile{Name: "a.csv", Body: strings.NewReader("content\nhi\n")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.OpinionsCount != 3 || b.gotCSVName != "a.csv" || b.gotCSVBody != "content\nhi\n" {
		t.Errorf("unexpected upload %q %q", b.gotCSVName, b.gotCSVBody)
	}

	_, err = SubmitCSV(context.Background(), &fakeBackend{analyzeErr: errors.New("down")}, api.Window{ProjectID: "1"}, &CSVFile{Name: "a.csv", Body: strings.NewReader("")})
	if Message(err) != "Error processing CSV file." {
		t.Errorf("unexpected error %v", err)
	}
}

func TestLoadChoices(t *testing.T) {
	c := LoadChoices(context.Background(), &fakeBackend{projects: []api.Project{{ID: "4"}, {ID: "5"}}})
	if c.Default != "4" || len(c.Projects) != 2 {
		t.Errorf("unexpected choices %+v", c)
	}
	c = LoadChoices(context.Background(), &fakeBackend{projectsErr: errors.New("down")})
	if c.Error != "Could not load projects." || c.Default != "" {
		t.Errorf("unexpected choices %+v", c)
	}
}

func TestLoginAndLogout(t *testing.T) {
	s := session.New(session.NewMemoryStore())
	b := &fakeBackend{login: &api.LoginResponse{Token: "tok", ID: "1", Username: "ana", Email: "a@x.io"}}

	if _, err := Login(context.Background(), b, s, "", "pw"); !IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	user, err := Login(context.Background(), b, s, "a@x.io", "pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Username != "ana" || s.Token() != "tok" || s.User() == nil {
		t.Errorf("expected session initialized, got token %q user %+v", s.Token(), s.User())
	}

	if err := Logout(s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.LoggedIn() || s.User() != nil {
		t.Error("expected session cleared")
	}
}

func TestLoginFailureMessage(t *testing.T) {
	s := session.New(session.NewMemoryStore())
	_, err := Login(context.Background(), &fakeBackend{loginErr: errors.New("refused")}, s, "a@x.io", "pw")
	if Message(err) != "An error occurred during login." {
		t.Errorf("unexpected message %q", Message(err))
	}
	_, err = Login(context.Background(), &fakeBackend{loginErr: &api.Error{StatusCode: 401, Detail: "Invalid credentials"}}, s, "a@x.io", "pw")
	if Message(err) != "Invalid credentials" {
		t.Errorf("unexpected message %q", Message(err))
	}
	if s.LoggedIn() {
		t.Error("expected no session after failed login")
	}
}

func TestRegister(t *testing.T) {
	s := session.New(session.NewMemoryStore())
	if err := Register(context.Background(), &fakeBackend{}, s, "ana", "a@x.io", "pw"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Token() != "reg-token" || s.User() != nil {
		t.Errorf("expected token only, got %q %+v", s.Token(), s.User())
	}
}
