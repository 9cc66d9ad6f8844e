package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/TobiSchelling/Polarify/internal/results"
)

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/login/", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its token.
func (c *Client) Register(ctx context.Context, username, email, password string) (*RegisterResponse, error) {
	var out RegisterResponse
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/register/", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the current user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.doJSON(ctx, http.MethodGet, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Projects lists the user's projects.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var out []Project
	if err := c.doJSON(ctx, http.MethodGet, "/projects/", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Project{}
	}
	return out, nil
}

// Project fetches one project.
func (c *Client) Project(ctx context.Context, id results.ID) (*Project, error) {
	var out Project
	if err := c.doJSON(ctx, http.MethodGet, "/projects/"+url.PathEscape(id.String()), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, in ProjectInput) (*Project, error) {
	var out Project
	if err := c.doJSON(ctx, http.MethodPost, "/projects/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProject replaces a project's name and, if set, its description.
func (c *Client) UpdateProject(ctx context.Context, id results.ID, in ProjectInput) (*Project, error) {
	var out Project
	if err := c.doJSON(ctx, http.MethodPut, "/projects/"+url.PathEscape(id.String()), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProject deletes a project.
func (c *Client) DeleteProject(ctx context.Context, id results.ID) error {
	return c.doJSON(ctx, http.MethodDelete, "/projects/"+url.PathEscape(id.String()), nil, nil)
}

// Results returns a project's analysis history. A non-empty year is passed to
// the backend as a filter. A body that is not a JSON array yields no records.
func (c *Client) Results(ctx context.Context, projectID results.ID, year string) ([]results.Record, error) {
	path := "/sentiment-analysis_results/" + url.PathEscape(projectID.String())
	if year != "" {
		path += "?" + url.Values{"year": {year}}.Encode()
	}

	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	records := []results.Record{}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return records, nil
	}
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("decoding results: %w", err)
	}
	return records, nil
}

// Measures returns the backend's statistics for a project.
func (c *Client) Measures(ctx context.Context, projectID results.ID) (*results.Measures, error) {
	var out results.Measures
	path := "/sentiment-analysis_statistical_measures/" + url.PathEscape(projectID.String())
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeRaw submits opinions for scoring and returns the run summary.
func (c *Client) AnalyzeRaw(ctx context.Context, w Window, opinions []Opinion) (*results.Record, error) {
	var out results.Record
	if err := c.doJSON(ctx, http.MethodPost, "/sentiment-analysis-raw?"+w.query(), opinions, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyzeCSV uploads a CSV file of opinions for scoring.
func (c *Client) AnalyzeCSV(ctx context.Context, w Window, filename string, file io.Reader) (*results.Record, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var out results.Record
	if err := c.do(ctx, http.MethodPost, "/sentiment-analysis-csv?"+w.query(), &buf, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (w Window) query() string {
	v := url.Values{}
	v.Set("project_id", w.ProjectID.String())
	v.Set("date_from", w.DateFrom)
	v.Set("date_to", w.DateTo)
	return v.Encode()
}
