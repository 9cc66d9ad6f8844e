package api

import "github.com/TobiSchelling/Polarify/internal/results"

// User is the signed-in account.
type User struct {
	ID       results.ID `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
}

// Project is a named container for analysis history.
type Project struct {
	ID          results.ID   `json:"id"`
	Name        string       `json:"name"`
	Description results.Text `json:"description"`
}

// ProjectInput is the body of project create and update calls.
type ProjectInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// LoginResponse is returned by POST /login/.
type LoginResponse struct {
	Token    string     `json:"token"`
	ID       results.ID `json:"id"`
	Username string     `json:"username"`
	Email    string     `json:"email"`
}

// User returns the account part of the response.
func (r LoginResponse) User() User {
	return User{ID: r.ID, Username: r.Username, Email: r.Email}
}

// RegisterResponse is returned by POST /register/.
type RegisterResponse struct {
	Token string `json:"token"`
}

// Opinion is one text submitted for raw analysis.
type Opinion struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Window selects the project and analysis period of a submission.
type Window struct {
	ProjectID results.ID
	DateFrom  string
	DateTo    string
}
