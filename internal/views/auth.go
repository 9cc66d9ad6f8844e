package views

import (
	"context"
	"log/slog"
	"strings"

	"github.com/TobiSchelling/Polarify/internal/api"
	"github.com/TobiSchelling/Polarify/internal/session"
)

// Login signs in and initializes the session.
func Login(ctx context.Context, b Backend, s *session.Session, email, password string) (*api.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, invalid("Email and password are required.")
	}
	resp, err := b.Login(ctx, email, password)
	if err != nil {
		slog.Warn("login failed", "email", email, "error", err)
		return nil, backendFailure(err, "An error occurred during login.")
	}
	user := resp.User()
	if err := s.Login(resp.Token, user); err != nil {
		return nil, backendFailure(err, "An error occurred during login.")
	}
	slog.Info("signed in", "user", user.Username)
	return &user, nil
}

// Register creates an account and stores its token. The user still signs in
// afterwards to populate the cached profile.
func Register(ctx context.Context, b Backend, s *session.Session, username, email, password string) error {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return invalid("Username, email and password are required.")
	}
	resp, err := b.Register(ctx, username, email, password)
	if err != nil {
		slog.Warn("registration failed", "email", email, "error", err)
		return backendFailure(err, "Registration failed. Please try again.")
	}
	if err := s.Register(resp.Token); err != nil {
		return backendFailure(err, "Registration failed. Please try again.")
	}
	slog.Info("registered", "user", username)
	return nil
}

// Logout tears the session down.
func Logout(s *session.Session) error {
	if err := s.Logout(); err != nil {
		return err
	}
	slog.Info("signed out")
	return nil
}
