package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/Polarify/internal/views"
)

var (
	authEmail    string
	authPassword string
	authUsername string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		email := orPrompt(authEmail, "Email: ")
		password := orPrompt(authPassword, "Password: ")

		user, err := views.Login(cmd.Context(), a.client, a.session, email, password)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s <%s>\n", user.Username, user.Email)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		username := orPrompt(authUsername, "Username: ")
		email := orPrompt(authEmail, "Email: ")
		password := orPrompt(authPassword, "Password: ")

		if err := views.Register(cmd.Context(), a.client, a.session, username, email, password); err != nil {
			return err
		}
		fmt.Println("Account created. Run 'polarify login' to sign in.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := views.Logout(a.session); err != nil {
			return err
		}
		fmt.Println("Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Aliases: []string{"dashboard"},
	Short:   "Show the signed-in user and project count",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		d := views.LoadDashboard(cmd.Context(), a.client)
		if d.Error != "" {
			return errors.New(d.Error)
		}
		fmt.Printf("User: %s\n", d.User.Username)
		fmt.Printf("Email: %s\n", d.User.Email)
		fmt.Printf("Projects: %d\n", d.ProjectCount)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&authEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&authPassword, "password", "", "Account password (prompted when omitted)")

	registerCmd.Flags().StringVar(&authUsername, "username", "", "Username")
	registerCmd.Flags().StringVar(&authEmail, "email", "", "Account email")
	registerCmd.Flags().StringVar(&authPassword, "password", "", "Account password (prompted when omitted)")
}

var stdin = bufio.NewReader(os.Stdin)

// orPrompt returns value, or a line read from stdin when value is empty.
func orPrompt(value, prompt string) string {
	if value != "" {
		return value
	}
	fmt.Fprint(os.Stderr, prompt)
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}
