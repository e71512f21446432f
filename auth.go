package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prrathnayake/stock-system-sub001/internal/api"
)

func newLoginCmd() *cobra.Command {
	var email, password, organization string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the stock system server",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runLogin(email, password, organization)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted if omitted)")
	cmd.Flags().StringVar(&organization, "org", "", "organization slug (defaults to config)")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the saved session",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the authenticated user",
		RunE:  runWhoami,
	}
}

func runLogin(email, password, organization string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if organization == "" {
		organization = a.cfg.Organization
	}

	if email == "" {
		return fmt.Errorf("--email is required")
	}

	if password == "" {
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	user, err := a.client.Login(ctx, organization, email, password)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrBadCredentials):
			return fmt.Errorf("invalid credentials")
		case errors.Is(err, api.ErrTransport):
			return fmt.Errorf("server unreachable — login requires connectivity")
		}

		return err
	}

	logger.Info("login successful", "email", email, "organization", organization)
	statusf("Logged in as %s (%s).\n", user.Name, user.Email)

	return nil
}

// promptPassword reads the password from stdin. The prompt is only printed
// on a terminal so piped input stays clean.
func promptPassword() (string, error) {
	if isStdinTTY() {
		fmt.Fprint(os.Stderr, "Password: ")
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("empty password")
	}

	return password, nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	a.client.Logout()

	logger.Info("logout successful")
	statusf("Logged out.\n")

	return nil
}

func runWhoami(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	user := a.client.CurrentUser()
	if user == nil {
		return fmt.Errorf("not logged in — run 'stockctl login' first")
	}

	if flagJSON {
		return printJSON(user)
	}

	fmt.Printf("User:  %s (%s)\n", user.Name, user.Email)
	fmt.Printf("Org:   %s\n", user.Organization)
	fmt.Printf("Role:  %s\n", user.Role)

	return nil
}
