package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity, session, and pending queue state",
		RunE:  runStatus,
	}
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	Server   string `json:"server"`
	Online   bool   `json:"online"`
	LoggedIn bool   `json:"logged_in"`
	User     string `json:"user,omitempty"`
	Pending  int    `json:"pending"`
}

func runStatus(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	out := statusOutput{
		Server:  a.cfg.ServerURL,
		Online:  a.watcher.Check(ctx),
		Pending: a.pending.Size(),
	}

	if user := a.client.CurrentUser(); user != nil {
		out.LoggedIn = true
		out.User = fmt.Sprintf("%s (%s)", user.Name, user.Email)
	}

	if flagJSON {
		return printJSON(out)
	}

	connectivity := "offline"
	if out.Online {
		connectivity = "online"
	}

	session := "not logged in"
	if out.LoggedIn {
		session = out.User
	}

	fmt.Printf("Server:  %s (%s)\n", out.Server, connectivity)
	fmt.Printf("Session: %s\n", session)
	fmt.Printf("Pending: %d queued mutation(s)\n", out.Pending)

	if out.Pending > 0 && out.Online {
		statusf("Run 'stockctl queue drain' to send pending mutations.\n")
	}

	return nil
}
