package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and drain the offline mutation queue",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List pending mutations in send order",
		RunE:  runQueueList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "size",
		Short: "Print the number of pending mutations",
		RunE:  runQueueSize,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "drain",
		Short: "Replay pending mutations against the server",
		RunE:  runQueueDrain,
	})

	return cmd
}

// queueEntryOutput is the JSON schema for `queue list --json`.
type queueEntryOutput struct {
	ID        string `json:"id"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	CreatedAt int64  `json:"created_at"`
}

func runQueueList(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	entries := a.pending.Entries()

	if flagJSON {
		out := make([]queueEntryOutput, 0, len(entries))
		for _, e := range entries {
			out = append(out, queueEntryOutput{
				ID:        e.ID,
				Method:    e.Method,
				Path:      e.Path,
				CreatedAt: e.CreatedAt,
			})
		}

		return printJSON(out)
	}

	if len(entries) == 0 {
		fmt.Println("Queue is empty.")

		return nil
	}

	relative := stdoutIsTTY()
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{shortID(e.ID), e.Method, e.Path, formatAge(e.CreatedAt, relative)})
	}

	printTable(os.Stdout, []string{"ID", "METHOD", "PATH", "QUEUED"}, rows)

	return nil
}

func runQueueSize(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println(a.pending.Size())

	return nil
}

func runQueueDrain(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := newApp(logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.pending.Size() == 0 {
		statusf("Queue is empty.\n")

		return nil
	}

	if !a.watcher.Check(ctx) {
		return fmt.Errorf("server unreachable — queued mutations kept for later")
	}

	outcomes := a.client.DrainQueue(ctx)

	sent, dropped := 0, 0
	for _, o := range outcomes {
		if o.OK {
			sent++

			continue
		}

		dropped++
		fmt.Fprintf(os.Stderr, "rejected %s: %v\n", shortID(o.ID), o.Err)
	}

	statusf("Sent %d mutation(s), %d rejected, %d still pending.\n", sent, dropped, a.pending.Size())

	return nil
}

// shortID truncates a queue entry UUID for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}
