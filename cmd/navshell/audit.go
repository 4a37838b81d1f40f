package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/vidyasagar/navshell/internal/storage"
)

func newAuditCmd(opts *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent agent commands",
		Long: `Lists the most recent agent commands recorded in the audit log, newest
first. Commands are recorded when an agent transport is enabled and
agent.audit is set in the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := storage.DataDir()
			if err != nil {
				return err
			}
			db, err := storage.OpenDB(dir)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := storage.NewAuditLog(db).Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printAudit(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func printAudit(w io.Writer, entries []storage.AuditEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No agent commands recorded.")
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "TRANSPORT", "COMMAND", "RESULT", "LOCATION", "TOOK")
	for _, e := range entries {
		cmd := e.Command
		if e.Argument != "" {
			cmd += " " + e.Argument
		}
		result := "ok"
		if !e.OK {
			result = e.Error
		}
		t.Row(
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			e.Transport,
			cmd,
			result,
			e.Location,
			strconv.FormatInt(e.Duration.Milliseconds(), 10)+"ms",
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
