package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitreel/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tools and directory access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckSystem(cfg)
			dirs := deps.CheckDirectories(cfg)
			if ctx.jsonOutput() {
				return writeJSON(cmd, struct {
					Dependencies []deps.Status          `json:"dependencies"`
					Directories  []deps.DirectoryResult `json:"directories"`
				}{statuses, dirs})
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				state := "ok"
				switch {
				case !s.Available && s.Optional:
					state = "missing (optional)"
				case !s.Available:
					state = "missing"
				}
				rows = append(rows, []string{s.Name, s.Command, state, s.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Dependency", "Command", "State", "Detail"}, rows, nil))

			dirRows := make([][]string, 0, len(dirs))
			for _, d := range dirs {
				state := "ok"
				if !d.Passed {
					state = "failed"
				}
				dirRows = append(dirRows, []string{d.Name, d.Path, state, d.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Directory", "Path", "State", "Detail"}, dirRows, nil))

			if missing := deps.Missing(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required dependencies missing", len(missing))
			}
			return nil
		},
	}
}
