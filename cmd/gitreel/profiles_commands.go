package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gitreel/internal/profile"
	"gitreel/internal/store"
)

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"profile"},
		Short:   "Manage render profiles",
	}

	profilesCmd.AddCommand(newProfilesListCommand(ctx))
	profilesCmd.AddCommand(newProfilesShowCommand(ctx))
	profilesCmd.AddCommand(newProfilesImportCommand(ctx))
	profilesCmd.AddCommand(newProfilesExportCommand(ctx))
	profilesCmd.AddCommand(newProfilesDeleteCommand(ctx))

	return profilesCmd
}

func newProfilesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List system and custom profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				profiles, err := st.ListProfiles(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, profiles)
				}
				rows := make([][]string, 0, len(profiles))
				for _, p := range profiles {
					rows = append(rows, []string{p.ID, p.Name, yesNo(p.System), fmt.Sprintf("%d", len(p.Settings)), p.Description})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Name", "System", "Settings", "Description"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newProfilesShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <profile-id>",
		Short: "Show a profile's settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				p, err := st.GetProfile(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, p)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Profile: %s (%s)\n", p.ID, p.Name)
				if p.Description != "" {
					fmt.Fprintf(out, "%s\n", p.Description)
				}
				rows := make([][]string, 0, len(p.Settings))
				for _, s := range p.Settings {
					rows = append(rows, []string{s.Name, s.Value.Kind.String(), s.Value.Text()})
				}
				fmt.Fprintln(out, renderTable([]string{"Setting", "Kind", "Value"}, rows, nil))
				return nil
			})
		},
	}
}

func newProfilesImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create or replace custom profiles from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader
			if args[0] == "-" {
				in = cmd.InOrStdin()
			} else {
				f, openErr := os.Open(args[0])
				if openErr != nil {
					return fmt.Errorf("open profile file: %w", openErr)
				}
				defer f.Close()
				in = f
			}
			profiles, err := profile.Decode(in)
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				for _, p := range profiles {
					if err := st.SaveProfile(cmd.Context(), p); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Imported profile %s\n", p.ID)
				}
				return nil
			})
		},
	}
}

func newProfilesExportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export [profile-id...]",
		Short: "Write profiles as YAML (all custom profiles when none are named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				selected, err := selectProfiles(cmd, st, args)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if strings.TrimSpace(outputPath) != "" {
					f, err := os.Create(outputPath)
					if err != nil {
						return fmt.Errorf("create export file: %w", err)
					}
					defer f.Close()
					out = f
				}
				return profile.Encode(out, selected)
			})
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func selectProfiles(cmd *cobra.Command, st *store.Store, ids []string) ([]profile.Profile, error) {
	if len(ids) > 0 {
		selected := make([]profile.Profile, 0, len(ids))
		for _, id := range ids {
			p, err := st.GetProfile(cmd.Context(), strings.TrimSpace(id))
			if err != nil {
				return nil, err
			}
			selected = append(selected, p)
		}
		return selected, nil
	}
	all, err := st.ListProfiles(cmd.Context())
	if err != nil {
		return nil, err
	}
	var custom []profile.Profile
	for _, p := range all {
		if !p.System {
			custom = append(custom, p)
		}
	}
	return custom, nil
}

func newProfilesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <profile-id>",
		Short: "Delete a custom profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withStore(func(st *store.Store) error {
				if err := st.DeleteProfile(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", id)
				return nil
			})
		},
	}
}
