package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"gitreel/internal/config"
	"gitreel/internal/daemon"
	"gitreel/internal/gitlog"
	"gitreel/internal/store"
)

func newReposCommand(ctx *commandContext) *cobra.Command {
	reposCmd := &cobra.Command{
		Use:     "repos",
		Aliases: []string{"repo"},
		Short:   "Manage registered repositories",
	}

	reposCmd.AddCommand(newReposAddCommand(ctx))
	reposCmd.AddCommand(newReposListCommand(ctx))
	reposCmd.AddCommand(newReposRemoveCommand(ctx))

	return reposCmd
}

func newReposAddCommand(ctx *commandContext) *cobra.Command {
	var name string
	var branch string
	var skipValidate bool

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Register a local git working tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := absolutePath(args[0])
			if err != nil {
				return err
			}
			if !skipValidate {
				extractor, err := daemon.NewExtractor(cfg, ctx.cliLogger(cfg))
				if err != nil {
					return err
				}
				if err := extractor.Validate(cmd.Context(), path); err != nil {
					return err
				}
			}
			return ctx.withStore(func(st *store.Store) error {
				repo, err := st.AddRepository(cmd.Context(), gitlog.Repository{
					Name:   strings.TrimSpace(name),
					Path:   path,
					Branch: strings.TrimSpace(branch),
				})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, repositoryView(repo))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as %s (%s)\n", repo.Path, repo.Name, repo.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the directory name)")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to check out before extracting history")
	cmd.Flags().BoolVar(&skipValidate, "no-validate", false, "Skip the git working tree check")
	return cmd
}

func newReposListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered repositories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				repos, err := st.ListRepositories(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					views := make([]repoView, 0, len(repos))
					for _, r := range repos {
						views = append(views, repositoryView(r))
					}
					return writeJSON(cmd, views)
				}
				if len(repos) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No repositories registered")
					return nil
				}
				rows := make([][]string, 0, len(repos))
				for _, r := range repos {
					rows = append(rows, []string{r.ID, r.Name, r.Path, r.Branch})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Path", "Branch"}, rows, nil))
				return nil
			})
		},
	}
}

func newReposRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <repository-id>",
		Short: "Unregister a repository and drop it from projects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withStore(func(st *store.Store) error {
				if err := st.RemoveRepository(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed repository %s\n", id)
				return nil
			})
		},
	}
}

type repoView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Path   string `json:"path"`
	Branch string `json:"branch,omitempty"`
}

func repositoryView(r gitlog.Repository) repoView {
	return repoView{ID: r.ID, Name: r.Name, Path: r.Path, Branch: r.Branch}
}

func absolutePath(raw string) (string, error) {
	expanded, err := config.ExpandPath(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", raw, err)
	}
	return abs, nil
}

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project"},
		Short:   "Group repositories into named projects",
	}

	projectsCmd.AddCommand(&cobra.Command{
		Use:   "add <name> <repository-id...>",
		Short: "Create a project from registered repositories",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				project, err := st.AddProject(cmd.Context(), args[0], args[1:])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, project)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s) with %d repositories\n", project.Name, project.ID, len(project.RepositoryIDs))
				return nil
			})
		},
	})

	projectsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				projects, err := st.ListProjects(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, projects)
				}
				if len(projects) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No projects defined")
					return nil
				}
				rows := make([][]string, 0, len(projects))
				for _, p := range projects {
					_, repos, err := st.ProjectRepositories(cmd.Context(), p.ID)
					if err != nil {
						return err
					}
					names := make([]string, 0, len(repos))
					for _, r := range repos {
						names = append(names, r.Name)
					}
					rows = append(rows, []string{p.ID, p.Name, strings.Join(names, ", ")})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Repositories"}, rows, nil))
				return nil
			})
		},
	})

	return projectsCmd
}
