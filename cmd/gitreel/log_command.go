package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"gitreel/internal/commitlog"
	"gitreel/internal/daemon"
	"gitreel/internal/gitlog"
	"gitreel/internal/store"
)

func newLogCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "log <repository...>",
		Short: "Write the fused gource log of one or more repositories",
		Long: `Log extracts the commit history of each repository and writes the fused,
timestamp-ordered custom log that gource reads. Each argument may be a
registered repository ID, a registered name, or a path to a working tree.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var repos []gitlog.Repository
			if err := ctx.withStore(func(st *store.Store) error {
				repos, err = resolveRepositories(cmd.Context(), st, args)
				return err
			}); err != nil {
				return err
			}

			extractor, err := daemon.NewExtractor(cfg, ctx.cliLogger(cfg))
			if err != nil {
				return err
			}
			// Each repository is read in full so no path lock is held while
			// the fuser waits on another source.
			sources := make([]commitlog.Source, 0, len(repos))
			for _, repo := range repos {
				records, err := commitlog.Collect(extractor.Records(cmd.Context(), repo))
				if err != nil {
					return err
				}
				sources = append(sources, commitlog.Source{
					Prefix:  commitlog.Prefix(repo.Name),
					Records: commitlog.Slice(records),
				})
			}

			var stats commitlog.Stats
			if strings.TrimSpace(outputPath) != "" {
				stats, err = commitlog.WriteFile(outputPath, commitlog.Fuse(sources))
			} else {
				stats, err = commitlog.Write(cmd.OutOrStdout(), commitlog.Fuse(sources))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d records from %d repositories\n", stats.Count, len(repos))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the log to a file instead of stdout")
	return cmd
}

// resolveRepositories maps each argument to a registered repository by ID,
// name, or path, and treats unregistered directories as ad-hoc repositories.
func resolveRepositories(ctx context.Context, st *store.Store, args []string) ([]gitlog.Repository, error) {
	registered, err := st.ListRepositories(ctx)
	if err != nil {
		return nil, err
	}
	repos := make([]gitlog.Repository, 0, len(args))
	seen := make(map[string]string, len(args))
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		repo, err := resolveRepository(registered, arg)
		if err != nil {
			return nil, err
		}
		key := filepath.Clean(repo.Path)
		if first, dup := seen[key]; dup {
			return nil, fmt.Errorf("%q and %q name the same repository %s", first, arg, key)
		}
		seen[key] = arg
		repos = append(repos, repo)
	}
	return repos, nil
}

func resolveRepository(registered []gitlog.Repository, arg string) (gitlog.Repository, error) {
	if repo, ok := findRepository(registered, arg); ok {
		return repo, nil
	}
	path, err := absolutePath(arg)
	if err != nil {
		return gitlog.Repository{}, err
	}
	if repo, ok := findRepository(registered, path); ok {
		return repo, nil
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return gitlog.Repository{}, fmt.Errorf("%q is neither a registered repository nor a directory", arg)
	}
	return gitlog.Repository{ID: path, Name: filepath.Base(path), Path: path}, nil
}

func findRepository(repos []gitlog.Repository, key string) (gitlog.Repository, bool) {
	for _, r := range repos {
		if r.ID == key || r.Path == key || strings.EqualFold(r.Name, key) {
			return r, true
		}
	}
	return gitlog.Repository{}, false
}
