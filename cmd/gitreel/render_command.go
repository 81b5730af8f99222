package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"gitreel/internal/api"
	"gitreel/internal/daemon"
	"gitreel/internal/encodeargs"
	"gitreel/internal/jobs"
	"gitreel/internal/store"
)

const progressInterval = 500 * time.Millisecond

type renderFlags struct {
	project     string
	repos       []string
	name        string
	profile     string
	interactive bool
	remote      bool
	fadeIn      float64
	fadeOut     float64
	audio       string
	volume      float64
	quality     string
	title       string
}

func (f renderFlags) request() api.RenderRequest {
	req := api.RenderRequest{
		ProjectID:     strings.TrimSpace(f.project),
		RepositoryIDs: f.repos,
		ProjectName:   strings.TrimSpace(f.name),
		ProfileID:     strings.TrimSpace(f.profile),
		Interactive:   f.interactive,
		PostProcess: encodeargs.PostProcess{
			Fade:    encodeargs.Fade{In: f.fadeIn, Out: f.fadeOut},
			Quality: encodeargs.Quality(strings.ToLower(strings.TrimSpace(f.quality))),
		},
	}
	if audio := strings.TrimSpace(f.audio); audio != "" {
		req.PostProcess.Audio = &encodeargs.Audio{File: audio}
		if f.volume > 0 {
			volume := f.volume
			req.PostProcess.Audio.Volume = &volume
		}
	}
	if title := strings.TrimSpace(f.title); title != "" {
		req.PostProcess.Title = &encodeargs.Title{Text: title}
	}
	return req
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a project or set of repositories",
		Long: `Render fuses the commit history of a project (or of the given repositories),
runs gource, and encodes the frames with ffmpeg.

By default the render runs in this process and the command waits for it to
finish. Use --remote to hand the render to a running daemon instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := flags.request()
			if req.ProjectID == "" && len(req.RepositoryIDs) == 0 {
				return errors.New("pass --project or at least one --repo")
			}
			if flags.remote {
				return submitRemote(cmd, ctx, req)
			}
			return renderLocal(cmd, ctx, req)
		},
	}

	cmd.Flags().StringVarP(&flags.project, "project", "p", "", "Project ID or name to render")
	cmd.Flags().StringSliceVarP(&flags.repos, "repo", "r", nil, "Repository ID to render (repeatable)")
	cmd.Flags().StringVar(&flags.name, "name", "", "Project name used in titles and output file names")
	cmd.Flags().StringVar(&flags.profile, "profile", "", "Render profile ID (defaults to render.default_profile)")
	cmd.Flags().BoolVarP(&flags.interactive, "interactive", "i", false, "Open a gource window instead of encoding a video")
	cmd.Flags().BoolVar(&flags.remote, "remote", false, "Submit the render to the running daemon")
	cmd.Flags().Float64Var(&flags.fadeIn, "fade-in", 0, "Fade-in duration in seconds")
	cmd.Flags().Float64Var(&flags.fadeOut, "fade-out", 0, "Fade-out duration in seconds")
	cmd.Flags().StringVar(&flags.audio, "audio", "", "Music file in the audio directory to overlay")
	cmd.Flags().Float64Var(&flags.volume, "volume", 0, "Music volume as a linear gain")
	cmd.Flags().StringVar(&flags.quality, "quality", "", "Encoder quality preset: low, medium, or high")
	cmd.Flags().StringVar(&flags.title, "title", "", "Caption drawn over the opening seconds")
	return cmd
}

func submitRemote(cmd *cobra.Command, ctx *commandContext, req api.RenderRequest) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	client, err := ctx.apiClient()
	if err != nil {
		return err
	}
	job, err := client.SubmitRender(cmd.Context(), req)
	if err != nil {
		return wrapClientError(err, cfg)
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, job)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s (%s)\n", job.ID, jobLabel(job))
	return nil
}

func renderLocal(cmd *cobra.Command, ctx *commandContext, req api.RenderRequest) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	d, err := daemon.New(cfg, st, ctx.cliLogger(cfg))
	if err != nil {
		st.Close()
		return fmt.Errorf("create render services: %w", err)
	}
	defer d.Close()

	signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	job, err := d.Submit(signalCtx, req)
	if err != nil {
		if job.ID != "" && ctx.jsonOutput() {
			_ = writeJSON(cmd, job)
		}
		return err
	}

	done, err := followJob(signalCtx, cmd.ErrOrStderr(), d, job.ID)
	if errors.Is(err, context.Canceled) {
		d.Cancel(context.Background(), job.ID)
		done, err = d.Wait(context.Background(), job.ID)
	}
	if err != nil {
		return err
	}

	if ctx.jsonOutput() {
		if err := writeJSON(cmd, done); err != nil {
			return err
		}
	} else {
		printJobDetail(cmd.OutOrStdout(), done)
	}
	switch done.Status {
	case jobs.StatusCompleted:
		return nil
	case jobs.StatusCancelled:
		return fmt.Errorf("render cancelled")
	default:
		return fmt.Errorf("render failed: %s", done.ErrorMessage)
	}
}

type jobSource interface {
	Job(ctx context.Context, id string) (jobs.Job, error)
}

// followJob prints progress until the job reaches a terminal status. On a
// terminal the line is redrawn in place.
func followJob(ctx context.Context, out io.Writer, src jobSource, id string) (jobs.Job, error) {
	inPlace := false
	if f, ok := out.(*os.File); ok {
		inPlace = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	var lastLine string
	for {
		job, err := src.Job(context.WithoutCancel(ctx), id)
		if err != nil {
			return jobs.Job{}, err
		}
		line := fmt.Sprintf("%s %-9s %5.1f%%", shortID(job.ID), job.Status, job.ProgressPercent)
		if line != lastLine {
			if inPlace {
				fmt.Fprintf(out, "\r%s", line)
			} else {
				fmt.Fprintln(out, line)
			}
			lastLine = line
		}
		if job.Status.Terminal() {
			if inPlace {
				fmt.Fprintln(out)
			}
			return job, nil
		}
		select {
		case <-ctx.Done():
			if inPlace {
				fmt.Fprintln(out)
			}
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}
