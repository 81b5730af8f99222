package encodeargs_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"gitreel/internal/encodeargs"
	"gitreel/internal/services"
)

func TestBuildDefaults(t *testing.T) {
	args, err := encodeargs.Build(encodeargs.Options{FrameRate: 30, OutputPath: "/out/demo.mp4"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{
		"-y", "-r", "30", "-f", "image2pipe", "-vcodec", "ppm", "-i", "-",
		"-c:v", "libx264", "-preset", "medium", "-crf", "23", "-pix_fmt", "yuv420p", "-r", "30",
		"/out/demo.mp4",
	}
	if !slices.Equal(args, want) {
		t.Fatalf("args = %q\nwant %q", args, want)
	}
}

func TestBuildQualityPresets(t *testing.T) {
	cases := []struct {
		quality encodeargs.Quality
		preset  string
		crf     string
	}{
		{encodeargs.QualityLow, "fast", "28"},
		{encodeargs.QualityMedium, "medium", "23"},
		{encodeargs.QualityHigh, "medium", "20"},
		{"HIGH", "medium", "20"},
	}
	for _, tc := range cases {
		args, err := encodeargs.Build(encodeargs.Options{
			FrameRate:  60,
			OutputPath: "out.mp4",
			Post:       encodeargs.PostProcess{Quality: tc.quality},
		})
		if err != nil {
			t.Fatalf("%s: %v", tc.quality, err)
		}
		joined := strings.Join(args, " ")
		if !strings.Contains(joined, "-preset "+tc.preset+" -crf "+tc.crf) {
			t.Fatalf("%s: args = %s", tc.quality, joined)
		}
	}

	_, err := encodeargs.Build(encodeargs.Options{
		FrameRate:  60,
		OutputPath: "out.mp4",
		Post:       encodeargs.PostProcess{Quality: "ultra"},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildFadeAndAudio(t *testing.T) {
	dir := t.TempDir()
	track := filepath.Join(dir, "theme.mp3")
	if err := os.WriteFile(track, []byte("id3"), 0o644); err != nil {
		t.Fatal(err)
	}
	volume := 0.5
	args, err := encodeargs.Build(encodeargs.Options{
		FrameRate:  60,
		OutputPath: "out.mp4",
		Duration:   60,
		AudioDir:   dir,
		Post: encodeargs.PostProcess{
			Audio:   &encodeargs.Audio{File: "theme.mp3", Volume: &volume},
			Fade:    encodeargs.Fade{In: 2, Out: 3},
			Quality: encodeargs.QualityLow,
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	joined := strings.Join(args, " ")
	realTrack, _ := filepath.EvalSymlinks(track)
	for _, want := range []string{
		"-i - -i " + realTrack,
		"-vf fade=t=in:st=0:d=2,fade=t=out:st=57:d=3",
		"-map 0:v -map 1:a -af afade=t=in:st=0:d=2,afade=t=out:st=57:d=3,volume=0.5",
		"-c:a aac -b:a 128k -shortest out.mp4",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("missing %q in %s", want, joined)
		}
	}
}

func TestBuildFadeOutNeedsDuration(t *testing.T) {
	args, err := encodeargs.Build(encodeargs.Options{
		FrameRate:  25,
		OutputPath: "out.mp4",
		Post:       encodeargs.PostProcess{Fade: encodeargs.Fade{In: 1, Out: 1}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "t=out") || !strings.Contains(joined, "fade=t=in:st=0:d=1") {
		t.Fatalf("args = %s", joined)
	}
}

func TestResolveAudioPathRejectsEscapes(t *testing.T) {
	root := t.TempDir()
	audioDir := filepath.Join(root, "audio")
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(root, "secret.mp3")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(audioDir, "link.mp3")); err != nil {
		t.Fatal(err)
	}

	for _, file := range []string{"../secret.mp3", outside, "link.mp3", "missing.mp3", "."} {
		if _, err := encodeargs.ResolveAudioPath(audioDir, file); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("%s: expected validation error, got %v", file, err)
		}
	}
	if _, err := encodeargs.ResolveAudioPath("", "x.mp3"); err == nil {
		t.Fatal("expected error without audio dir")
	}
}

func TestTitleOverlayEscapesText(t *testing.T) {
	args, err := encodeargs.Build(encodeargs.Options{
		FrameRate:  60,
		OutputPath: "out.mp4",
		Post: encodeargs.PostProcess{Title: &encodeargs.Title{
			Text:     "it's 100%: a,b\nnext",
			Color:    "#ff8800",
			Duration: 5,
		}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	idx := slices.Index(args, "-vf")
	if idx < 0 {
		t.Fatalf("no video filter in %q", args)
	}
	filter := args[idx+1]
	want := `drawtext=text=it\'s 100\%\: a\,b next:fontcolor=0xff8800:fontsize=48:x=(w-text_w)/2:y=h*0.1:enable=between(t\,0\,5)`
	if filter != want {
		t.Fatalf("filter = %s\nwant     %s", filter, want)
	}

	_, err = encodeargs.Build(encodeargs.Options{
		FrameRate:  60,
		OutputPath: "out.mp4",
		Post:       encodeargs.PostProcess{Title: &encodeargs.Title{Text: "x", Color: "red;rm"}},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for color, got %v", err)
	}
}

func TestBuildRejectsBadOptions(t *testing.T) {
	if _, err := encodeargs.Build(encodeargs.Options{OutputPath: "x.mp4"}); err == nil {
		t.Fatal("expected frame rate error")
	}
	if _, err := encodeargs.Build(encodeargs.Options{FrameRate: 60}); err == nil {
		t.Fatal("expected output path error")
	}
	_, err := encodeargs.Build(encodeargs.Options{
		FrameRate:  60,
		OutputPath: "x.mp4",
		Post:       encodeargs.PostProcess{Fade: encodeargs.Fade{In: -1}},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
