package gourceargs_test

import (
	"slices"
	"strings"
	"testing"
	"time"

	"gitreel/internal/gourceargs"
	"gitreel/internal/profile"
)

const day = 86400

var fixedNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func baseContext() gourceargs.Context {
	return gourceargs.Context{
		LogPath:        "/tmp/gitreel/job.log",
		ProjectName:    "demo",
		FirstTimestamp: 1_700_000_000,
		LastTimestamp:  1_700_000_000 + 30*day,
		HasSpan:        true,
		Now:            fixedNow,
	}
}

func hasPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestCompileBooleanFlagsAndOrder(t *testing.T) {
	settings := profile.Settings{
		{Name: "resolution", Value: profile.String("1280x720")},
		{Name: "bloom", Value: profile.Bool(true)},
		{Name: "key", Value: profile.Bool(false)},
	}
	res, err := gourceargs.Compile(settings, baseContext())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := []string{
		"/tmp/gitreel/job.log",
		"--viewport", "1280x720",
		"--bloom",
		"--output-framerate", "60",
		"--log-format", "custom",
	}
	if !slices.Equal(res.Args, want) {
		t.Fatalf("args = %q, want %q", res.Args, want)
	}
	for _, arg := range res.Args {
		if strings.Contains(arg, "key") {
			t.Fatalf("unexpected key token %q in %q", arg, res.Args)
		}
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	defaults, err := profile.Defaults()
	if err != nil {
		t.Fatalf("Defaults: %v", err)
	}
	settings := defaults.Merge(profile.Settings{
		{Name: "secondsPerDay", Value: profile.Auto(60)},
		{Name: "startDate", Value: profile.Relative(7)},
	})
	first, err := gourceargs.Compile(settings, baseContext())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	for range 5 {
		again, err := gourceargs.Compile(settings, baseContext())
		if err != nil {
			t.Fatalf("Compile: %v", err)
		}
		if !slices.Equal(first.Args, again.Args) {
			t.Fatalf("args differ between runs:\n%q\n%q", first.Args, again.Args)
		}
	}
	if first.Args[0] != "/tmp/gitreel/job.log" {
		t.Fatalf("first token = %q", first.Args[0])
	}
	if v, _ := settings.Get("secondsPerDay"); v.Kind != profile.AutoDuration {
		t.Fatalf("Compile mutated its input: %+v", v)
	}
}

func TestCompileAutoSpeed(t *testing.T) {
	settings := profile.Settings{{Name: "secondsPerDay", Value: profile.Auto(60)}}

	res, err := gourceargs.Compile(settings, baseContext())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.SecondsPerDay != 2 {
		t.Fatalf("seconds per day = %v, want 2", res.SecondsPerDay)
	}
	if !hasPair(res.Args, "-s", "2") {
		t.Fatalf("missing -s 2 in %q", res.Args)
	}
	if res.PlaybackSeconds < 59.99 || res.PlaybackSeconds > 60.01 {
		t.Fatalf("playback = %v, want about 60", res.PlaybackSeconds)
	}

	zero := baseContext()
	zero.LastTimestamp = zero.FirstTimestamp
	res, err = gourceargs.Compile(settings, zero)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.SecondsPerDay != gourceargs.DefaultSecondsPerDay || !hasPair(res.Args, "-s", "1") {
		t.Fatalf("zero span: spd=%v args=%q", res.SecondsPerDay, res.Args)
	}

	unknown := baseContext()
	unknown.HasSpan = false
	res, err = gourceargs.Compile(settings, unknown)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !hasPair(res.Args, "-s", "1") {
		t.Fatalf("unknown span: args=%q", res.Args)
	}
}

func TestCompileRelativeDateClampsSpan(t *testing.T) {
	ctx := baseContext()
	ctx.FirstTimestamp = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).Unix()
	ctx.LastTimestamp = time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC).Unix()
	settings := profile.Settings{
		{Name: "startDate", Value: profile.Relative(7)},
		{Name: "secondsPerDay", Value: profile.Auto(70)},
	}
	res, err := gourceargs.Compile(settings, ctx)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.StartDate != "2024-03-08 00:00:00" {
		t.Fatalf("start date = %q", res.StartDate)
	}
	if !hasPair(res.Args, "--start-date", "2024-03-08 00:00:00") {
		t.Fatalf("missing start date in %q", res.Args)
	}
	if !hasPair(res.Args, "-s", "10") {
		t.Fatalf("speed should use the clamped span: %q", res.Args)
	}
}

func TestCompileRelativeDateNeedsNow(t *testing.T) {
	ctx := baseContext()
	ctx.Now = time.Time{}
	settings := profile.Settings{{Name: "startDate", Value: profile.Relative(7)}}
	if _, err := gourceargs.Compile(settings, ctx); err == nil {
		t.Fatal("expected error without a current time")
	}
}

func TestCompilePlainDateGetsMidnight(t *testing.T) {
	settings := profile.Settings{{Name: "stopDate", Value: profile.String("2024-02-01")}}
	res, err := gourceargs.Compile(settings, baseContext())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !hasPair(res.Args, "--stop-date", "2024-02-01 00:00:00") {
		t.Fatalf("args = %q", res.Args)
	}
}

func TestCompileTitleInterpolation(t *testing.T) {
	settings := profile.Settings{
		{Name: "secondsPerDay", Value: profile.Auto(60)},
		{Name: "title", Value: profile.Bool(true)},
		{Name: "titleText", Value: profile.String("{projectName} - Full History ({duration} min)")},
	}
	res, err := gourceargs.Compile(settings, baseContext())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !hasPair(res.Args, "--title", "demo - Full History (1.0 min)") {
		t.Fatalf("args = %q", res.Args)
	}
	if slices.Contains(res.Args, "--title-text") {
		t.Fatalf("titleText leaked as a flag: %q", res.Args)
	}
}

func TestCompileSystemProfileTitles(t *testing.T) {
	profiles, err := profile.SystemProfiles()
	if err != nil {
		t.Fatalf("SystemProfiles: %v", err)
	}
	for _, p := range profiles {
		res, err := gourceargs.Compile(p.Settings, baseContext())
		if err != nil {
			t.Fatalf("%s: Compile: %v", p.ID, err)
		}
		i := slices.Index(res.Args, "--title")
		if i < 0 || i+1 >= len(res.Args) {
			t.Fatalf("%s: no title in %q", p.ID, res.Args)
		}
		title := res.Args[i+1]
		if !strings.HasPrefix(title, "demo - ") || !strings.HasSuffix(title, " min)") || strings.Contains(title, "{") {
			t.Fatalf("%s: title = %q", p.ID, title)
		}
	}
}

func TestCompileTitleDisabledHides(t *testing.T) {
	settings := profile.Settings{
		{Name: "title", Value: profile.Bool(false)},
		{Name: "titleText", Value: profile.String("{projectName}")},
	}
	res, err := gourceargs.Compile(settings, baseContext())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if slices.Contains(res.Args, "--title") {
		t.Fatalf("title should be omitted: %q", res.Args)
	}
	if !hasPair(res.Args, "--hide", "title") {
		t.Fatalf("args = %q", res.Args)
	}
}

func TestCompileHideBooleansOverrideList(t *testing.T) {
	settings := profile.Settings{
		{Name: "resolution", Value: profile.String("1920x1080")},
		{Name: "hide", Value: profile.List("date", "filenames")},
		{Name: "hideMouse", Value: profile.Bool(true)},
		{Name: "hideFilenames", Value: profile.Bool(false)},
		{Name: "stopAtEnd", Value: profile.Bool(true)},
	}
	res, err := gourceargs.Compile(settings, baseContext())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := []string{
		"/tmp/gitreel/job.log",
		"--viewport", "1920x1080",
		"--hide", "date,mouse",
		"--stop-at-end",
		"--output-framerate", "60",
		"--log-format", "custom",
	}
	if !slices.Equal(res.Args, want) {
		t.Fatalf("args = %q, want %q", res.Args, want)
	}
}

func TestCompileCameraModeCoercion(t *testing.T) {
	settings := profile.Settings{{Name: "cameraMode", Value: profile.String("spiral")}}
	res, err := gourceargs.Compile(settings, baseContext())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !hasPair(res.Args, "--camera-mode", "overview") {
		t.Fatalf("args = %q", res.Args)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "spiral") {
		t.Fatalf("warnings = %q", res.Warnings)
	}

	settings = profile.Settings{{Name: "cameraMode", Value: profile.String("Track")}}
	res, err = gourceargs.Compile(settings, baseContext())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !hasPair(res.Args, "--camera-mode", "track") || len(res.Warnings) != 0 {
		t.Fatalf("args = %q warnings = %q", res.Args, res.Warnings)
	}
}

func TestCompileValueMapping(t *testing.T) {
	settings := profile.Settings{
		{Name: "background", Value: profile.String("#112233")},
		{Name: "fontScale", Value: profile.Number(1.5)},
		{Name: "showFilenamesOnly", Value: profile.String("yes")},
		{Name: "fileFilter", Value: profile.String("")},
		{Name: "extraArgs", Value: profile.String("--no-vsync  --font-size 20")},
	}
	res, err := gourceargs.Compile(settings, baseContext())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := []string{
		"/tmp/gitreel/job.log",
		"-b", "112233",
		"--font-scale", "1.5",
		"--show-filenames-only", "yes",
		"--output-framerate", "60",
		"--no-vsync", "--font-size", "20",
		"--log-format", "custom",
	}
	if !slices.Equal(res.Args, want) {
		t.Fatalf("args = %q, want %q", res.Args, want)
	}
}

func TestCompileInteractiveOmitsOutputFlags(t *testing.T) {
	ctx := baseContext()
	ctx.Interactive = true
	settings := profile.Settings{{Name: "framerate", Value: profile.Number(30)}}
	res, err := gourceargs.Compile(settings, ctx)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.FrameRate != 30 {
		t.Fatalf("frame rate = %d", res.FrameRate)
	}
	if slices.Contains(res.Args, "--output-framerate") {
		t.Fatalf("args = %q", res.Args)
	}
}

func TestCompileUserImageDir(t *testing.T) {
	ctx := baseContext()
	ctx.AvatarDir = "/var/cache/avatars"
	settings := profile.Settings{{Name: "useUserImageDir", Value: profile.Bool(true)}}
	res, err := gourceargs.Compile(settings, ctx)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !hasPair(res.Args, "--user-image-dir", "/var/cache/avatars") {
		t.Fatalf("args = %q", res.Args)
	}
}

func TestCompileRequiresLogPath(t *testing.T) {
	if _, err := gourceargs.Compile(nil, gourceargs.Context{}); err == nil {
		t.Fatal("expected error for missing log path")
	}
}

func TestFormatSpeed(t *testing.T) {
	cases := map[float64]string{
		2:        "2",
		1.5:      "1.5",
		0.123456: "0.1235",
		0.0001:   "0.0001",
	}
	for in, want := range cases {
		if got := gourceargs.FormatSpeed(in); got != want {
			t.Errorf("FormatSpeed(%v) = %q, want %q", in, got, want)
		}
	}
}
