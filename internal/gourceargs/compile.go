package gourceargs

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gitreel/internal/profile"
)

const (
	// DefaultFrameRate is used when a profile carries no frame rate.
	DefaultFrameRate = 60
	// DefaultSecondsPerDay is used when auto speed cannot be derived from the log span.
	DefaultSecondsPerDay = 1.0
	// CompressionFactor scales spanDays × secondsPerDay into playback seconds.
	CompressionFactor = 1.0

	secondsInDay   = 86400
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

var (
	cameraModes   = map[string]bool{"overview": true, "track": true}
	defaultCamera = "overview"
	plainDate     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Context carries values that are not stored in a profile.
type Context struct {
	// LogPath is the fused log file handed to the renderer.
	LogPath     string
	ProjectName string
	// FirstTimestamp and LastTimestamp bound the fused log. HasSpan reports
	// whether they are known.
	FirstTimestamp int64
	LastTimestamp  int64
	HasSpan        bool
	Now            time.Time
	// AvatarDir is used when useUserImageDir is enabled.
	AvatarDir string
	// Interactive omits output-only flags.
	Interactive bool
}

// Result is a compiled renderer invocation.
type Result struct {
	Args          []string
	Warnings      []string
	SecondsPerDay float64
	FrameRate     int
	// PlaybackSeconds is the expected video length, zero when unknown.
	PlaybackSeconds float64
	StartDate       string
}

// Compile turns profile settings into the renderer argument vector.
func Compile(settings profile.Settings, ctx Context) (Result, error) {
	if strings.TrimSpace(ctx.LogPath) == "" {
		return Result{}, errors.New("gourceargs: log path is required")
	}
	resolved := settings.Clone()
	res := Result{FrameRate: DefaultFrameRate}

	var err error
	if resolved, err = resolveRelativeDates(resolved, ctx.Now); err != nil {
		return Result{}, err
	}
	if v, ok := resolved.Get(settingStartDate); ok {
		res.StartDate = v.Text()
	}

	span, hasSpan := effectiveSpan(ctx, res.StartDate)
	resolved, res.SecondsPerDay = resolveSpeed(resolved, span, hasSpan)
	res.PlaybackSeconds = playbackSeconds(span, hasSpan, res.SecondsPerDay)
	resolved = interpolateTitles(resolved, ctx.ProjectName, res.PlaybackSeconds/60)

	e := emitter{ctx: ctx, hide: collectHidden(resolved)}
	e.titleOn, e.titleText = titleState(resolved)
	e.args = append(e.args, ctx.LogPath)
	for _, s := range resolved {
		e.emit(s, &res)
	}
	if !e.sawFramerate && !ctx.Interactive {
		e.args = append(e.args, "--output-framerate", strconv.Itoa(res.FrameRate))
	}
	if !e.sawHide && len(e.hide) > 0 {
		e.args = append(e.args, "--hide", strings.Join(e.hide, ","))
	}
	e.args = append(e.args, e.extra...)
	e.args = append(e.args, "--log-format", "custom")

	res.Args = e.args
	res.Warnings = e.warnings
	return res, nil
}

func resolveRelativeDates(settings profile.Settings, now time.Time) (profile.Settings, error) {
	for i, s := range settings {
		switch {
		case s.Value.Kind == profile.RelativeDate:
			if now.IsZero() {
				return nil, fmt.Errorf("gourceargs: %s is relative but no current time was given", s.Name)
			}
			day := now.AddDate(0, 0, -s.Value.Amount)
			settings[i].Value = profile.String(day.Format(dateLayout) + " 00:00:00")
		case s.Value.Kind == profile.Literal:
			if text, ok := s.Value.Lit.(string); ok && plainDate.MatchString(strings.TrimSpace(text)) {
				settings[i].Value = profile.String(strings.TrimSpace(text) + " 00:00:00")
			}
		}
	}
	return settings, nil
}

// effectiveSpan is the log span in seconds, starting no earlier than startDate.
func effectiveSpan(ctx Context, startDate string) (int64, bool) {
	if !ctx.HasSpan {
		return 0, false
	}
	first := ctx.FirstTimestamp
	if startDate != "" {
		loc := ctx.Now.Location()
		if ctx.Now.IsZero() {
			loc = time.Local
		}
		if start, err := time.ParseInLocation(dateTimeLayout, startDate, loc); err == nil && start.Unix() > first {
			first = start.Unix()
		}
	}
	return ctx.LastTimestamp - first, true
}

func resolveSpeed(settings profile.Settings, span int64, hasSpan bool) (profile.Settings, float64) {
	speed := DefaultSecondsPerDay
	for i, s := range settings {
		if s.Value.Kind == profile.AutoDuration {
			spd := AutoSecondsPerDay(s.Value.Amount, span, hasSpan)
			settings[i].Value = profile.String(FormatSpeed(spd))
			if s.Name == settingSpeed {
				speed = spd
			}
			continue
		}
		if s.Name == settingSpeed {
			if n, err := strconv.ParseFloat(s.Value.Text(), 64); err == nil && n > 0 {
				speed = n
			}
		}
	}
	return settings, speed
}

// AutoSecondsPerDay returns the seconds-per-day that plays span seconds of
// history in roughly target seconds.
func AutoSecondsPerDay(target int, span int64, hasSpan bool) float64 {
	if !hasSpan || span <= 0 || target <= 0 {
		return DefaultSecondsPerDay
	}
	days := math.Max(float64(span)/secondsInDay, 1.0/secondsInDay)
	spd := float64(target) * CompressionFactor / days
	if spd < 0.0001 {
		spd = 0.0001
	}
	return spd
}

// FormatSpeed renders a speed with at most four decimals.
func FormatSpeed(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func playbackSeconds(span int64, hasSpan bool, spd float64) float64 {
	if !hasSpan || span <= 0 {
		return 0
	}
	days := math.Max(float64(span)/secondsInDay, 1.0/secondsInDay)
	return days * spd / CompressionFactor
}

func interpolateTitles(settings profile.Settings, project string, minutes float64) profile.Settings {
	duration := strconv.FormatFloat(minutes, 'f', 1, 64)
	for i, s := range settings {
		text, ok := s.Value.Lit.(string)
		if s.Value.Kind != profile.Literal || !ok {
			continue
		}
		if !strings.Contains(text, "{projectName}") && !strings.Contains(text, "{duration}") {
			continue
		}
		text = strings.ReplaceAll(text, "{projectName}", project)
		text = strings.ReplaceAll(text, "{duration}", duration)
		settings[i].Value = profile.String(text)
	}
	return settings
}

// collectHidden merges the hide list with explicit hideX booleans. The
// booleans win over the list.
func collectHidden(settings profile.Settings) []string {
	var hidden []string
	add := func(name string) {
		for _, h := range hidden {
			if h == name {
				return
			}
		}
		hidden = append(hidden, name)
	}
	remove := func(name string) {
		for i, h := range hidden {
			if h == name {
				hidden = append(hidden[:i], hidden[i+1:]...)
				return
			}
		}
	}
	if v, ok := settings.Get(settingHide); ok {
		for _, item := range listItems(v) {
			add(strings.ToLower(item))
		}
	}
	for _, s := range settings {
		if elem, ok := hideElement(s.Name); ok {
			if b, isBool := s.Value.BoolValue(); isBool {
				if b {
					add(elem)
				} else {
					remove(elem)
				}
			}
			continue
		}
		if s.Name == settingTitle {
			if b, isBool := s.Value.BoolValue(); isBool && !b {
				add("title")
			}
		}
	}
	return hidden
}

func listItems(v profile.Value) []string {
	if items, ok := v.ListValue(); ok {
		return nonEmpty(items)
	}
	return nonEmpty(strings.Split(v.Text(), ","))
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if t := strings.TrimSpace(item); t != "" {
			out = append(out, t)
		}
	}
	return out
}

type emitter struct {
	ctx          Context
	args         []string
	extra        []string
	warnings     []string
	hide         []string
	titleOn      bool
	titleText    string
	sawHide      bool
	sawTitle     bool
	sawFramerate bool
}

func (e *emitter) emit(s profile.Setting, res *Result) {
	name := s.Name
	v := s.Value
	if e.isHideRelated(s) {
		if !e.sawHide && len(e.hide) > 0 {
			e.args = append(e.args, "--hide", strings.Join(e.hide, ","))
		}
		e.sawHide = true
		return
	}
	switch name {
	case settingTitle, settingTitleText:
		e.emitTitle()
		return
	case settingExtraArgs:
		e.extra = append(e.extra, strings.Fields(v.Text())...)
		return
	case "useUserImageDir":
		if b, _ := v.BoolValue(); b && e.ctx.AvatarDir != "" {
			e.args = append(e.args, "--user-image-dir", e.ctx.AvatarDir)
		}
		return
	case settingFramerate:
		e.sawFramerate = true
		if n, err := strconv.Atoi(strings.TrimSpace(v.Text())); err == nil && n > 0 {
			res.FrameRate = n
		} else if f, err := strconv.ParseFloat(strings.TrimSpace(v.Text()), 64); err == nil && f > 0 {
			res.FrameRate = int(f)
		}
		if e.ctx.Interactive {
			return
		}
		e.args = append(e.args, "--output-framerate", strconv.Itoa(res.FrameRate))
		return
	case settingCamera:
		mode := strings.ToLower(strings.TrimSpace(v.Text()))
		if !cameraModes[mode] {
			e.warnings = append(e.warnings, fmt.Sprintf("camera mode %q is not supported, using %s", v.Text(), defaultCamera))
			mode = defaultCamera
		}
		e.args = append(e.args, "--camera-mode", mode)
		return
	}

	spec, known := knownFlags[name]
	if !known {
		spec = flagSpec{flag: kebabFlag(name)}
	}
	if b, ok := boolOf(v, spec.boolOnly); ok {
		if b {
			e.args = append(e.args, spec.flag)
		}
		return
	}
	if v.IsEmpty() {
		return
	}
	if spec.boolOnly {
		e.warnings = append(e.warnings, fmt.Sprintf("%s expects a boolean, ignoring %q", name, v.Text()))
		return
	}
	text := v.Text()
	if spec.stripHash {
		text = strings.TrimPrefix(text, "#")
	}
	e.args = append(e.args, spec.flag, text)
}

func (e *emitter) isHideRelated(s profile.Setting) bool {
	if s.Name == settingHide {
		return true
	}
	if _, ok := hideElement(s.Name); ok {
		return true
	}
	if s.Name == settingTitle {
		b, isBool := s.Value.BoolValue()
		return isBool && !b
	}
	return false
}

func (e *emitter) emitTitle() {
	if e.sawTitle {
		return
	}
	e.sawTitle = true
	if !e.titleOn || strings.TrimSpace(e.titleText) == "" {
		return
	}
	e.args = append(e.args, "--title", e.titleText)
}

// titleState reports whether a title is shown and its text.
func titleState(settings profile.Settings) (bool, string) {
	on := true
	var text string
	title, hasTitle := settings.Get(settingTitle)
	if hasTitle {
		if b, ok := title.BoolValue(); ok {
			on = b
		} else {
			text = title.Text()
		}
	}
	if v, ok := settings.Get(settingTitleText); ok && !v.IsEmpty() {
		text = v.Text()
	}
	return on, text
}

func boolOf(v profile.Value, lenient bool) (bool, bool) {
	if b, ok := v.BoolValue(); ok {
		return b, true
	}
	if !lenient || v.Kind != profile.Literal {
		return false, false
	}
	text, ok := v.Lit.(string)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(text))
	if err != nil {
		return false, false
	}
	return b, true
}
