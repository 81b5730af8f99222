package encodeargs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"gitreel/internal/services"
)

// DefaultVolume is applied to audio overlays without an explicit volume.
const DefaultVolume = 0.8

const maxTitleRunes = 200

// Quality selects an x264 preset, CRF, and audio bitrate.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

type qualityPreset struct {
	preset       string
	crf          string
	audioBitrate string
}

var presets = map[Quality]qualityPreset{
	QualityLow:    {preset: "fast", crf: "28", audioBitrate: "128k"},
	QualityMedium: {preset: "medium", crf: "23", audioBitrate: "192k"},
	QualityHigh:   {preset: "medium", crf: "20", audioBitrate: "256k"},
}

// Audio overlays a music track from the audio directory.
type Audio struct {
	File string `json:"file"`
	// Volume is a linear gain. Nil means DefaultVolume.
	Volume *float64 `json:"volume,omitempty"`
}

// Fade describes fade-in and fade-out durations in seconds.
type Fade struct {
	In  float64 `json:"in,omitempty"`
	Out float64 `json:"out,omitempty"`
}

// Title draws a caption over the opening seconds of the video.
type Title struct {
	Text     string  `json:"text"`
	FontSize int     `json:"fontSize,omitempty"`
	Color    string  `json:"color,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

// PostProcess groups the optional encoder stages.
type PostProcess struct {
	Audio   *Audio  `json:"audio,omitempty"`
	Fade    Fade    `json:"fade"`
	Title   *Title  `json:"title,omitempty"`
	Quality Quality `json:"quality,omitempty"`
}

// Options configures one encoder invocation.
type Options struct {
	FrameRate  int
	OutputPath string
	// Duration is the expected video length in seconds. Fade-out needs it.
	Duration float64
	AudioDir string
	Post     PostProcess
}

// Build returns the encoder arguments. Frames are read from stdin.
func Build(opts Options) ([]string, error) {
	if opts.FrameRate <= 0 {
		return nil, invalid("frame rate must be positive")
	}
	if strings.TrimSpace(opts.OutputPath) == "" {
		return nil, invalid("output path is required")
	}
	preset, err := presetFor(opts.Post.Quality)
	if err != nil {
		return nil, err
	}
	fade := opts.Post.Fade
	if fade.In < 0 || fade.Out < 0 {
		return nil, invalid("fade durations must not be negative")
	}

	fps := strconv.Itoa(opts.FrameRate)
	args := []string{"-y", "-r", fps, "-f", "image2pipe", "-vcodec", "ppm", "-i", "-"}

	var audioPath string
	if opts.Post.Audio != nil && strings.TrimSpace(opts.Post.Audio.File) != "" {
		audioPath, err = ResolveAudioPath(opts.AudioDir, opts.Post.Audio.File)
		if err != nil {
			return nil, err
		}
		args = append(args, "-i", audioPath)
	}

	var video []string
	if fade.In > 0 {
		video = append(video, fmt.Sprintf("fade=t=in:st=0:d=%s", seconds(fade.In)))
	}
	fadeOutStart := -1.0
	if fade.Out > 0 && opts.Duration > 0 {
		fadeOutStart = max(0, opts.Duration-fade.Out)
		video = append(video, fmt.Sprintf("fade=t=out:st=%s:d=%s", seconds(fadeOutStart), seconds(fade.Out)))
	}
	if opts.Post.Title != nil {
		filter, err := drawText(*opts.Post.Title)
		if err != nil {
			return nil, err
		}
		if filter != "" {
			video = append(video, filter)
		}
	}
	if len(video) > 0 {
		args = append(args, "-vf", strings.Join(video, ","))
	}

	if audioPath != "" {
		volume := DefaultVolume
		if v := opts.Post.Audio.Volume; v != nil {
			if *v < 0 {
				return nil, invalid("audio volume must not be negative")
			}
			volume = *v
		}
		var audio []string
		if fade.In > 0 {
			audio = append(audio, fmt.Sprintf("afade=t=in:st=0:d=%s", seconds(fade.In)))
		}
		if fadeOutStart >= 0 {
			audio = append(audio, fmt.Sprintf("afade=t=out:st=%s:d=%s", seconds(fadeOutStart), seconds(fade.Out)))
		}
		audio = append(audio, "volume="+seconds(volume))
		args = append(args, "-map", "0:v", "-map", "1:a", "-af", strings.Join(audio, ","))
	}

	args = append(args,
		"-c:v", "libx264",
		"-preset", preset.preset,
		"-crf", preset.crf,
		"-pix_fmt", "yuv420p",
		"-r", fps,
	)
	if audioPath != "" {
		args = append(args, "-c:a", "aac", "-b:a", preset.audioBitrate, "-shortest")
	}
	args = append(args, opts.OutputPath)
	return args, nil
}

func presetFor(q Quality) (qualityPreset, error) {
	if q == "" {
		q = QualityMedium
	}
	p, ok := presets[Quality(strings.ToLower(string(q)))]
	if !ok {
		return qualityPreset{}, invalid(fmt.Sprintf("unknown quality %q", q))
	}
	return p, nil
}

// ResolveAudioPath returns the absolute path of file, which must live
// inside audioDir. Relative names are taken relative to audioDir.
func ResolveAudioPath(audioDir, file string) (string, error) {
	if strings.TrimSpace(audioDir) == "" {
		return "", invalid("audio overlays require an audio directory")
	}
	for _, part := range strings.Split(filepath.ToSlash(file), "/") {
		if part == ".." {
			return "", invalid("audio path must not contain parent references")
		}
	}
	root, err := filepath.Abs(audioDir)
	if err != nil {
		return "", invalid("resolve audio directory")
	}
	candidate := file
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "encodeargs", "resolve audio", "audio directory is not accessible", err)
	}
	realFile, err := filepath.EvalSymlinks(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", invalid("audio file does not exist")
		}
		return "", services.Wrap(services.ErrValidation, "encodeargs", "resolve audio", "audio file is not accessible", err)
	}
	rel, err := filepath.Rel(realRoot, realFile)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", invalid("audio file must be inside the audio directory")
	}
	info, err := os.Stat(realFile)
	if err != nil || !info.Mode().IsRegular() {
		return "", invalid("audio path is not a regular file")
	}
	return realFile, nil
}

func drawText(t Title) (string, error) {
	text := SanitizeTitle(t.Text)
	if text == "" {
		return "", nil
	}
	size := t.FontSize
	if size <= 0 {
		size = 48
	}
	if size > 512 {
		return "", invalid("title font size is too large")
	}
	color := strings.TrimPrefix(strings.TrimSpace(t.Color), "#")
	if color == "" {
		color = "white"
	}
	if !validColor(color) {
		return "", invalid(fmt.Sprintf("invalid title color %q", t.Color))
	}
	if (len(color) == 6 || len(color) == 8) && isHex(color) {
		color = "0x" + color
	}
	filter := fmt.Sprintf("drawtext=text=%s:fontcolor=%s:fontsize=%d:x=(w-text_w)/2:y=h*0.1",
		EscapeDrawText(text), color, size)
	if t.Duration > 0 {
		filter += fmt.Sprintf(":enable=between(t\\,0\\,%s)", seconds(t.Duration))
	}
	return filter, nil
}

// SanitizeTitle drops control characters and caps the title length.
func SanitizeTitle(s string) string {
	var b strings.Builder
	n := 0
	for _, r := range s {
		if unicode.IsControl(r) {
			r = ' '
		}
		if n == maxTitleRunes {
			break
		}
		b.WriteRune(r)
		n++
	}
	return strings.TrimSpace(b.String())
}

var drawTextEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`:`, `\:`,
	`%`, `\%`,
	`,`, `\,`,
	`;`, `\;`,
	`[`, `\[`,
	`]`, `\]`,
	`=`, `\=`,
)

// EscapeDrawText escapes filtergraph metacharacters in drawtext text.
func EscapeDrawText(s string) string {
	return drawTextEscaper.Replace(s)
}

func validColor(c string) bool {
	if isHex(c) && (len(c) == 6 || len(c) == 8) {
		return true
	}
	for _, r := range c {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return c != ""
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func invalid(msg string) error {
	return services.Wrap(services.ErrValidation, "encodeargs", "build", msg, nil)
}
