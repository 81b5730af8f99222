package gourceargs

import (
	"strings"
	"unicode"
)

type flagSpec struct {
	flag      string
	stripHash bool
	boolOnly  bool
}

// knownFlags maps setting names onto gource flags. Unlisted names fall back
// to their kebab-case spelling.
var knownFlags = map[string]flagSpec{
	"resolution":        {flag: "--viewport"},
	"viewport":          {flag: "--viewport"},
	"framerate":         {flag: "--output-framerate"},
	"secondsPerDay":     {flag: "-s"},
	"autoSkipSeconds":   {flag: "-a"},
	"startDate":         {flag: "--start-date"},
	"stopDate":          {flag: "--stop-date"},
	"cameraMode":        {flag: "--camera-mode"},
	"background":        {flag: "-b", stripHash: true},
	"fontScale":         {flag: "--font-scale"},
	"fontSize":          {flag: "--font-size"},
	"fontColor":         {flag: "--font-colour", stripHash: true},
	"bloomIntensity":    {flag: "--bloom-intensity"},
	"bloomMultiplier":   {flag: "--bloom-multiplier"},
	"stopAtEnd":         {flag: "--stop-at-end", boolOnly: true},
	"stopPosition":      {flag: "--stop-position"},
	"startPosition":     {flag: "-p"},
	"timeScale":         {flag: "-c"},
	"elasticity":        {flag: "-e"},
	"key":               {flag: "--key", boolOnly: true},
	"dateFormat":        {flag: "--date-format"},
	"fileFilter":        {flag: "--file-filter"},
	"userFilter":        {flag: "--user-filter"},
	"userScale":         {flag: "--user-scale"},
	"maxUserSpeed":      {flag: "--max-user-speed"},
	"maxFileLag":        {flag: "--max-file-lag"},
	"filenameTime":      {flag: "--filename-time"},
	"padding":           {flag: "--padding"},
	"multiSampling":     {flag: "--multi-sampling", boolOnly: true},
	"highlightUsers":    {flag: "--highlight-users", boolOnly: true},
	"highlightAllUsers": {flag: "--highlight-all-users", boolOnly: true},
	"hashSeed":          {flag: "--hash-seed"},
	"dirColor":          {flag: "--dir-colour", stripHash: true},
	"highlightColor":    {flag: "--highlight-colour", stripHash: true},
	"selectionColor":    {flag: "--selection-colour", stripHash: true},
	"filenameColor":     {flag: "--filename-colour", stripHash: true},
	"userImageDir":      {flag: "--user-image-dir"},
	"defaultUserImage":  {flag: "--default-user-image"},
	"logo":              {flag: "--logo"},
	"backgroundImage":   {flag: "--background-image"},
}

// Settings consumed by the compiler itself rather than mapped to a flag.
const (
	settingTitle     = "title"
	settingTitleText = "titleText"
	settingHide      = "hide"
	settingExtraArgs = "extraArgs"
	settingCamera    = "cameraMode"
	settingSpeed     = "secondsPerDay"
	settingStartDate = "startDate"
	settingFramerate = "framerate"
)

// hideElement returns the gource --hide element addressed by a hideX setting.
func hideElement(name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, "hide")
	if !ok || rest == "" || !unicode.IsUpper(rune(rest[0])) {
		return "", false
	}
	return strings.ToLower(rest), true
}

// kebabFlag converts camelCase setting names to --kebab-case flags.
func kebabFlag(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	b.WriteString("--")
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '_' || r == ' ' {
			b.WriteByte('-')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
