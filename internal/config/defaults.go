package config

const (
	defaultDataDir              = "~/.local/share/gitreel"
	defaultOutputDir            = "~/.local/share/gitreel/renders"
	defaultTempDir              = "~/.local/share/gitreel/tmp"
	defaultAudioDir             = "~/.local/share/gitreel/tmp/audio"
	defaultLogDir               = "~/.local/share/gitreel/logs"
	defaultGourceBinary         = "gource"
	defaultFFmpegBinary         = "ffmpeg"
	defaultGitBinary            = "git"
	defaultMaxConcurrent        = 1
	defaultProfile              = "everything_1m"
	defaultDiagnosticLimitBytes = 4096
	defaultIdentityBaseURL      = "https://api.github.com"
	defaultIdentityTimeout      = 5
	defaultAPIBind              = "127.0.0.1:7488"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultNotifyTimeout        = 10
)

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			OutputDir: defaultOutputDir,
			TempDir:   defaultTempDir,
			AudioDir:  defaultAudioDir,
			LogDir:    defaultLogDir,
		},
		Tools: Tools{
			Gource: defaultGourceBinary,
			FFmpeg: defaultFFmpegBinary,
			Git:    defaultGitBinary,
		},
		Render: Render{
			MaxConcurrent:        defaultMaxConcurrent,
			DefaultProfile:       defaultProfile,
			DiagnosticLimitBytes: defaultDiagnosticLimitBytes,
		},
		Identity: Identity{
			BaseURL:        defaultIdentityBaseURL,
			TimeoutSeconds: defaultIdentityTimeout,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RenderComplete: true,
			RenderFailed:   true,
		},
	}
}
