package config

const (
	defaultConfigPath            = "~/.config/streamgrab/config.toml"
	defaultDownloadDir           = "~/Downloads"
	defaultTempDir               = "~/.cache/streamgrab/tmp"
	defaultStateDir              = "~/.local/share/streamgrab"
	defaultAPIBind               = "127.0.0.1:7488"
	defaultMaxConcurrent         = 2
	minMaxConcurrent             = 1
	maxMaxConcurrent             = 5
	defaultQuality               = "best"
	defaultUserAgent             = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultResponseHeaderTimeout = 30
	defaultRemuxBinary           = "ffmpeg"
	defaultResolverTimeout       = 30
	defaultHistoryMaxEntries     = 100
	defaultNotifyRequestTimeout  = 10
	defaultQueuePollInterval     = 5
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// DefaultAdPatterns lists URL fragments that mark a candidate source as an
// advertisement.
var DefaultAdPatterns = []string{
	"adSrc",
	"/ad/",
	"advertisement",
	"b7e06ea0-c18b-4b1e-9cba-2f7a9891f52f",
	"01dd0f98-3b37-40a5-ad47-20935908b632",
	"cf953e68-8e67-4135-9b39-746fe7557c10",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			TempDir:     defaultTempDir,
			StateDir:    defaultStateDir,
			APIBind:     defaultAPIBind,
		},
		Download: Download{
			MaxConcurrent:         defaultMaxConcurrent,
			AutoStart:             true,
			DefaultQuality:        defaultQuality,
			UserAgent:             defaultUserAgent,
			ResponseHeaderTimeout: defaultResponseHeaderTimeout,
			RemuxBinary:           defaultRemuxBinary,
		},
		Resolver: Resolver{
			RequestTimeout: defaultResolverTimeout,
			AdPatterns:     append([]string(nil), DefaultAdPatterns...),
		},
		History: History{
			Enabled:    true,
			MaxEntries: defaultHistoryMaxEntries,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completed:      true,
			Failed:         true,
		},
		Workflow: Workflow{
			QueuePollInterval: defaultQueuePollInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
