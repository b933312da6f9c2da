package config

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownload()
	c.normalizeResolver()
	c.normalizeHistory()
	c.normalizeNotifications()
	c.normalizeLogging()
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	// An explicit empty api_bind disables the HTTP API; an omitted key keeps
	// the default from Default().
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeDownload() {
	if c.Download.MaxConcurrent == 0 {
		c.Download.MaxConcurrent = defaultMaxConcurrent
	}
	c.Download.MaxConcurrent = lo.Clamp(c.Download.MaxConcurrent, minMaxConcurrent, maxMaxConcurrent)
	c.Download.DefaultQuality = strings.ToLower(strings.TrimSpace(c.Download.DefaultQuality))
	if c.Download.DefaultQuality == "" {
		c.Download.DefaultQuality = defaultQuality
	}
	c.Download.UserAgent = strings.TrimSpace(c.Download.UserAgent)
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = defaultUserAgent
	}
	if c.Download.ResponseHeaderTimeout <= 0 {
		c.Download.ResponseHeaderTimeout = defaultResponseHeaderTimeout
	}
	if c.Download.RequestsPerSecond < 0 {
		c.Download.RequestsPerSecond = 0
	}
	c.Download.RemuxBinary = strings.TrimSpace(c.Download.RemuxBinary)
	if c.Download.RemuxBinary == "" {
		c.Download.RemuxBinary = defaultRemuxBinary
	}
}

func (c *Config) normalizeResolver() {
	if c.Resolver.RequestTimeout <= 0 {
		c.Resolver.RequestTimeout = defaultResolverTimeout
	}
	patterns := lo.Uniq(lo.FilterMap(c.Resolver.AdPatterns, func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, p != ""
	}))
	c.Resolver.AdPatterns = patterns
}

func (c *Config) normalizeHistory() {
	if c.History.MaxEntries <= 0 {
		c.History.MaxEntries = defaultHistoryMaxEntries
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "console", "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
