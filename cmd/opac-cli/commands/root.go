package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"grazopac-backend/lib/configutil"
	"grazopac-backend/lib/notify"
	"grazopac-backend/lib/restyutil"
	"grazopac-backend/lib/scrapers/webopac"
)

var rootCmd = &cobra.Command{
	Use:   "opac-cli",
	Short: "opac-cli searches, inspects and batch-checks the Graz city library catalog.",
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatal(message string, err error) {
	slog.Error(message, "err", err)
	os.Exit(1)
}

type Config struct {
	BaseUrl            string `json:"base_url"`
	MinRequestInterval string `json:"min_request_interval"`
	RequestTimeout     string `json:"request_timeout"`
	BrowserTimeout     string `json:"browser_timeout"`
	CacheTtl           string `json:"cache_ttl"`
	CacheDir           string `json:"cache_dir"`
	// the browser runs headless unless this is set
	Headful       bool   `json:"headful"`
	ScreenshotDir string `json:"screenshot_dir"`
	QueryLog      string `json:"query_log"`
	// dumps every raw http response here for offline inspection
	HttpDumpDir string `json:"http_dump_dir"`

	Smtp       notify.SmtpConfig `json:"smtp"`
	Recipients []string          `json:"recipients"`
}

// loadConfig reads config.json5; a missing file means defaults all
// the way down.
func loadConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if os.IsNotExist(err) {
		return Config{}
	}
	if err != nil {
		fatal("failed to read config", err)
	}
	return cfg
}

func duration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		fatal(fmt.Sprintf("invalid duration %q in config", s), err)
	}
	return d
}

func (c Config) clientOptions() webopac.Options {
	return webopac.Options{
		BaseURL:            c.BaseUrl,
		MinRequestInterval: duration(c.MinRequestInterval),
		RequestTimeout:     duration(c.RequestTimeout),
		BrowserTimeout:     duration(c.BrowserTimeout),
		CacheTTL:           duration(c.CacheTtl),
		CacheDir:           c.CacheDir,
		Headless:           !c.Headful,
		ScreenshotDir:      c.ScreenshotDir,
	}
}

func newClient(ctx context.Context, cfg Config) *webopac.Client {
	if cfg.HttpDumpDir != "" {
		webopac.SetDebugOutput(restyutil.NewFilesystemOutput(cfg.HttpDumpDir))
	}
	client, err := webopac.NewClient(ctx, cfg.clientOptions())
	if err != nil {
		fatal("failed to initialize catalog client", err)
	}
	return client
}
