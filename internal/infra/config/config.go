package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/appcourier/appcourier/internal/domain"
	"github.com/spf13/viper"
)

type Config struct {
	Chat     ChatConfig     `mapstructure:"chat" yaml:"chat"`
	Catalog  CatalogConfig  `mapstructure:"catalog" yaml:"catalog"`
	Mirrors  []MirrorConfig `mapstructure:"mirrors" yaml:"mirrors"`
	Download DownloadConfig `mapstructure:"download" yaml:"download"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`

	Port string `mapstructure:"port" yaml:"port"`
}

type ChatConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Token   string `mapstructure:"token" yaml:"token"`

	// SelectionMode decides how candidates are presented: "poll" sends a
	// single-choice poll, "list" sends a numbered text list.
	SelectionMode string `mapstructure:"selection_mode" yaml:"selection_mode"`
	MaxOptions    int    `mapstructure:"max_options" yaml:"max_options"`
}

type CatalogConfig struct {
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
	Lang        string `mapstructure:"lang" yaml:"lang"`
	Country     string `mapstructure:"country" yaml:"country"`
	ResultLimit int    `mapstructure:"result_limit" yaml:"result_limit"`
}

type MirrorConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	URLTemplate string `mapstructure:"url_template" yaml:"url_template"`
	Kind        string `mapstructure:"kind" yaml:"kind"`
}

type DownloadConfig struct {
	TempDir      string        `mapstructure:"temp_dir" yaml:"temp_dir"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
	SessionTTL   time.Duration `mapstructure:"session_ttl" yaml:"session_ttl"`

	// MaxAuxFiles caps how many auxiliary files are relayed per delivery.
	MaxAuxFiles int `mapstructure:"max_aux_files" yaml:"max_aux_files"`
	// AuxSizeLimit is the hard ceiling (bytes) above which an auxiliary
	// entry is reported instead of extracted.
	AuxSizeLimit int64 `mapstructure:"aux_size_limit" yaml:"aux_size_limit"`
	// ProgressStep is the minimum percentage advance between two progress
	// notifications (first and final always emit).
	ProgressStep int `mapstructure:"progress_step" yaml:"progress_step"`

	// Janitor sweep interval and file age cutoff for the temp dir.
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
	SweepMaxAge   time.Duration `mapstructure:"sweep_max_age" yaml:"sweep_max_age"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

type HistoryConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend"` // sqlite or postgres
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// Docker-style fallback before giving up
		if path == "config.yaml" {
			if _, errEx := os.Stat("/config/config.yaml"); errEx == nil {
				path = "/config/config.yaml"
			} else {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
		} else {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
	}

	v := viper.New()

	v.SetDefault("port", "8080")
	v.SetDefault("chat.selection_mode", "poll")
	v.SetDefault("chat.max_options", 10)
	v.SetDefault("catalog.lang", "en")
	v.SetDefault("catalog.country", "us")
	v.SetDefault("catalog.result_limit", 10)
	v.SetDefault("download.temp_dir", ".temp")
	v.SetDefault("download.probe_timeout", "20s")
	v.SetDefault("download.fetch_timeout", "600s")
	v.SetDefault("download.session_ttl", "300s")
	v.SetDefault("download.max_aux_files", 3)
	v.SetDefault("download.aux_size_limit", 100*1024*1024)
	v.SetDefault("download.progress_step", 15)
	v.SetDefault("download.sweep_interval", "10m")
	v.SetDefault("download.sweep_max_age", "1h")
	v.SetDefault("log.path", "appcourier.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)
	v.SetDefault("history.backend", "sqlite")
	v.SetDefault("history.sqlite_path", "appcourier.db")

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	v.SetEnvPrefix("APPCOURIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// defaultMirrors matches the priority order the service shipped with:
// container formats first so split/obb payloads come along when available.
func defaultMirrors() []MirrorConfig {
	return []MirrorConfig{
		{Name: "APKPure XAPK", URLTemplate: "https://d.apkpure.com/b/XAPK/{package}?version=latest", Kind: "xapk"},
		{Name: "APKPure APK", URLTemplate: "https://d.apkpure.com/b/APK/{package}?version=latest", Kind: "apk"},
		{Name: "APKCombo APKS", URLTemplate: "https://apkcombo.com/downloader/download?package={package}&type=apks", Kind: "apks"},
	}
}

func (c *Config) validate() error {
	if c.Chat.BaseURL == "" {
		return fmt.Errorf("chat.base_url is required")
	}

	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url is required")
	}

	if c.Chat.SelectionMode != "poll" && c.Chat.SelectionMode != "list" {
		return fmt.Errorf("chat.selection_mode must be poll or list, got %q", c.Chat.SelectionMode)
	}

	if len(c.Mirrors) == 0 {
		c.Mirrors = defaultMirrors()
	}

	for i, m := range c.Mirrors {
		if m.Name == "" {
			return fmt.Errorf("mirrors[%d] requires a name", i)
		}
		if !strings.Contains(m.URLTemplate, "{package}") {
			return fmt.Errorf("mirror %s: url_template needs a {package} placeholder", m.Name)
		}
		switch domain.ArtifactKind(m.Kind) {
		case domain.KindPackage, domain.KindSplitContainer, domain.KindContainerAlt:
		default:
			return fmt.Errorf("mirror %s: unknown kind %q", m.Name, m.Kind)
		}
	}

	switch c.History.Backend {
	case "sqlite":
		if c.History.SQLitePath == "" {
			return fmt.Errorf("history.sqlite_path is required for the sqlite backend")
		}
	case "postgres":
		if c.History.PostgresDSN == "" {
			return fmt.Errorf("history.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("history.backend must be sqlite or postgres, got %q", c.History.Backend)
	}

	return nil
}

// Sources converts the configured mirror list into the domain's static
// source ordering.
func (c *Config) Sources() []domain.DownloadSource {
	out := make([]domain.DownloadSource, 0, len(c.Mirrors))
	for _, m := range c.Mirrors {
		out = append(out, domain.DownloadSource{
			Name:        m.Name,
			URLTemplate: m.URLTemplate,
			Kind:        domain.ArtifactKind(m.Kind),
		})
	}
	return out
}
