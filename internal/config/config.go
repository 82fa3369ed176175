// Package config loads and validates billboard configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/billboard-charts/internal/chart"
)

// EnvPrefix prefixes every environment override, e.g. BILLBOARD_SCRAPER_DELAY_SECONDS.
const EnvPrefix = "BILLBOARD"

// Storage providers.
const (
	ProviderLocal    = "local"
	ProviderGCS      = "gcs"
	ProviderPostgres = "postgres"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	Archive ArchiveConfig `mapstructure:"archive"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Updater UpdaterConfig `mapstructure:"updater"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ScraperConfig controls chart page requests.
type ScraperConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	DelaySeconds   int    `mapstructure:"delay_seconds"`
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
	// Charts restricts a run to these charts (path or store name). Empty means all.
	Charts []string `mapstructure:"charts"`
}

// StorageConfig selects where chart stores live.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	DataDir   string `mapstructure:"data_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig controls access to Postgres when storage.provider is postgres.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int    `mapstructure:"max_conns"`
}

// ArchiveConfig toggles raw page archiving.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for run notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig sets the Prometheus listener; empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// UpdaterConfig controls the dataset download command.
type UpdaterConfig struct {
	Dataset         string `mapstructure:"dataset"`
	APIBaseURL      string `mapstructure:"api_base_url"`
	CredentialsPath string `mapstructure:"credentials_path"`
	DesktopPath     string `mapstructure:"desktop_path"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

// Load builds a Config from disk and environment. With an empty path, a
// config.yaml in the working directory or $HOME/.billboard is used if present.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.billboard")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("scraper.base_url", "https://www.billboard.com")
	v.SetDefault("scraper.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("scraper.timeout_seconds", 30)
	v.SetDefault("scraper.delay_seconds", 2)
	v.SetDefault("scraper.max_body_bytes", 10*1024*1024)
	v.SetDefault("scraper.charts", []string{string(chart.Hot100), string(chart.Billboard200)})
	v.SetDefault("storage.provider", ProviderLocal)
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "chart_entries")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("updater.dataset", "ludmin/billboard")
	v.SetDefault("updater.api_base_url", "https://www.kaggle.com/api/v1")
	v.SetDefault("updater.credentials_path", "")
	v.SetDefault("updater.desktop_path", "")
	v.SetDefault("updater.timeout_seconds", 300)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	u, err := url.Parse(c.Scraper.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("scraper.base_url must be an absolute http(s) URL, got %q", c.Scraper.BaseURL)
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	if c.Scraper.DelaySeconds < 0 {
		return fmt.Errorf("scraper.delay_seconds must be >= 0")
	}
	if c.Scraper.MaxBodyBytes < 0 {
		return fmt.Errorf("scraper.max_body_bytes must be >= 0")
	}
	if _, err := c.ChartKinds(); err != nil {
		return err
	}
	switch c.Storage.Provider {
	case ProviderLocal:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("storage.data_dir must be set for the local provider")
		}
	case ProviderGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs provider")
		}
	case ProviderPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set for the postgres provider")
		}
		if c.DB.MaxConns < 0 {
			return fmt.Errorf("db.max_conns must be >= 0")
		}
	default:
		return fmt.Errorf("storage.provider must be one of %s, %s, %s; got %q",
			ProviderLocal, ProviderGCS, ProviderPostgres, c.Storage.Provider)
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	if c.Updater.TimeoutSeconds <= 0 {
		return fmt.Errorf("updater.timeout_seconds must be > 0")
	}
	return nil
}

// RequestTimeout is the per-page fetch budget.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// Delay is the pause after each chart request.
func (c Config) Delay() time.Duration {
	return time.Duration(c.Scraper.DelaySeconds) * time.Second
}

// ChartKinds resolves scraper.charts in run order, dropping duplicates. An
// empty list yields every chart kind.
func (c Config) ChartKinds() ([]chart.Kind, error) {
	if len(c.Scraper.Charts) == 0 {
		return chart.Kinds, nil
	}
	kinds := make([]chart.Kind, 0, len(c.Scraper.Charts))
	seen := make(map[chart.Kind]struct{}, len(c.Scraper.Charts))
	for _, raw := range c.Scraper.Charts {
		kind, err := chart.ParseKind(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("scraper.charts: %w", err)
		}
		if _, dup := seen[kind]; dup {
			continue
		}
		seen[kind] = struct{}{}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// UpdaterTimeout is the HTTP budget of the dataset updater.
func (c Config) UpdaterTimeout() time.Duration {
	return time.Duration(c.Updater.TimeoutSeconds) * time.Second
}
