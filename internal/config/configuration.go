package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"thirdcoast.systems/ytcomments/pkg/utils/language"
)

type Config struct {
	// Comment collection
	Provider  string `mapstructure:"COMMENTS_PROVIDER" validate:"oneof=innertube ytdlp file"`
	MinLikes  int    `mapstructure:"COMMENTS_MIN_LIKES" validate:"min=0"`
	OutputDir string `mapstructure:"COMMENTS_OUTPUT_DIR" validate:"required"`
	Format    string `mapstructure:"COMMENTS_FORMAT" validate:"oneof=csv json xlsx md html"`
	CSVBOM    bool   `mapstructure:"COMMENTS_CSV_BOM"`
	InputFile string `mapstructure:"COMMENTS_INPUT_FILE" validate:"required_if=Provider file"`

	// InnerTube client
	YouTubeBaseURL    string        `mapstructure:"YOUTUBE_BASE_URL" validate:"required,url"`
	HTTPTimeout       time.Duration `mapstructure:"HTTP_TIMEOUT" validate:"gt=0"`
	ContinuationDelay time.Duration `mapstructure:"CONTINUATION_DELAY" validate:"min=0"`
	FetchRetries      int           `mapstructure:"FETCH_RETRIES" validate:"min=0"`
	YouTubeLanguage   string        `mapstructure:"YOUTUBE_LANGUAGE" validate:"bcp47_language_tag"`

	// yt-dlp
	YtdlpPath        string `mapstructure:"YTDLP_PATH"`
	YtdlpMaxComments int    `mapstructure:"YTDLP_MAX_COMMENTS" validate:"min=0"`
	// Comma separated, e.g. "--proxy,socks5://127.0.0.1:9050".
	YtdlpExtraArgs []string `mapstructure:"YTDLP_EXTRA_ARGS"`

	// Archive database, optional
	ArchiveDSN      string `mapstructure:"ARCHIVE_DATABASE_DSN"`
	DatabaseRetries int    `mapstructure:"DATABASE_RETRIES" validate:"min=0"`

	// WebServer Configuration
	WebServerPort int `mapstructure:"WEBSERVER_PORT" validate:"min=1,max=65535"`

	LogLevel string `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// LogValue keeps the archive DSN out of log output.
func (c Config) LogValue() slog.Value {
	dsn := ""
	if c.ArchiveDSN != "" {
		dsn = "[redacted]"
	}
	return slog.GroupValue(
		slog.String("provider", c.Provider),
		slog.Int("min_likes", c.MinLikes),
		slog.String("output_dir", c.OutputDir),
		slog.String("format", c.Format),
		slog.Bool("csv_bom", c.CSVBOM),
		slog.String("input_file", c.InputFile),
		slog.String("youtube_base_url", c.YouTubeBaseURL),
		slog.Duration("http_timeout", c.HTTPTimeout),
		slog.Duration("continuation_delay", c.ContinuationDelay),
		slog.Int("fetch_retries", c.FetchRetries),
		slog.String("youtube_language", c.YouTubeLanguage),
		slog.String("ytdlp_path", c.YtdlpPath),
		slog.Int("ytdlp_max_comments", c.YtdlpMaxComments),
		slog.Any("ytdlp_extra_args", c.YtdlpExtraArgs),
		slog.String("archive_dsn", dsn),
		slog.Int("database_retries", c.DatabaseRetries),
		slog.Int("webserver_port", c.WebServerPort),
		slog.String("log_level", c.LogLevel),
	)
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Language returns the parsed YOUTUBE_LANGUAGE tag.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.YouTubeLanguage)
	if err != nil {
		return language.English
	}
	return tag
}

var defaults = map[string]any{
	"COMMENTS_PROVIDER":   "innertube",
	"COMMENTS_MIN_LIKES":  0,
	"COMMENTS_OUTPUT_DIR": "videos",
	"COMMENTS_FORMAT":     "csv",
	"COMMENTS_CSV_BOM":    false,
	"YOUTUBE_BASE_URL":    "https://www.youtube.com",
	"HTTP_TIMEOUT":        "30s",
	"CONTINUATION_DELAY":  "100ms",
	"FETCH_RETRIES":       3,
	"YOUTUBE_LANGUAGE":    "en-US",
	"YTDLP_PATH":          "yt-dlp",
	"YTDLP_MAX_COMMENTS":  0,
	"DATABASE_RETRIES":    10,
	"WEBSERVER_PORT":      3000,
	"LOG_LEVEL":           "info",
}

// flagKeys maps command line flag names onto configuration keys.
var flagKeys = map[string]string{
	"provider":   "COMMENTS_PROVIDER",
	"min-likes":  "COMMENTS_MIN_LIKES",
	"output-dir": "COMMENTS_OUTPUT_DIR",
	"format":     "COMMENTS_FORMAT",
	"bom":        "COMMENTS_CSV_BOM",
	"input":      "COMMENTS_INPUT_FILE",
	"log-level":  "LOG_LEVEL",
}

// RegisterFlags defines the flags LoadConfig knows how to bind.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("provider", "innertube", "comment source: innertube, ytdlp or file")
	fs.Int("min-likes", 0, "minimum likes a comment or reply needs to be kept")
	fs.String("output-dir", "videos", "directory the output file is written to")
	fs.String("format", "csv", "output format: csv, json, xlsx, md or html")
	fs.Bool("bom", false, "prefix the output with a UTF-8 byte order mark")
	fs.String("input", "", "comment dump to read when --provider=file")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("mapstructure")
		if tag != "" {
			viper.BindEnv(tag)
		}
	}
	slog.Debug("Environment variables bound", "fields", typ.NumField())
}

func bindFlags(flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || err != nil {
			return
		}
		if bindErr := viper.BindPFlag(key, f); bindErr != nil {
			err = fmt.Errorf("bind flag %q: %w", f.Name, bindErr)
		}
	})
	return err
}

// LoadConfig reads configuration from flags (when given), then the
// environment, then defaults.
func LoadConfig(ctx context.Context, flags *pflag.FlagSet) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()

	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
	if err := bindFlags(flags); err != nil {
		return nil, err
	}

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	slog.Debug("Loaded configuration", "config", cfg)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
