package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/feral-file/ff-sticker/internal/domain"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	ReadTimeout   int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout  int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout   int    `mapstructure:"idle_timeout"`  // in seconds
	MaxUploadSize int64  `mapstructure:"max_upload_size"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	ConsumerName   string        `mapstructure:"consumer_name"`
	JobSubject     string        `mapstructure:"job_subject"`
	ResultSubject  string        `mapstructure:"result_subject"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
	AckWait        time.Duration `mapstructure:"ack_wait"`
	MaxDeliver     int           `mapstructure:"max_deliver"`
}

// CloudflareConfig holds Cloudflare Images configuration
type CloudflareConfig struct {
	AccountID         string `mapstructure:"account_id"`
	APIToken          string `mapstructure:"api_token"`
	RequireSignedURLs bool   `mapstructure:"require_signed_urls"`
}

// FallbackConfig holds the in-process fallback backend configuration
type FallbackConfig struct {
	// Size is the edge of the square output canvas
	Size int `mapstructure:"size"`
	// Quality is the lossy WebP quality factor in [0, 100]
	Quality float32 `mapstructure:"quality"`
	// TagOutput embeds pack metadata inside the backend itself
	TagOutput bool `mapstructure:"tag_output"`
}

// CacheConfig holds the conversion result cache configuration
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Path    string        `mapstructure:"path"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// URIConfig holds the gateways used for content-addressed sources
type URIConfig struct {
	IPFSGateways    []string `mapstructure:"ipfs_gateways"`
	ArweaveGateways []string `mapstructure:"arweave_gateways"`
	OnchfsGateways  []string `mapstructure:"onchfs_gateways"`
}

// StickerConfig holds the conversion pipeline configuration shared by every binary
type StickerConfig struct {
	MaxInputSize  int64          `mapstructure:"max_input_size"`
	MaxOutputSize int            `mapstructure:"max_output_size"`
	PrimarySize   int            `mapstructure:"primary_size"`
	ReducedSize   int            `mapstructure:"reduced_size"`
	FrameRate     int            `mapstructure:"frame_rate"`
	FFmpegPath    string         `mapstructure:"ffmpeg_path"`
	FFprobePath   string         `mapstructure:"ffprobe_path"`
	TempDir       string         `mapstructure:"temp_dir"`
	TempMaxAge    time.Duration  `mapstructure:"temp_max_age"`
	SweepInterval time.Duration  `mapstructure:"sweep_interval"`
	Concurrency   int            `mapstructure:"concurrency"`
	HTTPTimeout   time.Duration  `mapstructure:"http_timeout"`
	UserAgent     string         `mapstructure:"user_agent"`
	Fallback      FallbackConfig `mapstructure:"fallback"`
	Cache         CacheConfig    `mapstructure:"cache"`
	URI           URIConfig      `mapstructure:"uri"`
}

// APIConfig holds configuration for the API server
type APIConfig struct {
	BaseConfig     `mapstructure:",squash"`
	Server         ServerConfig  `mapstructure:"server"`
	Auth           AuthConfig    `mapstructure:"auth"`
	Sticker        StickerConfig `mapstructure:"sticker"`
	ConvertTimeout time.Duration `mapstructure:"convert_timeout"`
}

// WorkerStickerConfig holds configuration for worker-sticker
type WorkerStickerConfig struct {
	BaseConfig       `mapstructure:",squash"`
	NATS             NATSConfig       `mapstructure:"nats"`
	Cloudflare       CloudflareConfig `mapstructure:"cloudflare"`
	Sticker          StickerConfig    `mapstructure:"sticker"`
	ConvertTimeout   time.Duration    `mapstructure:"convert_timeout"`
	UploadMaxRetries uint64           `mapstructure:"upload_max_retries"`
}

// WatchConfig holds hot-folder watcher configuration
type WatchConfig struct {
	Debounce  time.Duration `mapstructure:"debounce"`
	OutputDir string        `mapstructure:"output_dir"`
}

// CLIConfig holds configuration for stickerctl
type CLIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Sticker    StickerConfig `mapstructure:"sticker"`
	Watch      WatchConfig   `mapstructure:"watch"`
}

// LoadAPIConfig loads configuration for the API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	setStickerDefaults(v)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 120)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("server.max_upload_size", 50*1024*1024) // 50MB
	v.SetDefault("convert_timeout", "2m")

	if err := readInConfig(v); err != nil {
		return nil, err
	}

	var cfg APIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadWorkerStickerConfig loads configuration for worker-sticker
func LoadWorkerStickerConfig(configFile string, envPath string) (*WorkerStickerConfig, error) {
	v := configureViper("worker-sticker", configFile, envPath)

	setStickerDefaults(v)
	v.SetDefault("nats.stream_name", "STICKERS")
	v.SetDefault("nats.consumer_name", "worker-sticker")
	v.SetDefault("nats.job_subject", "stickers.jobs")
	v.SetDefault("nats.result_subject", "stickers.results")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.connection_name", "worker-sticker")
	v.SetDefault("nats.ack_wait", "5m")
	v.SetDefault("nats.max_deliver", 3)
	v.SetDefault("convert_timeout", "3m")
	v.SetDefault("upload_max_retries", 3)

	if err := readInConfig(v); err != nil {
		return nil, err
	}

	var cfg WorkerStickerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.NATS.URL == "" {
		return nil, errors.New("nats.url is required")
	}

	return &cfg, nil
}

// LoadCLIConfig loads configuration for stickerctl
func LoadCLIConfig(configFile string, envPath string) (*CLIConfig, error) {
	v := configureViper("stickerctl", configFile, envPath)

	setStickerDefaults(v)
	v.SetDefault("sticker.concurrency", 1)
	v.SetDefault("watch.debounce", "500ms")

	if err := readInConfig(v); err != nil {
		return nil, err
	}

	var cfg CLIConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setStickerDefaults sets defaults for the sticker section
func setStickerDefaults(v *viper.Viper) {
	v.SetDefault("sticker.max_input_size", 100*1024*1024) // 100MB
	v.SetDefault("sticker.max_output_size", domain.DEFAULT_MAX_STICKER_SIZE)
	v.SetDefault("sticker.primary_size", domain.DEFAULT_PRIMARY_SIZE)
	v.SetDefault("sticker.reduced_size", domain.DEFAULT_REDUCED_SIZE)
	v.SetDefault("sticker.frame_rate", domain.DEFAULT_FRAME_RATE)
	v.SetDefault("sticker.ffmpeg_path", "ffmpeg")
	v.SetDefault("sticker.ffprobe_path", "ffprobe")
	v.SetDefault("sticker.temp_max_age", "3m")
	v.SetDefault("sticker.sweep_interval", "1m")
	v.SetDefault("sticker.concurrency", 4)
	v.SetDefault("sticker.http_timeout", "30s")
	v.SetDefault("sticker.user_agent", "ff-sticker/1.0")
	v.SetDefault("sticker.fallback.size", domain.DEFAULT_FALLBACK_SIZE)
	v.SetDefault("sticker.fallback.quality", domain.DEFAULT_FALLBACK_QUALITY)
	v.SetDefault("sticker.fallback.tag_output", true)
	v.SetDefault("sticker.cache.enabled", false)
	v.SetDefault("sticker.cache.ttl", "24h")
	v.SetDefault("sticker.uri.ipfs_gateways", []string{"https://ipfs.io", "https://dweb.link"})
	v.SetDefault("sticker.uri.arweave_gateways", []string{"https://arweave.net"})
	v.SetDefault("sticker.uri.onchfs_gateways", []string{"https://onchfs.fxhash2.xyz"})
}

// readInConfig reads the config file, tolerating a missing one
func readInConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			// Config file not found, use environment variables
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath, service)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in the current directory,
		// the service directory (e.g. cmd/api/) and config/
		v.AddConfigPath(".")
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix("FF_STICKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"sentry_dsn",
		"convert_timeout",
		"upload_max_retries",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		"server.max_upload_size",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.consumer_name",
		"nats.job_subject",
		"nats.result_subject",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		"nats.ack_wait",
		"nats.max_deliver",
		// Cloudflare
		"cloudflare.account_id",
		"cloudflare.api_token",
		"cloudflare.require_signed_urls",
		// Sticker pipeline
		"sticker.max_input_size",
		"sticker.max_output_size",
		"sticker.primary_size",
		"sticker.reduced_size",
		"sticker.frame_rate",
		"sticker.ffmpeg_path",
		"sticker.ffprobe_path",
		"sticker.temp_dir",
		"sticker.temp_max_age",
		"sticker.sweep_interval",
		"sticker.concurrency",
		"sticker.http_timeout",
		"sticker.user_agent",
		"sticker.fallback.size",
		"sticker.fallback.quality",
		"sticker.fallback.tag_output",
		"sticker.cache.enabled",
		"sticker.cache.path",
		"sticker.cache.ttl",
		"sticker.uri.ipfs_gateways",
		"sticker.uri.arweave_gateways",
		"sticker.uri.onchfs_gateways",
		// Watcher
		"watch.debounce",
		"watch.output_dir",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Shared base first, then local, then optional per-service local
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	if envPath == "" {
		envPath = "config/"
	}

	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// ResolvedTempDir returns the configured workspace directory, or a sticker dir under the OS temp dir
func (c *StickerConfig) ResolvedTempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return filepath.Join(os.TempDir(), "ff-sticker")
}
