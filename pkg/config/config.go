package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shouni/grid-batch-kit/pkg/domain"
)

// 環境変数名
const (
	EnvReplicateToken = "REPLICATE_API_TOKEN"
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvBackend        = "GRIDBATCH_BACKEND"
	EnvModelID        = "GRIDBATCH_MODEL_ID"
	EnvUploadKind     = "GRIDBATCH_UPLOAD_KIND"
	EnvUploadBucket   = "GRIDBATCH_UPLOAD_BUCKET"
	EnvUploadEndpoint = "GRIDBATCH_UPLOAD_ENDPOINT"
	EnvUploadAPIKey   = "GRIDBATCH_UPLOAD_API_KEY"
	EnvAccessKey      = "GRIDBATCH_ACCESS_KEY"
	EnvSecretKey      = "GRIDBATCH_SECRET_KEY"
	EnvGridSize       = "GRIDBATCH_GRID_SIZE"
	EnvMargin         = "GRIDBATCH_MARGIN"
	EnvOutputFormat   = "GRIDBATCH_OUTPUT_FORMAT"
	EnvLogLevel       = "GRIDBATCH_LOG_LEVEL"
)

// バックエンドとアップロード先の種類
const (
	BackendReplicate = "replicate"
	BackendGemini    = "gemini"

	UploadS3    = "s3"
	UploadMinio = "minio"
	UploadHTTP  = "http"
)

// Config は CLI 全体の設定です。
type Config struct {
	Grid   GridConfig   `yaml:"grid"`
	Model  ModelConfig  `yaml:"model"`
	Upload UploadConfig `yaml:"upload"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Log    LogConfig    `yaml:"log"`
}

// GridConfig はグリッドの寸法と出力形式です。
type GridConfig struct {
	Size         int    `yaml:"size"`
	Margin       int    `yaml:"margin"`
	OutputFormat string `yaml:"output_format"`
	// SystemPromptFile があれば組み込みテンプレートの代わりに読み込みます。
	SystemPromptFile string `yaml:"system_prompt_file"`
}

// ModelConfig はリモートモデルの設定です。
type ModelConfig struct {
	Backend           string `yaml:"backend"`
	ID                string `yaml:"id"`
	Token             string `yaml:"token"`
	BaseURL           string `yaml:"base_url"`
	PollInterval      string `yaml:"poll_interval"`
	PollTimeout       string `yaml:"poll_timeout"`
	Resolution        string `yaml:"resolution"`
	SafetyFilterLevel string `yaml:"safety_filter_level"`
	AspectRatio       string `yaml:"aspect_ratio"`
	GeminiAPIKey      string `yaml:"gemini_api_key"`
	GeminiModel       string `yaml:"gemini_model"`
}

// UploadConfig はアップロード先の設定です。Kind に応じたセクションだけが使われます。
type UploadConfig struct {
	Kind  string       `yaml:"kind"`
	S3    S3Section    `yaml:"s3"`
	Minio MinioSection `yaml:"minio"`
	HTTP  HTTPSection  `yaml:"http"`
}

type S3Section struct {
	Endpoint      string `yaml:"endpoint"`
	Region        string `yaml:"region"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	PublicBaseURL string `yaml:"public_base_url"`
	PresignExpiry string `yaml:"presign_expiry"`
	UsePathStyle  bool   `yaml:"use_path_style"`
}

type MinioSection struct {
	Endpoint      string `yaml:"endpoint"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	UseSSL        bool   `yaml:"use_ssl"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	PresignExpiry string `yaml:"presign_expiry"`
}

type HTTPSection struct {
	Endpoint    string            `yaml:"endpoint"`
	APIKey      string            `yaml:"api_key"`
	BearerToken string            `yaml:"bearer_token"`
	Headers     map[string]string `yaml:"headers"`
}

// FetchConfig は参照画像とモデル出力の取得設定です。
type FetchConfig struct {
	Timeout              string `yaml:"timeout"`
	CacheTTL             string `yaml:"cache_ttl"`
	AllowPrivateNetworks bool   `yaml:"allow_private_networks"`
}

// LogConfig は slog ハンドラーの設定です。
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults はデフォルト設定を返します。
func Defaults() *Config {
	return &Config{
		Grid: GridConfig{
			Size:         2048,
			Margin:       5,
			OutputFormat: string(domain.DefaultOutputFormat),
		},
		Model: ModelConfig{
			Backend:      BackendReplicate,
			ID:           "google/nano-banana-pro",
			PollInterval: "1s",
			PollTimeout:  "10m",
		},
		Upload: UploadConfig{
			Kind:  UploadS3,
			S3:    S3Section{Region: "us-east-1", PresignExpiry: "1h"},
			Minio: MinioSection{PresignExpiry: "1h"},
		},
		Fetch: FetchConfig{
			Timeout:  "60s",
			CacheTTL: "10m",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load は YAML ファイルを読み込み、環境変数で上書きします。
// path が空、またはファイルが存在しない場合はデフォルト設定に環境変数を適用したものを返します。
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(EnvReplicateToken); v != "" {
		c.Model.Token = v
	}
	if v := os.Getenv(EnvGeminiAPIKey); v != "" {
		c.Model.GeminiAPIKey = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		c.Model.Backend = v
	}
	if v := os.Getenv(EnvModelID); v != "" {
		c.Model.ID = v
	}
	if v := os.Getenv(EnvOutputFormat); v != "" {
		c.Grid.OutputFormat = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}

	if v := os.Getenv(EnvUploadKind); v != "" {
		c.Upload.Kind = v
	}
	if v := os.Getenv(EnvUploadBucket); v != "" {
		c.Upload.S3.Bucket = v
		c.Upload.Minio.Bucket = v
	}
	if v := os.Getenv(EnvUploadEndpoint); v != "" {
		switch c.Upload.Kind {
		case UploadMinio:
			c.Upload.Minio.Endpoint = v
		case UploadHTTP:
			c.Upload.HTTP.Endpoint = v
		default:
			c.Upload.S3.Endpoint = v
		}
	}
	if v := os.Getenv(EnvUploadAPIKey); v != "" {
		c.Upload.HTTP.APIKey = v
	}
	if v := os.Getenv(EnvAccessKey); v != "" {
		c.Upload.S3.AccessKey = v
		c.Upload.Minio.AccessKey = v
	}
	if v := os.Getenv(EnvSecretKey); v != "" {
		c.Upload.S3.SecretKey = v
		c.Upload.Minio.SecretKey = v
	}

	for name, dst := range map[string]*int{EnvGridSize: &c.Grid.Size, EnvMargin: &c.Grid.Margin} {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer: %q", domain.ErrInvalidConfig, name, v)
		}
		*dst = n
	}
	return nil
}

// Validate は列挙値と時間指定を検証します。寸法の検証はレイアウト計算時に行います。
func (c *Config) Validate() error {
	if _, err := domain.ParseOutputFormat(c.Grid.OutputFormat); err != nil {
		return err
	}
	switch c.Model.Backend {
	case BackendReplicate, BackendGemini:
	default:
		return fmt.Errorf("%w: unknown model backend %q", domain.ErrInvalidConfig, c.Model.Backend)
	}
	switch c.Upload.Kind {
	case UploadS3, UploadMinio, UploadHTTP:
	default:
		return fmt.Errorf("%w: unknown upload kind %q", domain.ErrInvalidConfig, c.Upload.Kind)
	}
	for name, v := range map[string]string{
		"model.poll_interval":         c.Model.PollInterval,
		"model.poll_timeout":          c.Model.PollTimeout,
		"fetch.timeout":               c.Fetch.Timeout,
		"fetch.cache_ttl":             c.Fetch.CacheTTL,
		"upload.s3.presign_expiry":    c.Upload.S3.PresignExpiry,
		"upload.minio.presign_expiry": c.Upload.Minio.PresignExpiry,
	} {
		if _, err := parseDuration(v); err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrInvalidConfig, name, err)
		}
	}
	return nil
}

// parseDuration は空文字列を 0 として扱います。
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

func mustDuration(s string) time.Duration {
	d, _ := parseDuration(s)
	return d
}

// PollInterval はポーリング間隔です。
func (c *Config) PollInterval() time.Duration { return mustDuration(c.Model.PollInterval) }

// PollTimeout はポーリングの上限時間です。
func (c *Config) PollTimeout() time.Duration { return mustDuration(c.Model.PollTimeout) }

// FetchTimeout は HTTP クライアントのタイムアウトです。
func (c *Config) FetchTimeout() time.Duration { return mustDuration(c.Fetch.Timeout) }

// CacheTTL は取得済み画像のキャッシュ期間です。0 ならキャッシュしません。
func (c *Config) CacheTTL() time.Duration { return mustDuration(c.Fetch.CacheTTL) }

// S3PresignExpiry は S3 の署名付き URL の有効期間です。
func (c *Config) S3PresignExpiry() time.Duration { return mustDuration(c.Upload.S3.PresignExpiry) }

// MinioPresignExpiry は MinIO の署名付き URL の有効期間です。
func (c *Config) MinioPresignExpiry() time.Duration {
	return mustDuration(c.Upload.Minio.PresignExpiry)
}
