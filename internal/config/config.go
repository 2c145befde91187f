package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// AIKeyEnvVar names the environment variable carrying the AI API key. The key
// is deliberately not config-file-borne.
const AIKeyEnvVar = "RELIC_AI_API_KEY"

// Paths contains directory configuration for the watch/archive layout.
type Paths struct {
	WatchDir     string `toml:"watch_dir"`
	CompletedDir string `toml:"completed_dir"`
	FailedDir    string `toml:"failed_dir"`
	DataDir      string `toml:"data_dir"`
	LogDir       string `toml:"log_dir"`
}

// API contains configuration for the catalog publishing API.
type API struct {
	Key           string `toml:"key"`
	BaseURL       string `toml:"base_url"`
	ProductionURL string `toml:"production_url"`
	UseProduction bool   `toml:"use_production"`
	Timeout       int    `toml:"timeout"`
	RetryCount    int    `toml:"retry_count"`
}

// CDN contains configuration for the image CDN.
type CDN struct {
	PublicKey   string `toml:"public_key"`
	PrivateKey  string `toml:"private_key"`
	URLEndpoint string `toml:"url_endpoint"`
	UploadURL   string `toml:"upload_url"`
	Folder      string `toml:"folder"`
	Timeout     int    `toml:"timeout"`
	RetryCount  int    `toml:"retry_count"`
}

// AI contains configuration for the listing copy generator. The API key comes
// from the environment, never from this section.
type AI struct {
	Model          string `toml:"model"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxImages      int    `toml:"max_images"`
}

// Category describes one product category and its folder-name keywords.
type Category struct {
	Prefix        string   `toml:"prefix"`
	Name          string   `toml:"name"`
	Keywords      []string `toml:"keywords"`
	Subcategories []string `toml:"subcategories"`
}

// Categories maps category ids to their configuration plus the fallback id.
type Categories struct {
	Default string              `toml:"default"`
	Entries map[string]Category `toml:"entries"`
	// Order fixes the match precedence; ids not listed are tried afterwards
	// in lexical order.
	Order []string `toml:"order"`
}

// BackgroundRemoval contains the optional background removal stage settings.
type BackgroundRemoval struct {
	Enabled         bool    `toml:"enabled"`
	Tool            string  `toml:"tool"`
	Strength        float64 `toml:"strength"`
	BackgroundColor string  `toml:"bg_color"`
	PreserveShadows bool    `toml:"preserve_shadows"`
	Feather         int     `toml:"feather"`
}

// ImageProcessing contains optimizer settings.
type ImageProcessing struct {
	MaxDimension       int               `toml:"max_dimension"`
	Quality            int               `toml:"quality"`
	StripEXIF          bool              `toml:"strip_exif"`
	OutputFormat       string            `toml:"output_format"`
	DeleteOriginals    bool              `toml:"delete_originals"`
	KeepOriginalsDir   string            `toml:"keep_originals_dir"`
	ThumbnailDimension int               `toml:"thumbnail_dimension"`
	ThumbnailQuality   int               `toml:"thumbnail_quality"`
	BackgroundRemoval  BackgroundRemoval `toml:"background_removal"`
}

// Workflow contains daemon timing configuration.
type Workflow struct {
	PollInterval       int `toml:"poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for relic.
//
// Configuration sections by subsystem:
//   - Paths: watch folder and archive/data/log directories
//   - API: catalog publishing endpoint and auth
//   - CDN: image upload endpoint and keys
//   - AI: listing copy model settings (key via RELIC_AI_API_KEY)
//   - Categories: keyword-driven category detection and SKU prefixes
//   - ImageProcessing: optimizer and background removal settings
//   - Workflow: daemon polling intervals
//   - Logging: log format and level
type Config struct {
	Paths           Paths           `toml:"paths"`
	API             API             `toml:"api"`
	CDN             CDN             `toml:"cdn"`
	AI              AI              `toml:"ai"`
	Categories      Categories      `toml:"categories"`
	ImageProcessing ImageProcessing `toml:"image_processing"`
	Workflow        Workflow        `toml:"workflow"`
	Logging         Logging         `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/relic/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A `.env` file next to
// the working directory is loaded on a best-effort basis so the AI key can be
// supplied outside the config file.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	_ = godotenv.Load()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("relic.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	pathFields := []*string{
		&c.Paths.WatchDir,
		&c.Paths.CompletedDir,
		&c.Paths.FailedDir,
		&c.Paths.DataDir,
		&c.Paths.LogDir,
		&c.ImageProcessing.KeepOriginalsDir,
	}
	for _, field := range pathFields {
		if strings.TrimSpace(*field) == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	normalized := make(map[string]Category, len(c.Categories.Entries))
	for id, cat := range c.Categories.Entries {
		cat.Prefix = strings.ToUpper(strings.TrimSpace(cat.Prefix))
		keywords := make([]string, 0, len(cat.Keywords))
		for _, kw := range cat.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		cat.Keywords = keywords
		normalized[strings.ToLower(strings.TrimSpace(id))] = cat
	}
	c.Categories.Entries = normalized
	c.Categories.Default = strings.ToLower(strings.TrimSpace(c.Categories.Default))

	c.ImageProcessing.OutputFormat = strings.ToLower(strings.TrimSpace(c.ImageProcessing.OutputFormat))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// EnsureDirectories creates the directories required for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WatchDir, c.Paths.CompletedDir, c.Paths.FailedDir, c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := strings.TrimSpace(c.ImageProcessing.KeepOriginalsDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create originals backup directory %q: %w", dir, err)
		}
	}
	return nil
}

// PublishURL returns the catalog endpoint honoring the use_production flag.
func (c *Config) PublishURL() string {
	if c.API.UseProduction && strings.TrimSpace(c.API.ProductionURL) != "" {
		return c.API.ProductionURL
	}
	return c.API.BaseURL
}

// AIKey reads the generator API key from the environment.
func (c *Config) AIKey() string {
	return strings.TrimSpace(os.Getenv(AIKeyEnvVar))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
