package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/storegen/storegen/internal/common"
	"gopkg.in/yaml.v2"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

const (
	DefaultSourceRoot      = "apps"
	DefaultMetaFileName    = "app.json"
	DefaultDescFileName    = "description.md"
	DefaultScreenshotsDir  = "screenshots"
	DefaultUIDir           = "ui/dist"
	DefaultUISourceDir     = "ui"
	DefaultUIDataFile      = "ui/src/apps.json"
	DefaultOutputDir       = "deploy"
	DefaultCatalogFileName = "apps.json"
	DefaultUpdateGlob      = "update-*.tar.gz"
	DefaultUpdateManifest  = "update.json"

	// GitHub hard-rejects files at 100 MiB; both thresholds leave headroom
	// below that.
	DefaultSplitThreshold    = 95 * 1024 * 1024
	DefaultRedirectThreshold = 95 * 1024 * 1024
	DefaultChunkSize         = 90 * 1024 * 1024
	DefaultSuffixWidth       = 2

	maxSuffixWidth = 9
)

// Environment overrides, applied after the yaml file. A .env file in the
// working directory is honored the same way.
const (
	envLogLevel        = "STOREGEN_LOG_LEVEL"
	envSourceRoot      = "STOREGEN_SOURCE_ROOT"
	envOutputDir       = "STOREGEN_OUTPUT_DIR"
	envExternalBaseURL = "STOREGEN_EXTERNAL_BASE_URL"
	envSplitThreshold  = "STOREGEN_SPLIT_THRESHOLD"
	envChunkSize       = "STOREGEN_CHUNK_SIZE"
)

type SourceConfig struct {
	Root           string   `yaml:"root"`
	MetaFileName   string   `yaml:"meta_filename"`
	DescFileName   string   `yaml:"desc_filename"`
	ScreenshotsDir string   `yaml:"screenshots_dir"`
	IconFileNames  []string `yaml:"icon_filenames"`
}

type BuildConfig struct {
	UIDir           string   `yaml:"ui_dir"`
	UISourceDir     string   `yaml:"ui_source_dir"`
	UIDataFile      string   `yaml:"ui_data_file"`
	UICommand       []string `yaml:"ui_command"`
	UpdatesDir      string   `yaml:"updates_dir"`
	OutputDir       string   `yaml:"output_dir"`
	CatalogFileName string   `yaml:"catalog_filename"`
}

type AssetsConfig struct {
	ExternalBaseURL   string `yaml:"external_base_url"`
	RedirectThreshold int64  `yaml:"redirect_threshold"`
}

type SplitConfig struct {
	Threshold      int64  `yaml:"threshold"`
	ChunkSize      int64  `yaml:"chunk_size"`
	SuffixWidth    int    `yaml:"suffix_width"`
	UpdateGlob     string `yaml:"update_glob"`
	UpdateManifest string `yaml:"update_manifest"`
}

type Config struct {
	LogLevel LogLevel     `yaml:"log_level"`
	Source   SourceConfig `yaml:"source"`
	Build    BuildConfig  `yaml:"build"`
	Assets   AssetsConfig `yaml:"assets"`
	Split    SplitConfig  `yaml:"split"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config %s: %w", path, err)
	}

	cfg.SetDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = LogLevelInfo
	}

	if c.Source.Root == "" {
		c.Source.Root = DefaultSourceRoot
	}
	if c.Source.MetaFileName == "" {
		c.Source.MetaFileName = DefaultMetaFileName
	}
	if c.Source.DescFileName == "" {
		c.Source.DescFileName = DefaultDescFileName
	}
	if c.Source.ScreenshotsDir == "" {
		c.Source.ScreenshotsDir = DefaultScreenshotsDir
	}
	if len(c.Source.IconFileNames) == 0 {
		c.Source.IconFileNames = []string{"icon.png", "icon.svg"}
	}

	if c.Build.UIDir == "" {
		c.Build.UIDir = DefaultUIDir
	}
	if c.Build.UISourceDir == "" {
		c.Build.UISourceDir = DefaultUISourceDir
	}
	if c.Build.UIDataFile == "" {
		c.Build.UIDataFile = DefaultUIDataFile
	}
	if c.Build.OutputDir == "" {
		c.Build.OutputDir = DefaultOutputDir
	}
	if c.Build.CatalogFileName == "" {
		c.Build.CatalogFileName = DefaultCatalogFileName
	}

	if c.Assets.RedirectThreshold == 0 {
		c.Assets.RedirectThreshold = DefaultRedirectThreshold
	}

	if c.Split.Threshold == 0 {
		c.Split.Threshold = DefaultSplitThreshold
	}
	if c.Split.ChunkSize == 0 {
		c.Split.ChunkSize = DefaultChunkSize
	}
	if c.Split.SuffixWidth == 0 {
		c.Split.SuffixWidth = DefaultSuffixWidth
	}
	if c.Split.UpdateGlob == "" {
		c.Split.UpdateGlob = DefaultUpdateGlob
	}
	if c.Split.UpdateManifest == "" {
		c.Split.UpdateManifest = DefaultUpdateManifest
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(envLogLevel); v != "" {
		c.LogLevel = LogLevel(v)
	}
	if v := os.Getenv(envSourceRoot); v != "" {
		c.Source.Root = v
	}
	if v := os.Getenv(envOutputDir); v != "" {
		c.Build.OutputDir = v
	}
	if v := os.Getenv(envExternalBaseURL); v != "" {
		c.Assets.ExternalBaseURL = v
	}

	if v := os.Getenv(envSplitThreshold); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", envSplitThreshold, common.ErrBadConfig)
		}
		c.Split.Threshold = n
	}
	if v := os.Getenv(envChunkSize); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", envChunkSize, common.ErrBadConfig)
		}
		c.Split.ChunkSize = n
	}

	return nil
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("unknown log level %q: %w", c.LogLevel, common.ErrBadConfig)
	}

	if c.Source.Root == "" {
		return fmt.Errorf("source.root is required: %w", common.ErrBadConfig)
	}
	if c.Build.OutputDir == "" {
		return fmt.Errorf("build.output_dir is required: %w", common.ErrBadConfig)
	}
	if c.Assets.ExternalBaseURL == "" {
		return fmt.Errorf("assets.external_base_url is required: %w", common.ErrBadConfig)
	}

	if c.Split.Threshold < 1 {
		return fmt.Errorf("split.threshold must be positive: %w", common.ErrBadConfig)
	}
	if c.Split.ChunkSize < 1 {
		return fmt.Errorf("split.chunk_size must be positive: %w", common.ErrBadConfig)
	}

	// Chunks at or above the threshold would themselves be split
	// candidates.
	if c.Split.ChunkSize >= c.Split.Threshold {
		return fmt.Errorf("split.chunk_size %d must be below split.threshold %d: %w",
			c.Split.ChunkSize, c.Split.Threshold, common.ErrBadConfig)
	}

	if c.Assets.RedirectThreshold < 1 {
		return fmt.Errorf("assets.redirect_threshold must be positive: %w", common.ErrBadConfig)
	}
	if c.Assets.RedirectThreshold > c.Split.Threshold {
		return fmt.Errorf("assets.redirect_threshold %d exceeds split.threshold %d: %w",
			c.Assets.RedirectThreshold, c.Split.Threshold, common.ErrBadConfig)
	}

	if c.Split.SuffixWidth < 1 || c.Split.SuffixWidth > maxSuffixWidth {
		return fmt.Errorf("split.suffix_width must be between 1 and %d: %w", maxSuffixWidth, common.ErrBadConfig)
	}

	if _, err := filepath.Match(c.Split.UpdateGlob, "update-1.0.0.tar.gz"); err != nil {
		return fmt.Errorf("split.update_glob %q is not a valid pattern: %w", c.Split.UpdateGlob, common.ErrBadConfig)
	}

	return nil
}
