package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"photomedit/internal/logging"
	"photomedit/internal/mediaid"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrLimitExceeded means an operation would exceed the configured upload
// or download bounds. Checked before any write or archive construction.
var ErrLimitExceeded = errors.New("operation exceeds configured limits")

// Defaults applied when the config file leaves values unset.
const (
	DefaultPort                  = 4750
	DefaultMaxUploadFiles        = 500
	DefaultMaxUploadBytesPerFile = 500 << 20 // 500 MiB
	DefaultMaxUploadBytesTotal   = 10 << 30  // 10 GiB
	DefaultMaxDownloadFiles      = 10000
	DefaultMaxDownloadBytes      = 20 << 30 // 20 GiB
)

// Library describes one configured library root. Immutable for the process
// lifetime.
type Library struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	RootPath string `yaml:"rootPath"`
}

// Validate implements ozzo validation for a single library entry.
func (l Library) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.ID, validation.Required, validation.Length(1, 64), validation.By(idSeparatorFree)),
		validation.Field(&l.Name, validation.Required),
		validation.Field(&l.RootPath, validation.Required, validation.By(absoluteExistingDir)),
	)
}

// Limits bounds upload and export operations.
type Limits struct {
	MaxUploadFiles        int   `yaml:"maxUploadFiles"`
	MaxUploadBytesPerFile int64 `yaml:"maxUploadBytesPerFile"`
	MaxUploadBytesTotal   int64 `yaml:"maxUploadBytesTotal"`
	MaxDownloadFiles      int   `yaml:"maxDownloadFiles"`
	MaxDownloadBytes      int64 `yaml:"maxDownloadBytes"`
}

// DAM configures an optional digital asset manager drop folder that
// reviewed media can be published into.
type DAM struct {
	Enabled    bool   `yaml:"enabled"`
	Name       string `yaml:"name"`
	URL        string `yaml:"url"`
	FolderPath string `yaml:"folderPath"`
}

// Validate implements ozzo validation for the DAM section. The section is
// only checked when enabled.
func (d DAM) Validate() error {
	if !d.Enabled {
		return nil
	}
	return validation.ValidateStruct(&d,
		validation.Field(&d.FolderPath, validation.Required, validation.By(absolutePath)),
	)
}

// Config is the full engine configuration as loaded from YAML.
type Config struct {
	Port               int       `yaml:"port"`
	Libraries          []Library `yaml:"libraries"`
	UploadRoot         string    `yaml:"uploadRoot"`
	ThumbnailCacheRoot string    `yaml:"thumbnailCacheRoot"`
	Limits             Limits    `yaml:"limits"`
	DAM                DAM       `yaml:"dam"`
}

// fileConfig mirrors the on-disk YAML layout, which nests limits by
// operation (original config.yaml shape).
type fileConfig struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Libraries          []Library `yaml:"libraries"`
	UploadRoot         string    `yaml:"uploadRoot"`
	ThumbnailCacheRoot string    `yaml:"thumbnailCacheRoot"`
	Limits             struct {
		Upload struct {
			MaxFiles        int   `yaml:"maxFiles"`
			MaxBytesPerFile int64 `yaml:"maxBytesPerFile"`
			MaxBytesTotal   int64 `yaml:"maxBytesTotal"`
		} `yaml:"upload"`
		Download struct {
			MaxFiles int   `yaml:"maxFiles"`
			MaxBytes int64 `yaml:"maxBytes"`
		} `yaml:"download"`
	} `yaml:"limits"`
	DAM DAM `yaml:"dam"`
}

// Load reads the configuration file and returns a validated Config.
// A .env file in the working directory is loaded first so that deployments
// can override the config path and log level without editing the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logging.Warn("could not load .env file: %v", err)
	}

	path := os.Getenv("PHOTOMEDIT_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFile(path)
}

// LoadFile reads and validates the configuration at the given path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := &Config{
		Port:               fc.Server.Port,
		Libraries:          fc.Libraries,
		UploadRoot:         fc.UploadRoot,
		ThumbnailCacheRoot: fc.ThumbnailCacheRoot,
		Limits: Limits{
			MaxUploadFiles:        fc.Limits.Upload.MaxFiles,
			MaxUploadBytesPerFile: fc.Limits.Upload.MaxBytesPerFile,
			MaxUploadBytesTotal:   fc.Limits.Upload.MaxBytesTotal,
			MaxDownloadFiles:      fc.Limits.Download.MaxFiles,
			MaxDownloadBytes:      fc.Limits.Download.MaxBytes,
		},
		DAM: fc.DAM,
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	dirs := []string{cfg.UploadRoot, cfg.ThumbnailCacheRoot}
	if cfg.DAM.Enabled {
		dirs = append(dirs, cfg.DAM.FolderPath)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Limits.MaxUploadFiles == 0 {
		c.Limits.MaxUploadFiles = DefaultMaxUploadFiles
	}
	if c.Limits.MaxUploadBytesPerFile == 0 {
		c.Limits.MaxUploadBytesPerFile = DefaultMaxUploadBytesPerFile
	}
	if c.Limits.MaxUploadBytesTotal == 0 {
		c.Limits.MaxUploadBytesTotal = DefaultMaxUploadBytesTotal
	}
	if c.Limits.MaxDownloadFiles == 0 {
		c.Limits.MaxDownloadFiles = DefaultMaxDownloadFiles
	}
	if c.Limits.MaxDownloadBytes == 0 {
		c.Limits.MaxDownloadBytes = DefaultMaxDownloadBytes
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Libraries, validation.Required),
		validation.Field(&c.UploadRoot, validation.Required, validation.By(absolutePath)),
		validation.Field(&c.ThumbnailCacheRoot, validation.Required, validation.By(absolutePath)),
	); err != nil {
		return err
	}
	if err := c.DAM.Validate(); err != nil {
		return fmt.Errorf("dam: %w", err)
	}

	seen := make(map[string]bool, len(c.Libraries))
	for _, lib := range c.Libraries {
		if err := lib.Validate(); err != nil {
			return fmt.Errorf("library %q: %w", lib.ID, err)
		}
		if seen[lib.ID] {
			return fmt.Errorf("duplicate library id %q", lib.ID)
		}
		seen[lib.ID] = true
	}
	return nil
}

// idSeparatorFree keeps library ids embeddable in media ids, which join
// the library id and relative path with mediaid.Separator.
func idSeparatorFree(value interface{}) error {
	s, _ := value.(string)
	if strings.Contains(s, mediaid.Separator) {
		return fmt.Errorf("must not contain %q", mediaid.Separator)
	}
	return nil
}

func absolutePath(value interface{}) error {
	s, _ := value.(string)
	if !filepath.IsAbs(s) {
		return fmt.Errorf("must be an absolute path")
	}
	return nil
}

func absoluteExistingDir(value interface{}) error {
	s, _ := value.(string)
	if !filepath.IsAbs(s) {
		return fmt.Errorf("must be an absolute path")
	}
	info, err := os.Stat(s)
	if err != nil {
		return fmt.Errorf("must be an existing directory")
	}
	if !info.IsDir() {
		return fmt.Errorf("must be a directory")
	}
	return nil
}
