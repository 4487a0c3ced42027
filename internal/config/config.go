package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clapp-dev/clapp/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Config keys.
const (
	KeyAppsRoot        = "apps_root"
	KeyIndexURL        = "index_url"
	KeyIndexTimeout    = "index_timeout"
	KeyDownloadTimeout = "download_timeout"
	KeyPublishDir      = "publish_dir"
	KeyPublishBaseURL  = "publish_base_url"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyAuthor          = "author"
	KeyGitToken        = "git_token"
	KeyCatalogRepo     = "catalog_repo"
)

// Defaults for the timeout keys.
const (
	DefaultIndexTimeout    = 10 * time.Second
	DefaultDownloadTimeout = 60 * time.Second
)

// Settings is a typed snapshot of the configuration, handed to the service
// layer at startup.
type Settings struct {
	AppsRoot        string
	IndexURL        string
	IndexTimeout    time.Duration
	DownloadTimeout time.Duration
	PublishDir      string
	PublishBaseURL  string
	LogLevel        string
	LogFormat       string
	Author          string
	GitToken        string
	CatalogRepo     string
}

// Dir returns the path to the clapp config directory (~/.clapp/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.clapp/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	setDefaults(viper.GetViper())
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyAppsRoot, filepath.Join(Dir(), "apps"))
	v.SetDefault(KeyIndexURL, branding.IndexURL())
	v.SetDefault(KeyIndexTimeout, DefaultIndexTimeout)
	v.SetDefault(KeyDownloadTimeout, DefaultDownloadTimeout)
	v.SetDefault(KeyPublishDir, ".")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "console")
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Current builds a Settings snapshot from the loaded configuration.
func Current() Settings {
	return fromViper(viper.GetViper())
}

func fromViper(v *viper.Viper) Settings {
	s := Settings{
		AppsRoot:        expandHome(v.GetString(KeyAppsRoot)),
		IndexURL:        v.GetString(KeyIndexURL),
		IndexTimeout:    v.GetDuration(KeyIndexTimeout),
		DownloadTimeout: v.GetDuration(KeyDownloadTimeout),
		PublishDir:      expandHome(v.GetString(KeyPublishDir)),
		PublishBaseURL:  v.GetString(KeyPublishBaseURL),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
		Author:          v.GetString(KeyAuthor),
		GitToken:        v.GetString(KeyGitToken),
		CatalogRepo:     v.GetString(KeyCatalogRepo),
	}
	if s.IndexTimeout <= 0 {
		s.IndexTimeout = DefaultIndexTimeout
	}
	if s.DownloadTimeout <= 0 {
		s.DownloadTimeout = DefaultDownloadTimeout
	}
	return s
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
