// Package config loads the YAML settings that drive background generation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/stacbg/internal/models"
)

// Settings holds all configuration for the application.
type Settings struct {
	Debug            bool                    `yaml:"debug"`
	ImageName        string                  `yaml:"image_name"`
	ImageFolder      string                  `yaml:"image_folder"`
	TeamsImageFolder string                  `yaml:"teams_image_folder,omitempty"`
	Collections      []models.CollectionSpec `yaml:"collections"`
	Width            int                     `yaml:"width"`
	Height           int                     `yaml:"height"`
	ThumbnailWidth   int                     `yaml:"thumbnail_width"`
	ThumbnailHeight  int                     `yaml:"thumbnail_height"`
	APIs             APIConfig               `yaml:"apis"`
	MaxSearchResults int                     `yaml:"max_search_results"`
	AOIs             *AOIConfig              `yaml:"aois"`
	ImageInfoPath    string                  `yaml:"image_info_path"`
	HistoryPath      string                  `yaml:"history_path"`
	ForceRegenAfter  string                  `yaml:"force_regen_after"`
	MirrorImage      bool                    `yaml:"mirror_image"`
	RequestTimeout   string                  `yaml:"request_timeout"`
	RequestsPerSec   float64                 `yaml:"requests_per_second"`
	Server           ServerConfig            `yaml:"server"`
}

// APIConfig holds the catalog and render service endpoints.
type APIConfig struct {
	STAC  string `yaml:"stac"`
	Info  string `yaml:"info"`
	Image string `yaml:"image"`
}

// AOIConfig points at the tracked areas of interest.
type AOIConfig struct {
	FeatureCollectionPath string `yaml:"feature_collection_path"`
	RefreshDays           int    `yaml:"refresh_days"`
}

// ServerConfig holds preview server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Load reads and parses the settings file at path, applies defaults, expands
// paths and validates the result. Every failure wraps models.ErrConfiguration.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read settings: %w", models.ErrConfiguration, err)
	}

	var cfg Settings
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse settings: %w", models.ErrConfiguration, err)
	}

	configDir := filepath.Dir(path)
	cfg.ImageFolder = expandPath(cfg.ImageFolder, configDir)
	cfg.TeamsImageFolder = expandPath(cfg.TeamsImageFolder, configDir)
	cfg.ImageInfoPath = expandPath(cfg.ImageInfoPath, configDir)
	cfg.HistoryPath = expandPath(cfg.HistoryPath, configDir)
	if cfg.AOIs != nil {
		cfg.AOIs.FeatureCollectionPath = expandPath(cfg.AOIs.FeatureCollectionPath, configDir)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ImagePath is where the background image is written.
func (s *Settings) ImagePath() string {
	return filepath.Join(s.ImageFolder, s.ImageName)
}

// ThumbnailPath is where the JPEG thumbnail is written.
func (s *Settings) ThumbnailPath() string {
	return filepath.Join(s.ImageFolder, stem(s.ImageName)+"_thumbnail.jpg")
}

// Collection returns the configured collection with the given id.
func (s *Settings) Collection(id string) (models.CollectionSpec, bool) {
	for _, c := range s.Collections {
		if c.ID == id {
			return c, true
		}
	}
	return models.CollectionSpec{}, false
}

// ForceRegenAge returns the parsed force_regen_after value as of now, zero
// when unset.
func (s *Settings) ForceRegenAge(now time.Time) (time.Duration, error) {
	if strings.TrimSpace(s.ForceRegenAfter) == "" {
		return 0, nil
	}
	return ParseAge(s.ForceRegenAfter, now)
}

// Timeout returns the per-request timeout for outgoing HTTP calls.
func (s *Settings) Timeout() time.Duration {
	d, err := time.ParseDuration(s.RequestTimeout)
	if err != nil || d <= 0 {
		return defaultRequestTimeout
	}
	return d
}

// RefreshDays returns the AOI refresh interval, zero when AOIs are not configured.
func (s *Settings) RefreshDays() int {
	if s.AOIs == nil {
		return 0
	}
	return s.AOIs.RefreshDays
}

func stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// expandPath converts a path to absolute. "~/" is relative to the home
// directory; any other relative path is relative to configDir.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
		return path
	}
	return filepath.Join(configDir, path)
}
