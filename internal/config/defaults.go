package config

import (
	"path/filepath"
	"time"
)

const (
	defaultImageName        = "pc-teams-background.png"
	defaultMaxSearchResults = 1000
	defaultSearchDays       = 30
	defaultRefreshDays      = 1
	defaultRequestTimeout   = 60 * time.Second
	defaultRequestsPerSec   = 5
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Settings) {
	if cfg.ImageName == "" {
		cfg.ImageName = defaultImageName
	}
	if cfg.ImageFolder == "" {
		cfg.ImageFolder = cfg.TeamsImageFolder
	}
	if cfg.MaxSearchResults == 0 {
		cfg.MaxSearchResults = defaultMaxSearchResults
	}
	for i := range cfg.Collections {
		if cfg.Collections[i].SearchDays == 0 {
			cfg.Collections[i].SearchDays = defaultSearchDays
		}
	}
	if cfg.AOIs != nil && cfg.AOIs.RefreshDays == 0 {
		cfg.AOIs.RefreshDays = defaultRefreshDays
	}
	if cfg.ImageFolder != "" {
		if cfg.ImageInfoPath == "" {
			cfg.ImageInfoPath = filepath.Join(cfg.ImageFolder, stem(cfg.ImageName)+"-info.json")
		}
		if cfg.HistoryPath == "" {
			cfg.HistoryPath = filepath.Join(cfg.ImageFolder, stem(cfg.ImageName)+"-history.db")
		}
	}
	if cfg.RequestTimeout == "" {
		cfg.RequestTimeout = defaultRequestTimeout.String()
	}
	if cfg.RequestsPerSec == 0 {
		cfg.RequestsPerSec = defaultRequestsPerSec
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}
