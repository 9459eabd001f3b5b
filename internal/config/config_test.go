package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/stacbg/internal/models"
)

const minimal = `
image_folder: "./out"
collections:
  - id: sentinel-2-l2a
    rendering_option: "Natural color"
    filters:
      - property: "eo:cloud_cover"
        op: "<"
        value: 10
  - id: landsat-c2-l2
    search_days: 7
width: 1920
height: 1080
thumbnail_width: 280
thumbnail_height: 158
apis:
  stac: "https://example.com/stac/v1"
  info: "https://example.com/data/v1/mosaic/info"
  image: "https://example.com/data/v1/image/request"
`

func writeSettings(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(writeSettings(t, dir, minimal))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.ImageFolder != filepath.Join(dir, "out") {
		t.Errorf("image_folder = %s", cfg.ImageFolder)
	}
	if cfg.ImagePath() != filepath.Join(dir, "out", "pc-teams-background.png") {
		t.Errorf("image path = %s", cfg.ImagePath())
	}
	if cfg.ThumbnailPath() != filepath.Join(dir, "out", "pc-teams-background_thumbnail.jpg") {
		t.Errorf("thumbnail path = %s", cfg.ThumbnailPath())
	}
	if cfg.ImageInfoPath != filepath.Join(dir, "out", "pc-teams-background-info.json") {
		t.Errorf("image_info_path = %s", cfg.ImageInfoPath)
	}
	if cfg.HistoryPath != filepath.Join(dir, "out", "pc-teams-background-history.db") {
		t.Errorf("history_path = %s", cfg.HistoryPath)
	}
	if cfg.MaxSearchResults != 1000 {
		t.Errorf("max_search_results = %d", cfg.MaxSearchResults)
	}
	if cfg.Collections[0].SearchDays != 30 || cfg.Collections[1].SearchDays != 7 {
		t.Errorf("search_days = %d, %d", cfg.Collections[0].SearchDays, cfg.Collections[1].SearchDays)
	}
	f := cfg.Collections[0].Filters[0]
	if f.Property != "eo:cloud_cover" || f.Op != "<" || f.Value != 10 {
		t.Errorf("filter = %+v", f)
	}
	if cfg.Timeout() != 60*time.Second || cfg.RequestsPerSec != 5 {
		t.Errorf("timeout %v, rps %v", cfg.Timeout(), cfg.RequestsPerSec)
	}
	if cfg.AOIs != nil || cfg.RefreshDays() != 0 {
		t.Error("aois should be unset")
	}
	if age, err := cfg.ForceRegenAge(time.Now()); err != nil || age != 0 {
		t.Errorf("ForceRegenAge = %v, %v", age, err)
	}
	if c, ok := cfg.Collection("landsat-c2-l2"); !ok || c.SearchDays != 7 {
		t.Errorf("Collection lookup = %+v, %v", c, ok)
	}
	if _, ok := cfg.Collection("nope"); ok {
		t.Error("unknown collection found")
	}
}

func TestLoad_AOIsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	fc := filepath.Join(dir, "aois.geojson")
	if err := os.WriteFile(fc, []byte(`{"type":"FeatureCollection","features":[]}`), 0644); err != nil {
		t.Fatal(err)
	}
	content := minimal + `
debug: true
image_name: "bg.jpg"
aois:
  feature_collection_path: "aois.geojson"
force_regen_after: "3 days"
mirror_image: true
request_timeout: "15s"
`
	cfg, err := Load(writeSettings(t, dir, content))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug || !cfg.MirrorImage {
		t.Error("debug and mirror_image should be true")
	}
	if cfg.AOIs.FeatureCollectionPath != fc {
		t.Errorf("feature_collection_path = %s", cfg.AOIs.FeatureCollectionPath)
	}
	if cfg.RefreshDays() != 1 {
		t.Errorf("refresh_days = %d", cfg.RefreshDays())
	}
	if age, _ := cfg.ForceRegenAge(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)); age != 72*time.Hour {
		t.Errorf("force_regen_after = %v", age)
	}
	if cfg.ThumbnailPath() != filepath.Join(dir, "out", "bg_thumbnail.jpg") {
		t.Errorf("thumbnail path = %s", cfg.ThumbnailPath())
	}
	if cfg.Timeout() != 15*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout())
	}
}

func TestLoad_LegacyFolderKey(t *testing.T) {
	dir := t.TempDir()
	content := strings.Replace(minimal, `image_folder: "./out"`, `teams_image_folder: "/tmp/teams"`, 1)
	cfg, err := Load(writeSettings(t, dir, content))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ImageFolder != "/tmp/teams" {
		t.Errorf("image_folder = %s", cfg.ImageFolder)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"missing aoi file", minimal + "aois:\n  feature_collection_path: missing.geojson\n", "does not exist"},
		{"bad phrase", minimal + "force_regen_after: \"someday soon\"\n", "force_regen_after"},
		{"no collections", strings.Split(minimal, "collections:")[0] + "width: 1\nheight: 1\n", "at least one collection"},
		{"relative api", strings.Replace(minimal, "https://example.com/stac/v1", "/stac", 1), "apis.stac"},
		{"bad yaml", "width: [", "parse settings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSettings(t, t.TempDir(), tt.content))
			if !errors.Is(err, models.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/abs/file", "/abs/file"},
		{"./rel", "/cfg/rel"},
		{"rel/x", "/cfg/rel/x"},
		{"~/pics", filepath.Join(home, "pics")},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in, "/cfg"); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(SettingsEnv, "")
	t.Chdir(t.TempDir())

	if got := ResolvePath("explicit.yaml"); got != "explicit.yaml" {
		t.Errorf("explicit: %s", got)
	}
	if got := ResolvePath(""); got != DefaultSettingsFile {
		t.Errorf("default: %s", got)
	}
	t.Setenv(SettingsEnv, "/etc/stacbg.yaml")
	if got := ResolvePath(""); got != "/etc/stacbg.yaml" {
		t.Errorf("env: %s", got)
	}
}

func TestResolvePath_DotEnv(t *testing.T) {
	t.Setenv(SettingsEnv, "")
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(SettingsEnv+"=from-dotenv.yaml\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if got := ResolvePath(""); got != "from-dotenv.yaml" {
		t.Errorf("dotenv: %s", got)
	}
	t.Setenv(SettingsEnv, "/etc/stacbg.yaml")
	if got := ResolvePath(""); got != "/etc/stacbg.yaml" {
		t.Errorf("environment should win over .env: %s", got)
	}
}
