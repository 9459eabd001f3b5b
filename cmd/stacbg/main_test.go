package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/stac/search", func(w http.ResponseWriter, r *http.Request) {
		var feats []interface{}
		for i := 0; i < 3; i++ {
			feats = append(feats, map[string]interface{}{
				"type":       "Feature",
				"id":         fmt.Sprintf("S2_%d", i),
				"collection": "sentinel-2-l2a",
				"properties": map[string]interface{}{"datetime": "2024-01-01T00:00:00Z"},
				"geometry": map[string]interface{}{
					"type":        "Polygon",
					"coordinates": [][][]float64{{{10, 50}, {11, 50}, {11, 51}, {10, 51}, {10, 50}}},
				},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"type": "FeatureCollection", "features": feats})
	})
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"renderOptions": []map[string]string{{"name": "Natural color", "options": "assets=visual"}},
		})
	})
	mux.HandleFunc("/image", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"url": srvURL + "/out.png"})
	})
	mux.HandleFunc("/out.png", func(w http.ResponseWriter, r *http.Request) {
		img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
		for i := range img.Pix {
			img.Pix[i] = 0x7f
		}
		img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
		var buf bytes.Buffer
		_ = png.Encode(&buf, img)
		_, _ = w.Write(buf.Bytes())
	})
	srv := httptest.NewServer(mux)
	srvURL = srv.URL
	t.Cleanup(srv.Close)
	return srv
}

func writeSettings(t *testing.T, apiURL string, extra string) (path, folder string) {
	t.Helper()
	dir := t.TempDir()
	folder = filepath.Join(dir, "backgrounds")
	content := fmt.Sprintf(`image_folder: %s
image_name: bg.png
width: 8
height: 4
thumbnail_width: 4
thumbnail_height: 2
collections:
  - id: sentinel-2-l2a
    rendering_option: Natural color
    search_days: 30
apis:
  stac: %s/stac
  info: %s/info
  image: %s/image
%s`, folder, apiURL, apiURL, apiURL, extra)
	path = filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path, folder
}

func TestRun_Dispatch(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		stdout   string
		stderr   string
	}{
		{"version", []string{"version"}, 0, "stacbg version dev", ""},
		{"help", []string{"help"}, 0, "Usage:", ""},
		{"unknown command", []string{"frobnicate"}, 2, "", "Unknown command: frobnicate"},
		{"aoi without action", []string{"aoi"}, 2, "", "Usage: stacbg aoi"},
		{"bad output format", []string{"status", "-output", "xml"}, 2, "", "invalid output format"},
		{"bad flag", []string{"generate", "-nope"}, 2, "", "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr: %s)", code, tt.wantCode, stderr.String())
			}
			if !strings.Contains(stdout.String(), tt.stdout) {
				t.Errorf("stdout = %q, want to contain %q", stdout.String(), tt.stdout)
			}
			if !strings.Contains(stderr.String(), tt.stderr) {
				t.Errorf("stderr = %q, want to contain %q", stderr.String(), tt.stderr)
			}
		})
	}
}

func TestRun_MissingSettingsFails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"-config", filepath.Join(t.TempDir(), "nope.yaml")}, &stdout, &stderr)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.HasPrefix(stderr.String(), "ERROR: ") || !strings.Contains(stderr.String(), "configuration") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRun_DebugFailurePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic in debug mode")
		}
	}()
	var stdout, stderr bytes.Buffer
	run([]string{"-d", "-config", filepath.Join(t.TempDir(), "nope.yaml")}, &stdout, &stderr)
}

func TestRun_GenerateThenInspect(t *testing.T) {
	srv := fakeBackend(t)
	cfgPath, folder := writeSettings(t, srv.URL, "")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", cfgPath, "-force"}, &stdout, &stderr); code != 0 {
		t.Fatalf("generate exit code = %d: %s", code, stderr.String())
	}
	for _, name := range []string{"bg.png", "bg_thumbnail.jpg", "bg-info.json", "bg-history.db"} {
		if _, err := os.Stat(filepath.Join(folder, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}

	stdout.Reset()
	if code := run([]string{"history", "-config", cfgPath, "-output", "json"}, &stdout, &stderr); code != 0 {
		t.Fatalf("history exit code = %d: %s", code, stderr.String())
	}
	var entries []map[string]interface{}
	if err := json.Unmarshal(stdout.Bytes(), &entries); err != nil {
		t.Fatalf("history output: %v: %s", err, stdout.String())
	}
	if len(entries) != 1 || entries[0]["collection"] != "sentinel-2-l2a" {
		t.Errorf("entries = %v", entries)
	}

	stdout.Reset()
	if code := run([]string{"status", "-config", cfgPath}, &stdout, &stderr); code != 0 {
		t.Fatalf("status exit code = %d: %s", code, stderr.String())
	}
	for _, want := range []string{"Current background: S2_", "Generations recorded: 1"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("status output missing %q:\n%s", want, stdout.String())
		}
	}
}

func TestRun_BrokenHistoryDoesNotAbortGenerate(t *testing.T) {
	srv := fakeBackend(t)
	historyDir := t.TempDir()
	cfgPath, folder := writeSettings(t, srv.URL, "history_path: "+historyDir+"\n")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-config", cfgPath}, &stdout, &stderr); code != 0 {
		t.Fatalf("generate exit code = %d: %s", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(folder, "bg.png")); err != nil {
		t.Errorf("image not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(folder, "bg-info.json")); err != nil {
		t.Errorf("record not written: %v", err)
	}
}

func TestRun_ReadOnlyCommandsDoNotCreateHistory(t *testing.T) {
	cfgPath, folder := writeSettings(t, "http://localhost:1", "")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"status", "-config", cfgPath}, &stdout, &stderr); code != 0 {
		t.Fatalf("status exit code = %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Generations recorded: 0") {
		t.Errorf("status output:\n%s", stdout.String())
	}
	stdout.Reset()
	if code := run([]string{"history", "-config", cfgPath}, &stdout, &stderr); code != 0 {
		t.Fatalf("history exit code = %d: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "No generations recorded.") {
		t.Errorf("history output:\n%s", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(folder, "bg-history.db")); !os.IsNotExist(err) {
		t.Errorf("history database created by a read-only command: %v", err)
	}
}

func TestRun_AOIRequiresConfiguration(t *testing.T) {
	cfgPath, _ := writeSettings(t, "http://localhost:1", "")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"aoi", "list", "-config", cfgPath}, &stdout, &stderr); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "no aois configured") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRun_AOIEnsureIDs(t *testing.T) {
	dir := t.TempDir()
	aoiPath := filepath.Join(dir, "aois.geojson")
	fc := `{"type":"FeatureCollection","features":[
  {"type":"Feature","properties":{"name":"Home"},"geometry":{"type":"Point","coordinates":[1,2]}}
]}`
	if err := os.WriteFile(aoiPath, []byte(fc), 0644); err != nil {
		t.Fatal(err)
	}
	cfgPath, _ := writeSettings(t, "http://localhost:1", "aois:\n  feature_collection_path: "+aoiPath+"\n")

	var stdout, stderr bytes.Buffer
	if code := run([]string{"aoi", "ensure-ids", "-config", cfgPath, "-output", "json"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit code = %d: %s", code, stderr.String())
	}
	var out []map[string]interface{}
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("output: %v: %s", err, stdout.String())
	}
	if len(out) != 1 || out[0]["id"] == "" || out[0]["name"] != "Home" {
		t.Errorf("summaries = %v", out)
	}
	saved, _ := os.ReadFile(aoiPath)
	if !strings.Contains(string(saved), `"id"`) {
		t.Errorf("ids not persisted: %s", saved)
	}
}
