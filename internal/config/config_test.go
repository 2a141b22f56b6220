package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"page-recognizer/internal/recognition"

	"github.com/rs/zerolog"
)

func TestLoadMissingFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	if _, err := Load(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestLoadKeepsDefaultsForAbsentFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"templates":"refs/*.png","marker_threshold":12}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Templates != "refs/*.png" || cfg.MarkerThreshold != 12 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.ContentThreshold != 160 || cfg.TemplateMarkerThreshold != 20 || cfg.MatchMethod != "ccorr_normed" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestSaveLoadPreservesFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.Templates = "refs/*.png"
	cfg.MarkerColor = "#78c8ff"
	cfg.GroundTruth = []int{1, 2, 0}
	cfg.PageTimeout = "2s"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Templates != cfg.Templates || got.MarkerColor != cfg.MarkerColor || len(got.GroundTruth) != 3 || got.PageTimeout != "2s" {
		t.Fatalf("loaded %+v", got)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"templates":"a","bogus":1}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestValidateClampsAndRequiresInputs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Templates = "refs/*.png"
	cfg.MarkerSample = "marker.png"
	cfg.ContentThreshold = 900
	cfg.HistogramBins = 0
	cfg.CannyLow = 80
	cfg.CannyHigh = 10
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.ContentThreshold != 160 || cfg.HistogramBins != 16 || cfg.CannyHigh != 240 {
		t.Fatalf("values not clamped: %+v", cfg)
	}

	for name, mutate := range map[string]func(*Config){
		"no templates":  func(c *Config) { c.Templates = "" },
		"no marker":     func(c *Config) { c.MarkerSample = "" },
		"bad color":     func(c *Config) { c.MarkerSample = ""; c.MarkerColor = "blue" },
		"bad space":     func(c *Config) { c.ColorSpace = "cmyk" },
		"bad method":    func(c *Config) { c.MatchMethod = "sqdiff" },
		"bad timeout":   func(c *Config) { c.PageTimeout = "soon" },
		"minus timeout": func(c *Config) { c.PageTimeout = "-1s" },
	} {
		c := DefaultConfig()
		c.Templates = "refs/*.png"
		c.MarkerSample = "marker.png"
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestRecognitionParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Templates = "refs/*.png"
	cfg.MarkerColor = "78c8ff"
	cfg.ColorSpace = "hsv"
	cfg.MatchMethod = "ccoeff_normed"
	cfg.HistogramBins = 32
	cfg.Workers = 2
	cfg.PageTimeout = "1500ms"
	cfg.OrientationSearch = false

	p, err := cfg.RecognitionParams(zerolog.Nop())
	if err != nil {
		t.Fatalf("RecognitionParams: %v", err)
	}
	if p.Color.Space != recognition.ColorSpaceHSV || p.Match != recognition.MatchCcoeffNormed {
		t.Errorf("space/method not mapped: %v %v", p.Color.Space, p.Match)
	}
	if len(p.Color.Bins) != 1 || p.Color.Bins[0] != 32 {
		t.Errorf("bins = %v", p.Color.Bins)
	}
	if p.Workers != 2 || p.PageTimeout != 1500*time.Millisecond || p.OrientationSearch {
		t.Errorf("unexpected params %+v", p)
	}
	if p.ContentThreshold != 160 || p.MarkerThreshold != 10 || p.TemplateMarkerThreshold != 20 || p.CloseIterations != 3 {
		t.Errorf("thresholds not carried over: %+v", p)
	}
}
