// Package config loads and validates the recognizer configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"page-recognizer/internal/recognition"
	"page-recognizer/pkg/colorutil"

	"github.com/rs/zerolog"
)

// Config holds the run configuration. Fields may be loaded from a JSON file
// and overridden by command-line flags.
type Config struct {
	// Inputs
	Templates    string `json:"templates"`
	Pages        string `json:"pages"`
	MarkerSample string `json:"marker_sample,omitempty"`
	MarkerColor  string `json:"marker_color,omitempty"`
	GroundTruth  []int  `json:"ground_truth,omitempty"`

	// Recognition parameters
	ContentThreshold        int     `json:"content_threshold"`
	MarkerThreshold         int     `json:"marker_threshold"`
	TemplateMarkerThreshold int     `json:"template_marker_threshold"`
	CloseIterations         int     `json:"close_iterations"`
	HistogramBins           int     `json:"histogram_bins"`
	ColorSpace              string  `json:"color_space"`
	CannyLow                float64 `json:"canny_low"`
	CannyHigh               float64 `json:"canny_high"`
	MatchMethod             string  `json:"match_method"`
	OrientationSearch       bool    `json:"orientation_search"`
	Workers                 int     `json:"workers"`
	PageTimeout             string  `json:"page_timeout,omitempty"`

	// Output
	LogLevel    string `json:"log_level"`
	LogFormat   string `json:"log_format"`
	ResultsPath string `json:"results_path,omitempty"`
	DebugDir    string `json:"debug_dir,omitempty"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		ContentThreshold:        recognition.DefaultContentThreshold,
		MarkerThreshold:         recognition.DefaultMarkerThreshold,
		TemplateMarkerThreshold: recognition.DefaultTemplateMarkerThreshold,
		CloseIterations:         recognition.DefaultCloseIterations,
		HistogramBins:           recognition.DefaultBins,
		ColorSpace:              "hls",
		CannyLow:                recognition.DefaultCannyLow,
		CannyHigh:               recognition.DefaultCannyHigh,
		MatchMethod:             "ccorr_normed",
		OrientationSearch:       true,
		LogLevel:                "info",
		LogFormat:               "console",
	}
}

// Validate clamps out-of-range values to their defaults. It returns an error
// only when the configuration cannot be used.
func (c *Config) Validate() error {
	if c.ContentThreshold < 0 || c.ContentThreshold > 256 {
		c.ContentThreshold = recognition.DefaultContentThreshold
	}
	if c.MarkerThreshold < 0 || c.MarkerThreshold > 256 {
		c.MarkerThreshold = recognition.DefaultMarkerThreshold
	}
	if c.TemplateMarkerThreshold < 0 || c.TemplateMarkerThreshold > 256 {
		c.TemplateMarkerThreshold = recognition.DefaultTemplateMarkerThreshold
	}
	if c.CloseIterations < 0 {
		c.CloseIterations = recognition.DefaultCloseIterations
	}
	if c.HistogramBins < 1 || c.HistogramBins > 256 {
		c.HistogramBins = recognition.DefaultBins
	}
	if c.CannyLow < 0 {
		c.CannyLow = recognition.DefaultCannyLow
	}
	if c.CannyHigh < c.CannyLow {
		c.CannyHigh = c.CannyLow * 3
	}
	if c.Workers < 0 {
		c.Workers = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}

	if c.Templates == "" {
		return errors.New("no template pattern configured")
	}
	if c.MarkerSample == "" && c.MarkerColor == "" {
		return errors.New("either marker_sample or marker_color is required")
	}
	if c.MarkerColor != "" {
		if _, err := colorutil.ParseHex(c.MarkerColor); err != nil {
			return fmt.Errorf("marker_color: %w", err)
		}
	}
	if _, err := recognition.ParseColorSpace(c.ColorSpace); err != nil {
		return err
	}
	if _, err := recognition.ParseMatchMethod(c.MatchMethod); err != nil {
		return err
	}
	if _, err := c.pageTimeout(); err != nil {
		return err
	}
	return nil
}

func (c *Config) pageTimeout() (time.Duration, error) {
	if c.PageTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.PageTimeout)
	if err != nil {
		return 0, fmt.Errorf("page_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("page_timeout must not be negative, got %v", d)
	}
	return d, nil
}

// RecognitionParams maps the configuration to pipeline parameters.
func (c *Config) RecognitionParams(log zerolog.Logger) (recognition.Params, error) {
	p := recognition.DefaultParams()

	space, err := recognition.ParseColorSpace(c.ColorSpace)
	if err != nil {
		return p, err
	}
	method, err := recognition.ParseMatchMethod(c.MatchMethod)
	if err != nil {
		return p, err
	}
	timeout, err := c.pageTimeout()
	if err != nil {
		return p, err
	}

	p.Color.Space = space
	p.Color.Bins = []int{c.HistogramBins}
	p.ContentThreshold = c.ContentThreshold
	p.MarkerThreshold = c.MarkerThreshold
	p.TemplateMarkerThreshold = c.TemplateMarkerThreshold
	p.CloseIterations = c.CloseIterations
	p.Edges = recognition.EdgeParams{Low: float32(c.CannyLow), High: float32(c.CannyHigh)}
	p.Match = method
	p.OrientationSearch = c.OrientationSearch
	p.Workers = c.Workers
	p.PageTimeout = timeout
	p.Logger = log
	return p, p.Validate()
}

// Load reads configuration from the given JSON file path. Fields absent from
// the file keep their DefaultConfig values. A missing file is an error that
// matches fs.ErrNotExist. Validation is left to the caller so that flags can
// be applied first.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("config file %s does not exist: %w", path, err)
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
