// Package main provides the entry point for the page recognizer batch tool.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"page-recognizer/internal/config"
	"page-recognizer/internal/evaluation"
	imgpkg "page-recognizer/internal/image"
	"page-recognizer/internal/logger"
	"page-recognizer/internal/recognition"
	"page-recognizer/internal/report"
	"page-recognizer/internal/version"
	"page-recognizer/pkg/colorutil"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// markerSampleSize is the edge length of a sample synthesized from a color.
const markerSampleSize = 32

func main() {
	configPath := flag.String("config", "", "Path to JSON configuration file")
	templates := flag.String("templates", "", "Glob of template images")
	pages := flag.String("pages", "", "Glob of page photographs")
	marker := flag.String("marker", "", "Path to marker sample image")
	markerColor := flag.String("marker-color", "", "Marker color as hex, used when no sample is given")
	truth := flag.String("truth", "", "Comma separated ground-truth template indices, 0 for no page")
	results := flag.String("results", "", "Write a JSON results file")
	debugDir := flag.String("debug-dir", "", "Write annotated debug images to this directory")
	workers := flag.Int("workers", 0, "Parallel template evaluations (0 = all CPUs)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("page-recognizer"))
		return
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Flags given on the command line override the file.
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "templates":
			cfg.Templates = *templates
		case "pages":
			cfg.Pages = *pages
		case "marker":
			cfg.MarkerSample = *marker
		case "marker-color":
			cfg.MarkerColor = *markerColor
		case "truth":
			labels, err := evaluation.ParseLabels(*truth)
			if err != nil {
				flagErr = err
			}
			cfg.GroundTruth = labels
		case "results":
			cfg.ResultsPath = *results
		case "debug-dir":
			cfg.DebugDir = *debugDir
		case "workers":
			cfg.Workers = *workers
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if flagErr != nil {
		fmt.Fprintf(os.Stderr, "Invalid -truth: %v\n", flagErr)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}
	if cfg.Pages == "" {
		fmt.Fprintln(os.Stderr, "Usage: page-recognizer -templates <glob> -pages <glob> (-marker <image> | -marker-color <hex>)")
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("run failed")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	mainLog := logger.Component(log, "main")
	mainLog.Info().Str("version", version.Version).Msg("starting page recognizer")

	params, err := cfg.RecognitionParams(log)
	if err != nil {
		return err
	}

	sample, err := loadMarker(cfg, mainLog)
	if err != nil {
		return err
	}
	defer sample.Close()

	templates, err := imgpkg.LoadGlob(cfg.Templates)
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}
	defer imgpkg.CloseAll(templates)
	mainLog.Info().Int("count", len(templates)).Str("pattern", cfg.Templates).Msg("templates loaded")

	pipeline, err := recognition.NewPipeline(templates, sample, params)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	pages, err := imgpkg.LoadGlob(cfg.Pages)
	if err != nil {
		return fmt.Errorf("pages: %w", err)
	}
	defer imgpkg.CloseAll(pages)
	mainLog.Info().Int("count", len(pages)).Str("pattern", cfg.Pages).Msg("pages loaded")

	out := report.New(params)
	out.AddTemplates(pipeline.Templates())

	for i, res := range pipeline.ClassifyAll(ctx, pages) {
		entry := out.AddPage(pages[i].Name, res)
		if cfg.DebugDir == "" {
			continue
		}
		path, err := report.WriteDebugImage(cfg.DebugDir, pages[i].Name, pages[i].Image, res, pipeline.Template(res.Index))
		if err != nil {
			mainLog.Warn().Err(err).Str("page", pages[i].Name).Msg("debug image failed")
			continue
		}
		entry.DebugImage = path
	}

	if len(cfg.GroundTruth) > 0 {
		summary, err := out.Evaluate(cfg.GroundTruth)
		if err != nil {
			mainLog.Warn().Err(err).Msg("ground truth ignored")
		} else {
			mainLog.Info().Int("tp", summary.TP).Int("fp", summary.FP).Int("tn", summary.TN).Int("missed", summary.Missed).
				Float64("precision", summary.Precision).Float64("recall", summary.Recall).Msg("evaluation")
			fmt.Println(summary.String())
		}
	}

	if cfg.ResultsPath != "" {
		if err := out.Save(cfg.ResultsPath); err != nil {
			return fmt.Errorf("save results: %w", err)
		}
		mainLog.Info().Str("path", cfg.ResultsPath).Msg("results written")
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return nil
}

// loadMarker returns the marker sample image, synthesizing a uniform patch
// when only a marker color is configured.
func loadMarker(cfg *config.Config, log zerolog.Logger) (gocv.Mat, error) {
	if cfg.MarkerSample != "" {
		m, err := imgpkg.Load(cfg.MarkerSample)
		if err != nil {
			return gocv.NewMat(), fmt.Errorf("marker sample: %w", err)
		}
		return m, nil
	}
	c, err := colorutil.ParseHex(cfg.MarkerColor)
	if err != nil {
		return gocv.NewMat(), err
	}
	log.Debug().Str("marker_color", colorutil.Hex(c)).Msg("using synthetic marker sample")
	return recognition.UniformSample(c, markerSampleSize), nil
}
