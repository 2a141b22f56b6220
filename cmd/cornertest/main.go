// Command cornertest locates the marker corners of a single image and prints them.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	imgpkg "page-recognizer/internal/image"
	"page-recognizer/internal/recognition"
	"page-recognizer/internal/report"
	"page-recognizer/internal/version"
	"page-recognizer/pkg/colorutil"
	"page-recognizer/pkg/geometry"

	"gocv.io/x/gocv"
)

func main() {
	input := flag.String("i", "", "Path to image")
	markerPath := flag.String("marker", "", "Path to marker sample image")
	markerColor := flag.String("marker-color", "#78c8ff", "Marker color as hex, used when no sample is given")
	mode := flag.String("mode", "page", "Corner mode: page (free-form) or template (bounding box)")
	content := flag.Int("content", recognition.DefaultContentThreshold, "Page content threshold (page mode)")
	threshold := flag.Int("threshold", -1, "Marker threshold (default 10 for pages, 20 for templates)")
	output := flag.String("o", "", "Write the annotated image here")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("cornertest"))
		return
	}

	if *input == "" {
		fmt.Println("Usage: cornertest -i <image> [-marker <sample> | -marker-color <hex>] [-mode page|template] [-o out.png]")
		os.Exit(1)
	}

	img, err := imgpkg.Load(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load image: %v\n", err)
		os.Exit(1)
	}
	defer img.Close()

	var sample gocv.Mat
	if *markerPath != "" {
		sample, err = imgpkg.Load(*markerPath)
	} else {
		c, perr := colorutil.ParseHex(*markerColor)
		if perr != nil {
			fmt.Fprintf(os.Stderr, "Invalid marker color: %v\n", perr)
			os.Exit(1)
		}
		sample = recognition.UniformSample(c, 32)
		h, l, sat := colorutil.RGBToHLS(float64(c.R), float64(c.G), float64(c.B))
		fmt.Printf("Marker %s: HLS %.0f/%.0f/%.0f\n", colorutil.Hex(c), h, l, sat)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to prepare marker sample: %v\n", err)
		os.Exit(1)
	}
	defer sample.Close()

	model, err := recognition.NewColorModel(sample, recognition.DefaultColorModelParams())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build color model: %v\n", err)
		os.Exit(1)
	}
	defer model.Close()
	if err := model.Normalize(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to normalize color model: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== %s: %dx%d, mode %s ===\n", *input, img.Cols(), img.Rows(), *mode)

	var (
		source gocv.Mat
		policy recognition.CornerPolicy
		cutoff = *threshold
	)
	switch *mode {
	case "page":
		source, err = recognition.MaskPageContent(img, *content, recognition.DefaultCloseIterations)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Page masking failed: %v\n", err)
			os.Exit(1)
		}
		defer source.Close()
		policy = recognition.ExtremePointPolicy{}
		if cutoff < 0 {
			cutoff = recognition.DefaultMarkerThreshold
		}
	case "template":
		source = img
		policy = recognition.BoundingBoxPolicy{}
		if cutoff < 0 {
			cutoff = recognition.DefaultTemplateMarkerThreshold
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown mode %q\n", *mode)
		os.Exit(1)
	}

	prob, err := model.BackProject(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Back projection failed: %v\n", err)
		os.Exit(1)
	}
	defer prob.Close()

	mask, err := recognition.Threshold(prob, cutoff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Threshold failed: %v\n", err)
		os.Exit(1)
	}
	defer mask.Close()
	fmt.Printf("Marker pixels: %d (threshold %d)\n", gocv.CountNonZero(mask), cutoff)

	corners, err := recognition.LocateCorners(mask, policy)
	switch {
	case errors.Is(err, recognition.ErrNoCorners):
		fmt.Println("No corners found")
		os.Exit(2)
	case errors.Is(err, recognition.ErrDegenerateGeometry):
		fmt.Printf("Degenerate corners: %v\n", corners)
	case err != nil:
		fmt.Fprintf(os.Stderr, "Corner location failed: %v\n", err)
		os.Exit(1)
	}

	names := [4]string{"top-left", "bottom-left", "bottom-right", "top-right"}
	for i, c := range corners {
		fmt.Printf("  %-12s X=%6.0f Y=%6.0f\n", names[i], c.X, c.Y)
	}
	fmt.Printf("Area: %.0f px, convex: %v\n", corners.Area(), geometry.IsConvex(corners.Points()))

	if *output != "" {
		annotated, err := report.Annotate(img, recognition.ClassificationResult{Index: recognition.NoMatch, Corners: corners})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Annotation failed: %v\n", err)
			os.Exit(1)
		}
		defer annotated.Close()
		if !gocv.IMWrite(*output, annotated) {
			fmt.Fprintf(os.Stderr, "Failed to write %s\n", *output)
			os.Exit(1)
		}
		fmt.Printf("Annotated image written to %s\n", *output)
	}
}
