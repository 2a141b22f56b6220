package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"page-recognizer/internal/recognition"

	"gocv.io/x/gocv"
)

var pageCorners = recognition.CornerSet{{X: 10, Y: 10}, {X: 10, Y: 90}, {X: 70, Y: 90}, {X: 70, Y: 10}}

func TestFileRecordsPagesAndSummary(t *testing.T) {
	f := New(recognition.DefaultParams())
	f.AddPage("p1", recognition.ClassificationResult{Index: 2, Name: "two", Score: 0.91, Corners: pageCorners})
	f.AddPage("p2", recognition.ClassificationResult{Index: recognition.NoMatch})
	f.AddPage("p3", recognition.ClassificationResult{Index: recognition.NoMatch, Err: errors.New("boom")})

	if got := f.Predictions(); len(got) != 3 || got[0] != 2 || got[1] != 0 {
		t.Fatalf("predictions %v", got)
	}
	if f.Pages[1].Corners != nil {
		t.Errorf("page without corners should omit them")
	}
	if f.Pages[2].Error != "boom" {
		t.Errorf("error not recorded: %q", f.Pages[2].Error)
	}

	r, err := f.Evaluate([]int{2, 0, 5})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if r.TP != 1 || r.TN != 1 || r.FP != 1 || r.Missed != 1 {
		t.Fatalf("counts %+v", r.Counts)
	}
	if f.Pages[2].Truth == nil || *f.Pages[2].Truth != 5 {
		t.Fatalf("truth not attached")
	}
	if _, err := f.Evaluate([]int{1}); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}

func TestFileSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "run.json")
	f := New(recognition.DefaultParams())
	f.AddPage("p1", recognition.ClassificationResult{Index: 1, Score: 0.5, Corners: pageCorners})
	if _, err := f.Evaluate([]int{1}); err != nil {
		t.Fatal(err)
	}
	if err := f.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Version != FileVersion || got.ColorSpace != "hls" || got.MatchMethod != "ccorr_normed" {
		t.Fatalf("header %+v", got)
	}
	if len(got.Pages) != 1 || len(got.Pages[0].Corners) != 4 || got.Summary == nil || got.Summary.Precision != 1 {
		t.Fatalf("pages %+v summary %+v", got.Pages, got.Summary)
	}
}

func TestWriteDebugImage(t *testing.T) {
	page := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 100, 80, gocv.MatTypeCV8UC3)
	defer page.Close()
	tmpl := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), 50, 40, gocv.MatTypeCV8UC3)
	defer tmpl.Close()

	rec := &recognition.TemplateRecord{Index: 1, Name: "ref", Image: tmpl, Width: 40, Height: 50}
	res := recognition.ClassificationResult{Index: 1, Score: 0.97, Corners: pageCorners}

	dir := t.TempDir()
	path, err := WriteDebugImage(dir, "page01", page, res, rec)
	if err != nil {
		t.Fatalf("WriteDebugImage: %v", err)
	}
	if path != filepath.Join(dir, "page01_result.png") {
		t.Fatalf("unexpected path %s", path)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("debug image not written: %v", err)
	}
}

func TestAnnotateLeavesInputUntouched(t *testing.T) {
	page := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), 100, 80, gocv.MatTypeCV8UC3)
	defer page.Close()

	out, err := Annotate(page, recognition.ClassificationResult{Index: recognition.NoMatch, Corners: pageCorners})
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	defer out.Close()

	if v := page.GetVecbAt(10, 10); v[0] != 255 || v[1] != 255 || v[2] != 255 {
		t.Fatalf("input modified: %v", v)
	}
	if v := out.GetVecbAt(10, 10); v[0] == 255 && v[1] == 255 && v[2] == 255 {
		t.Fatalf("corner not annotated")
	}
}
