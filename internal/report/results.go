// Package report persists run results and writes debug images.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"page-recognizer/internal/evaluation"
	"page-recognizer/internal/recognition"
	"page-recognizer/internal/version"
	"page-recognizer/pkg/geometry"
)

// FileVersion is the format version of a run file.
const FileVersion = 1

// File represents the results of one recognition run.
type File struct {
	Version     int       `json:"version"`
	Tool        string    `json:"tool_version"`
	Created     time.Time `json:"created"`
	Modified    time.Time `json:"modified"`
	ColorSpace  string    `json:"color_space"`
	MatchMethod string    `json:"match_method"`

	Templates []TemplateEntry `json:"templates"`
	Pages     []PageEntry     `json:"pages"`

	Summary *evaluation.Report `json:"summary,omitempty"`
}

// TemplateEntry describes a prepared template.
type TemplateEntry struct {
	Index   int                `json:"index"`
	Name    string             `json:"name"`
	Width   int                `json:"width"`
	Height  int                `json:"height"`
	Corners []geometry.Point2D `json:"corners,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// PageEntry holds the outcome for one page.
type PageEntry struct {
	Name        string                      `json:"name"`
	Predicted   int                         `json:"predicted"`
	Template    string                      `json:"template,omitempty"`
	Score       float64                     `json:"score"`
	Orientation int                         `json:"orientation"`
	Truth       *int                        `json:"truth,omitempty"`
	Corners     []geometry.Point2D          `json:"corners,omitempty"`
	Candidates  []recognition.TemplateScore `json:"candidates,omitempty"`
	Error       string                      `json:"error,omitempty"`
	DebugImage  string                      `json:"debug_image,omitempty"`
}

// New creates an empty run file.
func New(p recognition.Params) *File {
	now := time.Now()
	return &File{
		Version:     FileVersion,
		Tool:        version.Version,
		Created:     now,
		Modified:    now,
		ColorSpace:  p.Color.Space.String(),
		MatchMethod: p.Match.String(),
	}
}

// AddTemplates records the prepared templates.
func (f *File) AddTemplates(templates []*recognition.TemplateRecord) {
	for _, t := range templates {
		e := TemplateEntry{Index: t.Index, Name: t.Name, Width: t.Width, Height: t.Height}
		if t.CornerErr != nil {
			e.Error = t.CornerErr.Error()
		} else {
			e.Corners = t.Corners.Points()
		}
		f.Templates = append(f.Templates, e)
	}
}

// AddPage records the result for a page and returns its entry.
func (f *File) AddPage(name string, res recognition.ClassificationResult) *PageEntry {
	e := PageEntry{
		Name:        name,
		Predicted:   res.Index,
		Template:    res.Name,
		Score:       res.Score,
		Orientation: res.Orientation,
		Candidates:  res.Candidates,
	}
	if res.Corners != (recognition.CornerSet{}) {
		e.Corners = res.Corners.Points()
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	f.Pages = append(f.Pages, e)
	f.Modified = time.Now()
	return &f.Pages[len(f.Pages)-1]
}

// Predictions returns the predicted template index of every page, in order.
func (f *File) Predictions() []int {
	out := make([]int, len(f.Pages))
	for i, p := range f.Pages {
		out[i] = p.Predicted
	}
	return out
}

// Evaluate attaches ground truth to the pages and computes the summary.
func (f *File) Evaluate(truth []int) (evaluation.Report, error) {
	r, err := evaluation.Evaluate(f.Predictions(), truth)
	if err != nil {
		return r, err
	}
	for i := range f.Pages {
		v := truth[i]
		f.Pages[i].Truth = &v
	}
	f.Summary = &r
	return r, nil
}

// Load loads a run file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Save saves the run file, creating its directory if needed.
func (f *File) Save(path string) error {
	f.Modified = time.Now()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}
