package recognition

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// NoMatch is the result index when no template scored above zero.
const NoMatch = 0

// MatchMethod selects the similarity measure between edge maps.
type MatchMethod int

const (
	// MatchCcorrNormed is normalized cross-correlation in [0,1].
	MatchCcorrNormed MatchMethod = iota
	// MatchCcoeffNormed is zero-mean normalized cross-correlation in [-1,1].
	MatchCcoeffNormed
)

func (m MatchMethod) String() string {
	switch m {
	case MatchCcorrNormed:
		return "ccorr_normed"
	case MatchCcoeffNormed:
		return "ccoeff_normed"
	default:
		return fmt.Sprintf("MatchMethod(%d)", int(m))
	}
}

// ParseMatchMethod maps a name such as "ccorr_normed" to a MatchMethod.
func ParseMatchMethod(s string) (MatchMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ccorr_normed", "ccorr":
		return MatchCcorrNormed, nil
	case "ccoeff_normed", "ccoeff":
		return MatchCcoeffNormed, nil
	}
	return MatchCcorrNormed, fmt.Errorf("unknown match method %q", s)
}

func (m MatchMethod) mode() gocv.TemplateMatchMode {
	if m == MatchCcoeffNormed {
		return gocv.TmCcoeffNormed
	}
	return gocv.TmCcorrNormed
}

// MatchScore compares two equally sized single-channel images and returns
// their similarity. Undefined scores, such as from an all-black image under
// ccoeff_normed, are reported as 0.
func MatchScore(a, b gocv.Mat, method MatchMethod) (float64, error) {
	if a.Empty() || b.Empty() {
		return 0, fmt.Errorf("match: %w", ErrEmptyImage)
	}
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() {
		return 0, fmt.Errorf("match size mismatch: %dx%d vs %dx%d", a.Cols(), a.Rows(), b.Cols(), b.Rows())
	}

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	if err := gocv.MatchTemplate(a, b, &result, method.mode(), mask); err != nil {
		return 0, fmt.Errorf("match: %w", err)
	}
	if result.Empty() {
		return 0, fmt.Errorf("match produced no result")
	}

	_, maxVal, _, _ := gocv.MinMaxLoc(result)
	score := float64(maxVal)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, nil
	}
	return score, nil
}

// TemplateScore is the outcome of evaluating one template against a page.
type TemplateScore struct {
	Index       int     `json:"index"`
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Orientation int     `json:"orientation"`
	// Skipped is set when no orientation could be rectified.
	Skipped bool `json:"skipped,omitempty"`
}

// ClassificationResult is the outcome of classifying one page.
type ClassificationResult struct {
	// Index is the 1-based template index, or NoMatch.
	Index int
	Name  string
	Score float64
	// Orientation is the cyclic relabeling of Corners that produced Score.
	Orientation int
	Corners     CornerSet
	Candidates  []TemplateScore
	Err         error
}

// Matched reports whether a template was selected.
func (r ClassificationResult) Matched() bool {
	return r.Index != NoMatch
}

// Classifier scores a page against every template and selects the best.
type Classifier struct {
	templates    []*TemplateRecord
	method       MatchMethod
	edges        EdgeParams
	orientations int
	params       Params
	log          zerolog.Logger
}

// NewClassifier returns a classifier over templates. The records are read
// concurrently and must not be modified while it is in use.
func NewClassifier(templates []*TemplateRecord, p Params) *Classifier {
	return &Classifier{
		templates:    templates,
		method:       p.Match,
		edges:        p.Edges,
		orientations: p.orientations(),
		params:       p,
		log:          p.Logger.With().Str("component", "classifier").Logger(),
	}
}

// Classify rectifies page onto every template using the page corners and
// returns the template with the highest score. Every template is evaluated.
// The first template in index order wins ties, and a page whose best score
// is not above zero is NoMatch.
func (c *Classifier) Classify(ctx context.Context, page gocv.Mat, corners CornerSet) (ClassificationResult, error) {
	res := ClassificationResult{Index: NoMatch, Corners: corners}
	if page.Empty() {
		res.Err = fmt.Errorf("classify: %w", ErrEmptyImage)
		return res, res.Err
	}

	scores := make([]TemplateScore, len(c.templates))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := c.params.workerCount(len(c.templates))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				t := c.templates[i]
				if ctx.Err() != nil {
					scores[i] = TemplateScore{Index: t.Index, Name: t.Name, Skipped: true}
					continue
				}
				scores[i] = c.evaluate(page, corners, t)
			}
		}()
	}
	for i := range c.templates {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	res.Candidates = scores
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res, err
	}

	if best, ok := selectBest(scores); ok {
		res.Index = best.Index
		res.Name = best.Name
		res.Score = best.Score
		res.Orientation = best.Orientation
		res.Corners = corners.Rotate(best.Orientation)
	}
	return res, nil
}

// evaluate scores one template, trying each orientation of the page corners
// and keeping the first highest score.
func (c *Classifier) evaluate(page gocv.Mat, corners CornerSet, t *TemplateRecord) TemplateScore {
	ts := TemplateScore{Index: t.Index, Name: t.Name, Skipped: true}
	if !t.Usable() {
		c.log.Debug().Int("template", t.Index).Msg("skipping template without corners")
		return ts
	}

	for k := 0; k < c.orientations; k++ {
		s, err := c.score(page, corners.Rotate(k), t)
		if err != nil {
			c.log.Debug().Err(err).Int("template", t.Index).Int("orientation", k).Msg("template evaluation failed")
			continue
		}
		if ts.Skipped || s > ts.Score {
			ts.Score = s
			ts.Orientation = k
			ts.Skipped = false
		}
	}

	c.log.Debug().Int("template", t.Index).Float64("score", ts.Score).
		Int("orientation", ts.Orientation).Bool("skipped", ts.Skipped).Msg("template scored")
	return ts
}

func (c *Classifier) score(page gocv.Mat, corners CornerSet, t *TemplateRecord) (float64, error) {
	warped, err := Rectify(page, corners, t)
	if err != nil {
		return 0, err
	}
	defer warped.Close()

	edges, err := EdgeMap(warped, c.edges)
	if err != nil {
		return 0, err
	}
	defer edges.Close()

	return MatchScore(edges, t.EdgeMap(), c.method)
}

// selectBest folds scores in index order. A candidate replaces the current
// best only when strictly greater, starting from zero.
func selectBest(scores []TemplateScore) (TemplateScore, bool) {
	var best TemplateScore
	bestScore := 0.0
	found := false
	for _, s := range scores {
		if s.Skipped {
			continue
		}
		if s.Score > bestScore {
			bestScore = s.Score
			best = s
			found = true
		}
	}
	return best, found
}
