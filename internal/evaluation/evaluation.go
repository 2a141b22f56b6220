// Package evaluation scores page predictions against ground truth.
package evaluation

import (
	"fmt"
	"strconv"
	"strings"
)

// NoPage is the ground-truth label for a photograph with no page visible.
// It equals the classifier's no-match index.
const NoPage = 0

// Counts is the confusion tally of a run. Every prediction that differs
// from a visible page counts as a false positive, so precision is the share
// of exact matches whenever every photograph shows a page.
//
//   - TP: prediction equals a non-zero truth.
//   - FP: any other prediction for a visible page, NoMatch included, or a
//     template predicted for a photograph with no page.
//   - TN: no page was visible and nothing was predicted.
//
// Missed counts the visible pages that got NoMatch; they are also in FP.
// Visible counts the photographs whose truth is a page.
type Counts struct {
	TP      int `json:"tp"`
	FP      int `json:"fp"`
	TN      int `json:"tn"`
	Missed  int `json:"missed"`
	Visible int `json:"visible"`
}

// Add tallies one prediction.
func (c *Counts) Add(predicted, truth int) {
	if truth != NoPage {
		c.Visible++
	}
	switch {
	case truth != NoPage && predicted == truth:
		c.TP++
	case truth == NoPage && predicted == NoPage:
		c.TN++
	default:
		c.FP++
		if truth != NoPage && predicted == NoPage {
			c.Missed++
		}
	}
}

// Total returns the number of tallied predictions.
func (c Counts) Total() int {
	return c.TP + c.FP + c.TN
}

// Report holds the counts and derived ratios. Ratios with a zero
// denominator are 0.
type Report struct {
	Counts
	Total     int     `json:"total"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	Accuracy  float64 `json:"accuracy"`
	F1        float64 `json:"f1"`
}

// Evaluate compares predictions with ground truth, position by position.
func Evaluate(predicted, truth []int) (Report, error) {
	if len(predicted) != len(truth) {
		return Report{}, fmt.Errorf("%d predictions for %d ground-truth labels", len(predicted), len(truth))
	}
	var c Counts
	for i := range predicted {
		c.Add(predicted[i], truth[i])
	}
	return NewReport(c), nil
}

// NewReport derives ratios from counts.
func NewReport(c Counts) Report {
	r := Report{Counts: c, Total: c.Total()}
	r.Precision = ratio(c.TP, c.TP+c.FP)
	r.Recall = ratio(c.TP, c.Visible)
	r.Accuracy = ratio(c.TP+c.TN, r.Total)
	if r.Precision+r.Recall > 0 {
		r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
	}
	return r
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func (r Report) String() string {
	return fmt.Sprintf("TP=%d FP=%d TN=%d missed=%d precision=%.4f recall=%.4f accuracy=%.4f f1=%.4f",
		r.TP, r.FP, r.TN, r.Missed, r.Precision, r.Recall, r.Accuracy, r.F1)
}

// ParseLabels parses a comma separated list of ground-truth indices.
func ParseLabels(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	labels := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid label %q: %w", p, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("invalid label %d", v)
		}
		labels = append(labels, v)
	}
	return labels, nil
}
