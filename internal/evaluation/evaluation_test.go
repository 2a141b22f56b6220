package evaluation

import "testing"

func TestEvaluatePrecisionIsMatchesOverPages(t *testing.T) {
	truth := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 2, 3, 5, 4, 7, 9, 8, 7, 11, 13, 12, 2}
	for k := 0; k <= len(truth); k++ {
		predicted := make([]int, len(truth))
		for i, v := range truth {
			if i < k {
				predicted[i] = v
			} else {
				// a wrong, non-empty prediction
				predicted[i] = v%13 + 1
			}
		}
		r, err := Evaluate(predicted, truth)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if r.TP != k || r.FP != len(truth)-k || r.TN != 0 {
			t.Fatalf("k=%d: counts %+v", k, r.Counts)
		}
		if want := float64(k) / 25; r.Precision != want {
			t.Fatalf("k=%d: precision %v, want %v", k, r.Precision, want)
		}
	}
}

func TestEvaluateUnmatchedPagesCountAgainstPrecision(t *testing.T) {
	truth := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 2, 3, 5, 4, 7, 9, 8, 7, 11, 13, 12, 2}
	predicted := append([]int(nil), truth...)
	// three wrong templates and two pages without a match
	predicted[3] = 5
	predicted[10] = 1
	predicted[17] = 2
	predicted[20] = NoPage
	predicted[24] = NoPage

	r, err := Evaluate(predicted, truth)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if r.TP != 20 || r.FP != 5 || r.TN != 0 || r.Missed != 2 || r.Visible != 25 {
		t.Fatalf("counts %+v", r.Counts)
	}
	if want := 20.0 / 25; r.Precision != want {
		t.Fatalf("precision %v, want %v", r.Precision, want)
	}
	if r.Recall != r.Precision {
		t.Errorf("recall %v should equal precision %v when every photograph shows a page", r.Recall, r.Precision)
	}
}

func TestCountsTaxonomy(t *testing.T) {
	tests := []struct {
		predicted, truth int
		want             Counts
	}{
		{3, 3, Counts{TP: 1, Visible: 1}},
		{4, 3, Counts{FP: 1, Visible: 1}},
		{5, NoPage, Counts{FP: 1}},
		{NoPage, 3, Counts{FP: 1, Missed: 1, Visible: 1}},
		{NoPage, NoPage, Counts{TN: 1}},
	}
	for _, tt := range tests {
		var c Counts
		c.Add(tt.predicted, tt.truth)
		if c != tt.want {
			t.Errorf("Add(%d, %d) = %+v, want %+v", tt.predicted, tt.truth, c, tt.want)
		}
	}
}

func TestReportRatios(t *testing.T) {
	r := NewReport(Counts{TP: 6, FP: 4, TN: 10, Missed: 2, Visible: 8})
	if r.Total != 20 {
		t.Errorf("total = %d", r.Total)
	}
	if r.Precision != 0.6 || r.Recall != 0.75 || r.Accuracy != 0.8 {
		t.Errorf("unexpected ratios %+v", r)
	}

	zero := NewReport(Counts{})
	if zero.Precision != 0 || zero.Recall != 0 || zero.Accuracy != 0 || zero.F1 != 0 {
		t.Errorf("empty report should have zero ratios: %+v", zero)
	}
}

func TestEvaluateLengthMismatch(t *testing.T) {
	if _, err := Evaluate([]int{1, 2}, []int{1}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestParseLabels(t *testing.T) {
	got, err := ParseLabels(" 1, 2,13 ,0")
	if err != nil {
		t.Fatalf("ParseLabels: %v", err)
	}
	want := []int{1, 2, 13, 0}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if labels, err := ParseLabels(""); err != nil || labels != nil {
		t.Errorf("empty input: %v, %v", labels, err)
	}
	for _, bad := range []string{"1,x", "-2"} {
		if _, err := ParseLabels(bad); err == nil {
			t.Errorf("ParseLabels(%q) should fail", bad)
		}
	}
}
