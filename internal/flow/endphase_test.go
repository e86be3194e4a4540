package flow

import "testing"

func TestIsEndPhaseCommand(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"endphase()", true},
		{"ENDPHASE()", true},
		{"  endphase()  ", true},
		{"endphaze(", true},
		{"endphase", true},
		{"end phase()", true},
		{"hello", false},
		{"I am feeling much better now", false},
		{"", false},
		{"   ", false},
	}
	for _, c := range cases {
		if got := IsEndPhaseCommand(c.input); got != c.want {
			t.Errorf("IsEndPhaseCommand(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestSimilarityRatio(t *testing.T) {
	if r := similarityRatio("endphase()", "endphase()"); r != 1.0 {
		t.Errorf("identical strings should have ratio 1.0, got %f", r)
	}
	if r := similarityRatio("", "endphase()"); r != 0.0 {
		t.Errorf("empty string should have ratio 0.0, got %f", r)
	}
	// "endphaze(" shares 8 subsequence characters with "endphase()":
	// 2*8/(9+10) is just above the 0.7 threshold.
	if r := similarityRatio("endphaze(", "endphase()"); r < EndPhaseThreshold {
		t.Errorf("near-miss typo should exceed threshold, got %f", r)
	}
	if r := similarityRatio("hello", "endphase()"); r >= EndPhaseThreshold {
		t.Errorf("unrelated text should stay below threshold, got %f", r)
	}
}
