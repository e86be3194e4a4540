package biometrics

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func featureIndex(t *testing.T, name string) int {
	t.Helper()
	for i, n := range FeatureNames {
		if n == name {
			return i
		}
	}
	t.Fatalf("unknown feature %q", name)
	return -1
}

func TestFeatures_VectorLengthMatchesNames(t *testing.T) {
	got := Features(SensorWindow{})
	if len(got) != len(FeatureNames) {
		t.Fatalf("expected %d features, got %d", len(FeatureNames), len(got))
	}
	if len(FeatureNames) != 29 {
		t.Fatalf("expected 29 features, got %d", len(FeatureNames))
	}
}

func TestFeatures_HRV(t *testing.T) {
	w := SensorWindow{IBI: []float64{800, 860, 790, 850}}
	got := Features(w)

	// diffs are 60, -70, 60: all exceed the 50ms threshold.
	if v := got[featureIndex(t, "pnn50")]; v != 100 {
		t.Errorf("pnn50 = %v, want 100", v)
	}
	wantRMSSD := math.Sqrt((60*60 + 70*70 + 60*60) / 3.0)
	if v := got[featureIndex(t, "rmssd")]; !almostEqual(v, wantRMSSD) {
		t.Errorf("rmssd = %v, want %v", v, wantRMSSD)
	}
	if v := got[featureIndex(t, "ibi_mean")]; v != 825 {
		t.Errorf("ibi_mean = %v, want 825", v)
	}
	if v := got[featureIndex(t, "hr_mean")]; !almostEqual(v, 60000.0/825) {
		t.Errorf("hr_mean = %v, want %v", v, 60000.0/825)
	}
	if sdnn, ibiStd := got[featureIndex(t, "sdnn")], got[featureIndex(t, "ibi_std")]; sdnn != ibiStd {
		t.Errorf("sdnn (%v) and ibi_std (%v) should be identical", sdnn, ibiStd)
	}
}

func TestFeatures_Pnn50ThresholdIsStrict(t *testing.T) {
	// A 50ms difference does not count; only strictly greater does.
	got := Features(SensorWindow{IBI: []float64{800, 850, 901}})
	if v := got[featureIndex(t, "pnn50")]; v != 50 {
		t.Errorf("pnn50 = %v, want 50", v)
	}
}

func TestFeatures_ShortIBISeriesIsNaN(t *testing.T) {
	got := Features(SensorWindow{IBI: []float64{800}})
	for _, name := range []string{"rmssd", "sdnn", "pnn50", "ibi_mean", "ibi_std", "hr_mean"} {
		if v := got[featureIndex(t, name)]; !math.IsNaN(v) {
			t.Errorf("%s = %v, want NaN for a single-sample series", name, v)
		}
	}
}

func TestFeatures_SkinTemp(t *testing.T) {
	got := Features(SensorWindow{SkinTemp: []float64{33.0, 34.0, 35.0}})
	if v := got[featureIndex(t, "temp_mean")]; v != 34 {
		t.Errorf("temp_mean = %v, want 34", v)
	}
	wantStd := math.Sqrt(2.0 / 3.0)
	if v := got[featureIndex(t, "temp_std")]; !almostEqual(v, wantStd) {
		t.Errorf("temp_std = %v, want %v (population)", v, wantStd)
	}
	if v := got[featureIndex(t, "temp_min")]; v != 33 {
		t.Errorf("temp_min = %v, want 33", v)
	}
	if v := got[featureIndex(t, "temp_max")]; v != 35 {
		t.Errorf("temp_max = %v, want 35", v)
	}
}

func TestFeatures_Accelerometer(t *testing.T) {
	w := SensorWindow{
		AccX: []float64{3, 0},
		AccY: []float64{0, 4},
		AccZ: []float64{4, 3},
	}
	got := Features(w)

	if v := got[featureIndex(t, "acc_x_mean")]; v != 1.5 {
		t.Errorf("acc_x_mean = %v, want 1.5", v)
	}
	if v := got[featureIndex(t, "acc_x_energy")]; v != 4.5 {
		t.Errorf("acc_x_energy = %v, want 4.5", v)
	}
	// Both samples have magnitude 5.
	if v := got[featureIndex(t, "vm_mean")]; !almostEqual(v, 5) {
		t.Errorf("vm_mean = %v, want 5", v)
	}
	if v := got[featureIndex(t, "vm_std")]; !almostEqual(v, 0) {
		t.Errorf("vm_std = %v, want 0", v)
	}
}

func TestFeatures_MissingAxesAreNaN(t *testing.T) {
	got := Features(SensorWindow{AccX: []float64{1, 2}})
	if v := got[featureIndex(t, "acc_y_mean")]; !math.IsNaN(v) {
		t.Errorf("acc_y_mean = %v, want NaN", v)
	}
	// Vector magnitude needs all three axes.
	if v := got[featureIndex(t, "vm_mean")]; !math.IsNaN(v) {
		t.Errorf("vm_mean = %v, want NaN", v)
	}
	if v := got[featureIndex(t, "acc_x_mean")]; v != 1.5 {
		t.Errorf("acc_x_mean = %v, want 1.5", v)
	}
}
