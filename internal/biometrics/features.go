// Package biometrics computes the feature vector extracted from raw wearable
// sensor windows before they are handed to the affect regression service.
package biometrics

import "math"

// SensorWindow holds one window of raw samples from the wearable.
type SensorWindow struct {
	IBI      []float64 `json:"ibi"`       // inter-beat intervals, milliseconds
	SkinTemp []float64 `json:"skin_temp"` // degrees Celsius
	AccX     []float64 `json:"acc_x"`     // accelerometer axes, g
	AccY     []float64 `json:"acc_y"`
	AccZ     []float64 `json:"acc_z"`
}

// FeatureNames lists the extracted features in vector order. The regression
// model was trained against exactly this ordering.
var FeatureNames = []string{
	"rmssd", "sdnn", "pnn50", "ibi_mean", "ibi_std", "hr_mean",
	"temp_mean", "temp_std", "temp_min", "temp_max",
	"acc_x_mean", "acc_y_mean", "acc_z_mean",
	"acc_x_std", "acc_y_std", "acc_z_std",
	"acc_x_min", "acc_y_min", "acc_z_min",
	"acc_x_max", "acc_y_max", "acc_z_max",
	"vm_mean", "vm_std", "vm_min", "vm_max",
	"acc_x_energy", "acc_y_energy", "acc_z_energy",
}

// Features computes the feature vector for a sensor window. Features whose
// source series is missing or too short come back as NaN rather than zero, so
// downstream consumers can tell absence from a real measurement.
func Features(w SensorWindow) []float64 {
	out := make([]float64, 0, len(FeatureNames))
	out = append(out, hrvFeatures(w.IBI)...)
	out = append(out, mean(w.SkinTemp), stdPop(w.SkinTemp), minOf(w.SkinTemp), maxOf(w.SkinTemp))

	out = append(out, mean(w.AccX), mean(w.AccY), mean(w.AccZ))
	out = append(out, stdPop(w.AccX), stdPop(w.AccY), stdPop(w.AccZ))
	out = append(out, minOf(w.AccX), minOf(w.AccY), minOf(w.AccZ))
	out = append(out, maxOf(w.AccX), maxOf(w.AccY), maxOf(w.AccZ))

	vm := vectorMagnitude(w.AccX, w.AccY, w.AccZ)
	out = append(out, mean(vm), stdPop(vm), minOf(vm), maxOf(vm))

	out = append(out, energy(w.AccX), energy(w.AccY), energy(w.AccZ))
	return out
}

// hrvFeatures returns rmssd, sdnn, pnn50, ibi_mean, ibi_std and hr_mean.
// Fewer than two intervals cannot yield successive differences, so the whole
// block degrades to NaN.
func hrvFeatures(ibi []float64) []float64 {
	nan := math.NaN()
	if len(ibi) < 2 {
		return []float64{nan, nan, nan, nan, nan, nan}
	}

	diffs := make([]float64, len(ibi)-1)
	var sumSq float64
	var over50 int
	for i := 1; i < len(ibi); i++ {
		d := ibi[i] - ibi[i-1]
		diffs[i-1] = d
		sumSq += d * d
		if math.Abs(d) > 50 {
			over50++
		}
	}

	rmssd := math.Sqrt(sumSq / float64(len(diffs)))
	sdnn := stdPop(ibi)
	pnn50 := 100 * float64(over50) / float64(len(diffs))
	ibiMean := mean(ibi)
	hrMean := 60000 / ibiMean
	return []float64{rmssd, sdnn, pnn50, ibiMean, sdnn, hrMean}
}

// vectorMagnitude computes per-sample magnitude over the shortest common axis
// length.
func vectorMagnitude(x, y, z []float64) []float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if len(z) < n {
		n = len(z)
	}
	vm := make([]float64, n)
	for i := 0; i < n; i++ {
		vm[i] = math.Sqrt(x[i]*x[i] + y[i]*y[i] + z[i]*z[i])
	}
	return vm
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdPop is the population standard deviation.
func stdPop(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	m := mean(xs)
	var sumSq float64
	for _, x := range xs {
		d := x - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

func minOf(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	min := xs[0]
	for _, x := range xs[1:] {
		if x < min {
			min = x
		}
	}
	return min
}

func maxOf(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	max := xs[0]
	for _, x := range xs[1:] {
		if x > max {
			max = x
		}
	}
	return max
}

// energy is the mean of squared samples.
func energy(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sumSq float64
	for _, x := range xs {
		sumSq += x * x
	}
	return sumSq / float64(len(xs))
}
