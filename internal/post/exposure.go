package post

import "math"

// HistogramBins is the auto-exposure histogram's bin count.
const HistogramBins = 64

// MaxSourceMip is the highest HDR mip the histogram-build pass is
// allowed to read.
const MaxSourceMip = 3

// SourceMip picks the histogram's HDR source mip:
// min(MaxSourceMip, mipCount-1), so a swapchain small enough to produce
// a single-mip HDR image still reads mip 0 instead of an out-of-range
// index.
func SourceMip(mipCount uint32) uint32 {
	if mipCount == 0 {
		return 0
	}
	top := mipCount - 1
	if top > MaxSourceMip {
		return MaxSourceMip
	}
	return top
}

const (
	// logLuminanceMin/Max bound the histogram's log2-luminance domain;
	// luminance outside this range clamps into the first/last bin.
	logLuminanceMin = -10.0
	logLuminanceMax = 4.0

	emaSpeed = 1.5 // exponential-approach rate per second
)

// LuminanceBin maps a linear luminance sample to its histogram bin
// index, clamped to [0, HistogramBins-1].
func LuminanceBin(luminance float64) int {
	if luminance <= 0 {
		return 0
	}
	logLum := math.Log2(luminance)
	t := (logLum - logLuminanceMin) / (logLuminanceMax - logLuminanceMin)
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	bin := int(t * float64(HistogramBins-1))
	if bin < 0 {
		bin = 0
	}
	if bin > HistogramBins-1 {
		bin = HistogramBins - 1
	}
	return bin
}

// ReduceHistogram converts the per-bin counts into the frame's average
// luminance: the count-weighted mean of the bins' log2 luminance,
// returned as exp2 of that mean (a geometric mean).
func ReduceHistogram(counts [HistogramBins]uint32) float64 {
	var weightedSum, totalSamples float64
	for bin, count := range counts {
		if count == 0 {
			continue
		}
		t := float64(bin) / float64(HistogramBins-1)
		logLum := logLuminanceMin + t*(logLuminanceMax-logLuminanceMin)
		weightedSum += logLum * float64(count)
		totalSamples += float64(count)
	}
	if totalSamples == 0 {
		return 0
	}
	avgLog := weightedSum / totalSamples
	return math.Exp2(avgLog)
}

// State holds the single average-luminance value plus its EMA.
type State struct {
	Average float32
	EMA     float32
	have    bool
}

// Update advances the EMA toward the frame's measured average
// luminance at a rate scaled by dt, matching a standard exponential
// auto-exposure adaptation curve. The first call snaps directly to the
// measured value.
func (s *State) Update(measured float32, dt float32) {
	s.Average = measured
	if !s.have {
		s.EMA = measured
		s.have = true
		return
	}
	alpha := float32(1 - math.Exp(-float64(emaSpeed*dt)))
	s.EMA += (measured - s.EMA) * alpha
}
