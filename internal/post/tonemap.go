package post

import "github.com/go-gl/mathgl/mgl32"

// ExposureFromLuminance converts the auto-exposure EMA into a linear
// exposure multiplier using a standard middle-grey key.
const middleGrey = 0.18

func ExposureFromLuminance(avgLuminance float32) float32 {
	if avgLuminance <= 1e-5 {
		return 1
	}
	return middleGrey / avgLuminance
}

// ACESFilmic is the fitted ACES filmic tonemap curve, applied per
// channel.
func ACESFilmic(c mgl32.Vec3) mgl32.Vec3 {
	const a, b, cc, d, e = 2.51, 0.03, 2.43, 0.59, 0.14
	f := func(x float32) float32 {
		num := x * (a*x + b)
		den := x*(cc*x+d) + e
		v := num / den
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}
	return mgl32.Vec3{f(c.X()), f(c.Y()), f(c.Z())}
}

// Composite applies exposure then the ACES curve, the tonemapper's
// per-pixel operation composed with bloom/SSAO/sun-shaft contributions
// upstream.
func Composite(hdr mgl32.Vec3, bloom mgl32.Vec3, bloomStrength float32, ssaoFactor float32, shaftIntensity float32, exposure float32) mgl32.Vec3 {
	lit := hdr.Add(bloom.Mul(bloomStrength))
	lit = lit.Mul(ssaoFactor)
	lit = lit.Add(mgl32.Vec3{shaftIntensity, shaftIntensity, shaftIntensity})
	return ACESFilmic(lit.Mul(exposure))
}

// AverageLuminance is a small helper used by tests to validate that a
// tonemapped image's overall brightness lands in an expected band
//.
func AverageLuminance(samples []mgl32.Vec3) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sum float32
	for _, s := range samples {
		sum += 0.2126*s.X() + 0.7152*s.Y() + 0.0722*s.Z()
	}
	return sum / float32(len(samples))
}
