package audio

import "math"

// kaiserBeta is the Kaiser window shape parameter used for the
// resampler's sinc kernel. beta = 18.87726 targets roughly 180 dB of
// stopband attenuation.
const kaiserBeta = 18.87726

// kaiserBetaI0 is I0(kaiserBeta), the zeroth-order modified Bessel
// function of the first kind evaluated at kaiserBeta, computed with the
// besselI0 polynomial approximation below. Pinned as a constant (rather
// than recomputed per construction) so every Resampler in the process
// normalizes its window identically; see DESIGN.md for the calibration
// note (the reference carries a second, slightly different constant —
// 14642294.465343751 — across iterations; this implementation picks
// 14594424.752156679 and verifies passband unity against it).
const kaiserBetaI0 = 14594424.752156679

// besselI0 approximates the zeroth-order modified Bessel function of
// the first kind using the standard Abramowitz & Stegun polynomial
// (9.8.1 / 9.8.2).
func besselI0(x float64) float64 {
	ax := math.Abs(x)
	if ax < 3.75 {
		y := (x / 3.75) * (x / 3.75)
		return 1.0 + y*(3.5156229+y*(3.0899424+y*(1.2067492+y*(0.2659732+y*(0.360768e-1+y*0.45813e-2)))))
	}
	y := 3.75 / ax
	return (math.Exp(ax) / math.Sqrt(ax)) *
		(0.39894228 + y*(0.1328592e-1+y*(0.225319e-2+y*(-0.157565e-2+y*(0.916281e-2+
			y*(-0.2057706e-1+y*(0.2635537e-1+y*(-0.1647633e-1+y*0.392377e-2))))))))
}

// kaiserWindow evaluates the normalized Kaiser window at k, where k is
// expected to lie in [-1, 1]; outside that range the window is zero.
func kaiserWindow(k float64) float64 {
	if k < -1.0 || k > 1.0 {
		return 0.0
	}
	return besselI0(kaiserBeta*math.Sqrt(1.0-k*k)) / kaiserBetaI0
}

// sinc returns sin(pi*x)/(pi*x), defined as 1 at x == 0.
func sinc(x float64) float64 {
	if x == 0 {
		return 1.0
	}
	piX := x * math.Pi
	return math.Sin(piX) / piX
}

// buildKaiserTable precomputes the polyphase sinc kernel described in
// spec.md §4.3: a table of length filterSize*to, Kaiser-windowed around
// a center of mass at leftOffset = (filterSize/2)*to. The cutoff is
// normalized to the downscale factor max(from, to), not to `to` alone:
// when from > to (downsampling) the anti-alias cutoff must sit just
// below the *output* Nyquist, or energy above it folds back into the
// passband once every `to`-th sample is kept. This matches
// original_source/src/resampler.rs's `downscale_factor =
// to.max(from)`. The gain is 2*to*fc, so each polyphase branch (every
// `to`-th tap) sums to unity at DC.
func buildKaiserTable(filterSize, from, to int) []float64 {
	leftOffset := (filterSize / 2) * to
	downscaleFactor := to
	if from > downscaleFactor {
		downscaleFactor = from
	}
	fc := 0.475 / float64(downscaleFactor)

	table := make([]float64, filterSize*to)
	for i := range table {
		x := float64(i - leftOffset)
		w := kaiserWindow(x / float64(leftOffset))
		s := sinc(2.0 * fc * x)
		table[i] = w * 2.0 * float64(to) * fc * s
	}
	return table
}
