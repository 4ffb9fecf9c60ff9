package dsp

import (
	"math"
	"math/cmplx"
)

// Butterworth filter design in zero-pole-gain form: analog prototype,
// frequency transform, bilinear transform, polynomial expansion. Matches the
// conventional (scipy-compatible) formulation so the rendered filters have
// the response the mix stages were tuned against.

// butterPoles returns the poles of the order-n analog lowpass prototype
// (cutoff 1 rad/s, unity gain, no finite zeros).
func butterPoles(n int) []complex128 {
	poles := make([]complex128, n)
	for k := 0; k < n; k++ {
		theta := math.Pi * float64(2*k+n+1) / float64(2*n)
		poles[k] = cmplx.Exp(complex(0, theta))
	}
	return poles
}

// polyFromRoots expands a monic polynomial with the given roots into real
// coefficients, highest order first.
func polyFromRoots(roots []complex128) []float64 {
	coeffs := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(coeffs)+1)
		for i, c := range coeffs {
			next[i] += c
			next[i+1] -= c * r
		}
		coeffs = next
	}
	out := make([]float64, len(coeffs))
	for i, c := range coeffs {
		out[i] = real(c)
	}
	return out
}

func prodOfNegated(roots []complex128) complex128 {
	p := complex(1, 0)
	for _, r := range roots {
		p *= -r
	}
	return p
}

// bilinear maps analog zeros/poles/gain to the digital plane at sample rate
// fs, padding the zeros to full order at z = -1.
func bilinear(zeros, poles []complex128, gain, fs float64) (zd, pd []complex128, kd float64) {
	fs2 := complex(2*fs, 0)

	num := complex(1, 0)
	for _, z := range zeros {
		num *= fs2 - z
	}
	den := complex(1, 0)
	for _, p := range poles {
		den *= fs2 - p
	}
	kd = gain * real(num/den)

	zd = make([]complex128, 0, len(poles))
	for _, z := range zeros {
		zd = append(zd, (fs2+z)/(fs2-z))
	}
	for i := len(zeros); i < len(poles); i++ {
		zd = append(zd, complex(-1, 0))
	}
	pd = make([]complex128, len(poles))
	for i, p := range poles {
		pd[i] = (fs2 + p) / (fs2 - p)
	}
	return zd, pd, kd
}

// prewarp maps a digital cutoff in Hz onto the analog frequency axis for the
// bilinear transform.
func prewarp(fc, fs float64) float64 {
	return 2 * fs * math.Tan(math.Pi*fc/fs)
}

// ButterHighPass designs an order-n Butterworth high-pass filter and returns
// transfer-function coefficients (b, a), a[0] == 1.
func ButterHighPass(order int, fc, fs float64) (b, a []float64) {
	w0 := prewarp(fc, fs)
	protoPoles := butterPoles(order)

	// lp2hp: poles reflect through the cutoff, zeros land at s = 0.
	poles := make([]complex128, order)
	for i, p := range protoPoles {
		poles[i] = complex(w0, 0) / p
	}
	zeros := make([]complex128, order)
	gain := real(complex(1, 0) / prodOfNegated(protoPoles))

	zd, pd, kd := bilinear(zeros, poles, gain, fs)
	return normalize(scalePoly(polyFromRoots(zd), kd), polyFromRoots(pd))
}

// ButterBandStop designs an order-n Butterworth band-stop filter between f1
// and f2 (final transfer function has order 2n).
func ButterBandStop(order int, f1, f2, fs float64) (b, a []float64) {
	w1 := prewarp(f1, fs)
	w2 := prewarp(f2, fs)
	w0 := math.Sqrt(w1 * w2)
	bw := w2 - w1

	protoPoles := butterPoles(order)
	gain := real(complex(1, 0) / prodOfNegated(protoPoles))

	// lp2bs: each prototype pole maps to a conjugate pair around the stop
	// band; all zeros sit on the imaginary axis at the band center.
	poles := make([]complex128, 0, 2*order)
	for _, p := range protoPoles {
		ph := complex(bw/2, 0) / p
		d := cmplx.Sqrt(ph*ph - complex(w0*w0, 0))
		poles = append(poles, ph+d, ph-d)
	}
	zeros := make([]complex128, 0, 2*order)
	for i := 0; i < order; i++ {
		zeros = append(zeros, complex(0, w0), complex(0, -w0))
	}

	zd, pd, kd := bilinear(zeros, poles, gain, fs)
	return normalize(scalePoly(polyFromRoots(zd), kd), polyFromRoots(pd))
}

func scalePoly(p []float64, k float64) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = v * k
	}
	return out
}

func normalize(b, a []float64) ([]float64, []float64) {
	a0 := a[0]
	for i := range b {
		b[i] /= a0
	}
	for i := range a {
		a[i] /= a0
	}
	return b, a
}

// lfilter applies the IIR filter in direct form II transposed.
func lfilter(b, a, x []float64) []float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	bb := make([]float64, n)
	aa := make([]float64, n)
	copy(bb, b)
	copy(aa, a)

	state := make([]float64, n-1)
	y := make([]float64, len(x))
	for i, xi := range x {
		yi := bb[0]*xi + state[0]
		for j := 0; j < n-2; j++ {
			state[j] = bb[j+1]*xi + state[j+1] - aa[j+1]*yi
		}
		state[n-2] = bb[n-1]*xi - aa[n-1]*yi
		y[i] = yi
	}
	return y
}

// FiltFilt applies the filter forward and backward for a zero-phase result,
// using odd reflection padding to suppress edge transients.
func FiltFilt(b, a, x []float64) []float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	padlen := 3 * (n - 1)
	if padlen >= len(x) {
		// Signal too short to pad; run unpadded.
		y := lfilter(b, a, x)
		reverse(y)
		y = lfilter(b, a, y)
		reverse(y)
		return y
	}

	ext := make([]float64, 0, len(x)+2*padlen)
	for i := padlen; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	last := len(x) - 1
	for i := 1; i <= padlen; i++ {
		ext = append(ext, 2*x[last]-x[last-i])
	}

	y := lfilter(b, a, ext)
	reverse(y)
	y = lfilter(b, a, y)
	reverse(y)
	return y[padlen : padlen+len(x)]
}

func reverse(x []float64) {
	for l, r := 0, len(x)-1; l < r; l, r = l+1, r-1 {
		x[l], x[r] = x[r], x[l]
	}
}
