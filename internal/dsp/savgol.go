package dsp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SavGol smooths the signal with a Savitzky-Golay filter: a least-squares
// polynomial of the given order is fit over each sliding window and evaluated
// at the window center. Edges are handled by evaluating the boundary window's
// polynomial at the off-center positions, so the output has the same length
// as the input. The window must be odd and larger than the order.
func SavGol(x []float64, window, order int) []float64 {
	if window%2 == 0 || window <= order || len(x) < window {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}
	half := window / 2

	// Least-squares projection: coef = (AᵀA)⁻¹Aᵀ · windowSamples, where A is
	// the Vandermonde matrix of offsets -half..half.
	a := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		t := float64(i - half)
		p := 1.0
		for j := 0; j <= order; j++ {
			a.Set(i, j, p)
			p *= t
		}
	}
	var ata, inv, proj mat.Dense
	ata.Mul(a.T(), a)
	if err := inv.Inverse(&ata); err != nil {
		out := make([]float64, len(x))
		copy(out, x)
		return out
	}
	proj.Mul(&inv, a.T()) // (order+1) × window

	polyAt := func(coeffs []float64, t float64) float64 {
		v, p := 0.0, 1.0
		for _, c := range coeffs {
			v += c * p
			p *= t
		}
		return v
	}
	fitWindow := func(start int) []float64 {
		coeffs := make([]float64, order+1)
		for j := 0; j <= order; j++ {
			var sum float64
			for i := 0; i < window; i++ {
				sum += proj.At(j, i) * x[start+i]
			}
			coeffs[j] = sum
		}
		return coeffs
	}

	out := make([]float64, len(x))

	// Interior: the center value is just the first coefficient row.
	for i := half; i < len(x)-half; i++ {
		var sum float64
		for k := 0; k < window; k++ {
			sum += proj.At(0, k) * x[i-half+k]
		}
		out[i] = sum
	}

	// Edges: evaluate the boundary fits off-center.
	head := fitWindow(0)
	for i := 0; i < half; i++ {
		out[i] = polyAt(head, float64(i-half))
	}
	tail := fitWindow(len(x) - window)
	for i := len(x) - half; i < len(x); i++ {
		out[i] = polyAt(tail, float64(i-(len(x)-1-half)))
	}
	return out
}

// Rectify returns |x| element-wise.
func Rectify(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = math.Abs(v)
	}
	return out
}
