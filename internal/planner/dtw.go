package planner

import (
	"math"

	"github.com/songmash/lisbon/internal/analysis"
)

var labelIDs = map[analysis.SectionLabel]float64{
	analysis.LabelVerse:  0,
	analysis.LabelChorus: 1,
	analysis.LabelBridge: 2,
}

// sectionFeatures builds one (duration, label id, normalized start) vector
// per section. Starts are normalized by the last beat so tracks of different
// lengths compare on the same scale.
func sectionFeatures(sections []analysis.Section, beats []float64) [][3]float64 {
	lastBeat := 0.0
	if len(beats) > 0 {
		lastBeat = beats[len(beats)-1]
	}
	features := make([][3]float64, len(sections))
	for i, s := range sections {
		start := 0.0
		if lastBeat > 0 {
			start = s.Start / lastBeat
		}
		features[i] = [3]float64{s.End - s.Start, labelIDs[s.Label], start}
	}
	return features
}

// pairSections aligns the two tracks' sections with dynamic time warping over
// Euclidean feature distances and returns the warp path as index pairs.
func pairSections(a, b analysis.Result) []SectionPair {
	fa := sectionFeatures(a.Sections, a.Beats)
	fb := sectionFeatures(b.Sections, b.Beats)
	m, n := len(fa), len(fb)
	if m == 0 || n == 0 {
		return nil
	}

	dist := make([][]float64, m)
	for i := range dist {
		dist[i] = make([]float64, n)
		for j := range dist[i] {
			var sum float64
			for k := 0; k < 3; k++ {
				d := fa[i][k] - fb[j][k]
				sum += d * d
			}
			dist[i][j] = math.Sqrt(sum)
		}
	}

	// Standard DTW with unit step weights.
	dtw := make([][]float64, m+1)
	for i := range dtw {
		dtw[i] = make([]float64, n+1)
		for j := range dtw[i] {
			dtw[i][j] = math.Inf(1)
		}
	}
	dtw[0][0] = 0
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			dtw[i][j] = dist[i-1][j-1] + math.Min(dtw[i-1][j], math.Min(dtw[i][j-1], dtw[i-1][j-1]))
		}
	}

	// Backtrack from (m, n), preferring the diagonal on ties.
	var rev []SectionPair
	i, j := m, n
	for i > 0 && j > 0 {
		rev = append(rev, SectionPair{A: i - 1, B: j - 1, Confidence: sectionConfidence})
		diag, up, left := dtw[i-1][j-1], dtw[i-1][j], dtw[i][j-1]
		switch {
		case diag <= up && diag <= left:
			i--
			j--
		case up <= left:
			i--
		default:
			j--
		}
	}

	pairs := make([]SectionPair, len(rev))
	for k := range rev {
		pairs[k] = rev[len(rev)-1-k]
	}
	return pairs
}
