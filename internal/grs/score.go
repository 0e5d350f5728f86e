package grs

// Score derives the geographic representativeness percentage from the two
// area accumulators: conserved/total × 100, capped at 100. Rasterization
// overlap artifacts can push the raw ratio past 1, hence the cap. A zero
// or negative total range degrades to 0 rather than propagating NaN or
// Inf; the caller records the diagnostic.
func Score(conservedM2, totalM2 float64) float64 {
	if totalM2 <= 0 {
		return 0
	}
	s := conservedM2 / totalM2 * 100
	if s > 100 {
		return 100
	}
	return s
}
