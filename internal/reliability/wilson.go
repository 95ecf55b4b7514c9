// Package reliability tracks per-domain crawl reliability and derives
// block decisions from a confidence-adjusted success rate.
package reliability

import "math"

// DefaultZ is the z-value for a 95% confidence interval.
const DefaultZ = 1.96

// WilsonLowerBound computes the lower bound of the Wilson score interval
// for successes out of total trials at the given z. It is deliberately more
// conservative than a raw success rate for small samples, so a domain is
// neither blocked nor trusted on a handful of noisy observations.
func WilsonLowerBound(successes, total int, z float64) float64 {
	if total <= 0 {
		return 0
	}
	if z <= 0 {
		z = DefaultZ
	}

	n := float64(total)
	pHat := float64(successes) / n
	z2 := z * z

	denominator := 1 + z2/n
	center := pHat + z2/(2*n)
	margin := z * math.Sqrt((pHat*(1-pHat)+z2/(4*n))/n)

	lower := (center - margin) / denominator
	if lower < 0 {
		return 0
	}
	return lower
}
