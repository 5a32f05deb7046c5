package util

import "math"

// FisherResult holds the p-values of Fisher's exact test on a 2x2 table.
type FisherResult struct {
	// Left is P(n11 <= observed).
	Left float64
	// Right is P(n11 >= observed).
	Right float64
	// TwoTail sums the probabilities of all tables at most as likely as the
	// observed one.
	TwoTail float64
	// Prob is the probability of the observed table.
	Prob float64
}

// lbinom returns log(n choose k).
func lbinom(n, k int) float64 {
	if k == 0 || n == k {
		return 0
	}
	a, _ := math.Lgamma(float64(n + 1))
	b, _ := math.Lgamma(float64(k + 1))
	c, _ := math.Lgamma(float64(n - k + 1))
	return a - b - c
}

// hypergeo returns the probability of a 2x2 table with top-left cell n11,
// first row sum n1_, first column sum n_1 and total n.
func hypergeo(n11, n1_, n_1, n int) float64 {
	return math.Exp(lbinom(n1_, n11) + lbinom(n-n1_, n_1-n11) - lbinom(n, n_1))
}

// FisherExactTest runs Fisher's exact test on the 2x2 contingency table
//   n11 n12
//   n21 n22
// The tails are accumulated from the extremes inward until the per-table
// probability reaches that of the observed table.
func FisherExactTest(n11, n12, n21, n22 int) FisherResult {
	n1_, n_1 := n11+n12, n11+n21
	n := n11 + n12 + n21 + n22
	max := n_1 // max n11, for right tail
	if n1_ < max {
		max = n1_
	}
	min := n1_ + n_1 - n // min n11, for left tail
	if min < 0 {
		min = 0
	}
	res := FisherResult{Left: 1, Right: 1, TwoTail: 1, Prob: 1}
	if min == max {
		return res
	}
	q := hypergeo(n11, n1_, n_1, n)
	res.Prob = q

	var left, right float64
	i := min
	p := hypergeo(i, n1_, n_1, n)
	for i++; p < 0.99999999*q && i <= max; i++ {
		left += p
		p = hypergeo(i, n1_, n_1, n)
	}
	i--
	if p < 1.00000001*q {
		left += p
	} else {
		i--
	}

	j := max
	p = hypergeo(j, n1_, n_1, n)
	for j--; p < 0.99999999*q && j >= 0; j-- {
		right += p
		p = hypergeo(j, n1_, n_1, n)
	}
	j++
	if p < 1.00000001*q {
		right += p
	} else {
		j++
	}

	res.TwoTail = math.Min(left+right, 1)
	if abs(i-n11) < abs(j-n11) {
		right = 1 - left + q
	} else {
		left = 1 - right + q
	}
	res.Left, res.Right = left, right
	return res
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
