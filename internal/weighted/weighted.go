// Package weighted implements cumulative-probability selection over a list
// of weighted values: a draw in [0, total) lands in the first bucket whose
// cumulative weight exceeds it.
package weighted

import "math/rand"

type Choice[T any] struct {
	Weight float64
	Value  T
}

type Chooser[T any] struct {
	choices []Choice[T]
	total   float64
}

func NewChooser[T any](choices []Choice[T]) *Chooser[T] {
	total := 0.0
	for _, c := range choices {
		if c.Weight > 0 {
			total += c.Weight
		}
	}
	return &Chooser[T]{choices: choices, total: total}
}

// Pick draws from rng and walks the cumulative buckets, first match wins.
// The zero value of T is returned for an empty or zero-weight chooser.
func (c *Chooser[T]) Pick(rng *rand.Rand) T {
	var zero T
	if c.total <= 0 {
		return zero
	}
	draw := rng.Float64() * c.total
	cumulative := 0.0
	for _, choice := range c.choices {
		if choice.Weight <= 0 {
			continue
		}
		cumulative += choice.Weight
		if draw < cumulative {
			return choice.Value
		}
	}
	// Float addition can leave the draw a hair past the last bucket.
	return c.choices[len(c.choices)-1].Value
}
