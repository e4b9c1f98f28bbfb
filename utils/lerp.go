// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// Lerp returns the value at time t on the straight line running from
// (startAt, startValue) to (endAt, endValue).
//
// A zero-length span, or any input producing a non-finite position, yields
// startValue instead of NaN or Inf.
func Lerp(startAt, startValue, endAt, endValue, t float64) float64 {
	pos := (t - startAt) / (endAt - startAt)
	if math.IsNaN(pos) || math.IsInf(pos, 0) {
		return startValue
	}

	return pos*(endValue-startValue) + startValue
}
