// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

package simulator

import (
	"math"
	"math/rand"
)

// Pose is an initial rover placement: planar coordinates plus a
// heading in radians.
type Pose struct {
	X       float64
	Y       float64
	Heading float64
}

// RandomPose samples a placement with x and y independently uniform
// in [min, max) and heading uniform in [0, 2π). The caller supplies
// the bounds from configuration.
func RandomPose(min, max float64) Pose {
	return Pose{
		X:       min + rand.Float64()*(max-min),
		Y:       min + rand.Float64()*(max-min),
		Heading: rand.Float64() * 2 * math.Pi,
	}
}
