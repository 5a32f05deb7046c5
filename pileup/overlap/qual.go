// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package overlap

// This file contains the qual arithmetic applied to overlapping mate bases.

const (
	// MaxQual caps the combined qual of two agreeing bases.
	MaxQual = 200
	// MismatchDiscount scales the surviving qual of two disagreeing bases.
	MismatchDiscount = 0.8
)

// sumQual returns the qual of a base observed by both mates.
func sumQual(q1, q2 byte) byte {
	sum := int(q1) + int(q2)
	if sum > MaxQual {
		return MaxQual
	}
	return byte(sum)
}

// discountQual returns the qual of the winning base of a disagreeing pair.
// The product is truncated toward zero, not rounded.
func discountQual(q byte) byte {
	return byte(float64(q) * MismatchDiscount)
}

// reconcileQuals updates the quals of an aligned base pair in place, and
// reports whether the bases agreed. Ties between disagreeing bases go to q1.
func reconcileQuals(b1, b2 byte, q1, q2 *byte) bool {
	if b1 == b2 {
		*q1 = sumQual(*q1, *q2)
		*q2 = 0
		return true
	}
	if *q1 >= *q2 {
		*q1 = discountQual(*q1)
		*q2 = 0
	} else {
		*q2 = discountQual(*q2)
		*q1 = 0
	}
	return false
}
