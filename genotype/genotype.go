// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package genotype classifies diploid genotype calls into the four compact
// codes used by per-sample variant summaries.
package genotype

// Code is a compact diploid genotype class.
type Code uint8

const (
	// HomRef is a 0/0 call.
	HomRef Code = 0
	// Het is a call whose two alleles differ.
	Het Code = 1
	// Unknown is a fully missing call, or one that fits no other class
	// (e.g. 2/2).
	Unknown Code = 2
	// HomAlt is a 1/1 call.
	HomAlt Code = 3
)

// Missing marks a missing allele. Any negative allele index is treated as
// missing.
const Missing int32 = -1

var codeNames = [...]string{"HOM_REF", "HET", "UNKNOWN", "HOM_ALT"}

func (c Code) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return "INVALID"
}

// ClassifyPair returns the code of the diploid call (a, b). A call with one
// missing allele and one present allele counts as Het.
func ClassifyPair(a, b int32) Code {
	if a < 0 && b < 0 {
		return Unknown
	}
	switch {
	case a == 0 && b == 0:
		return HomRef
	case a == 1 && b == 1:
		return HomAlt
	case a != b:
		return Het
	}
	return Unknown
}

// Classify returns one code per allele pair in alleles, which holds two
// allele indices per sample. A trailing odd element is ignored.
func Classify(alleles []int32) []Code {
	return AppendClassify(make([]Code, 0, len(alleles)/2), alleles)
}

// AppendClassify is like Classify, but appends the codes to dst.
func AppendClassify(dst []Code, alleles []int32) []Code {
	for i := 0; i+1 < len(alleles); i += 2 {
		dst = append(dst, ClassifyPair(alleles[i], alleles[i+1]))
	}
	return dst
}
