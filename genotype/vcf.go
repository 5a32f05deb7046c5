// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package genotype

import (
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// BCF stores a GT allele as (allele+1)<<1 | phased, with 0 meaning missing.

// BCFAllele decodes a BCF GT value into an allele index, or a negative value
// if the allele is missing.
func BCFAllele(gt int32) int32 { return gt>>1 - 1 }

// IsBCFMissing reports whether the BCF GT value gt is a missing allele.
func IsBCFMissing(gt int32) bool { return gt>>1 == 0 }

// ClassifyBCF is like Classify, but takes BCF-encoded GT values.
func ClassifyBCF(gts []int32) []Code {
	codes := make([]Code, 0, len(gts)/2)
	for i := 0; i+1 < len(gts); i += 2 {
		codes = append(codes, ClassifyPair(bcfAlleleOrMissing(gts[i]), bcfAlleleOrMissing(gts[i+1])))
	}
	return codes
}

func bcfAlleleOrMissing(gt int32) int32 {
	if IsBCFMissing(gt) {
		return Missing
	}
	return BCFAllele(gt)
}

// ParseGT parses the GT value of a VCF sample column, e.g. "0/1", "1|1",
// "./." or "1", and appends its two allele indices to dst. Missing alleles are
// appended as Missing, and a haploid call is padded with Missing.
func ParseGT(field string, dst []int32) ([]int32, error) {
	sep := strings.IndexAny(field, "/|")
	if sep < 0 {
		a, err := parseAllele(field)
		if err != nil {
			return dst, err
		}
		return append(dst, a, Missing), nil
	}
	second := field[sep+1:]
	if strings.ContainsAny(second, "/|") {
		return dst, errors.E(errors.NotSupported, "genotype: polyploid GT", field)
	}
	a, err := parseAllele(field[:sep])
	if err != nil {
		return dst, err
	}
	b, err := parseAllele(second)
	if err != nil {
		return dst, err
	}
	return append(dst, a, b), nil
}

func parseAllele(s string) (int32, error) {
	if s == "." {
		return Missing, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil || v < 0 {
		return 0, errors.E(errors.Invalid, "genotype: bad GT allele", strconv.Quote(s))
	}
	return int32(v), nil
}

// SampleGT extracts the GT subfield of a VCF sample column given the index of
// GT in the FORMAT column. It returns "." if the column is shorter.
func SampleGT(sample string, gtIndex int) string {
	for i := 0; i < gtIndex; i++ {
		colon := strings.IndexByte(sample, ':')
		if colon < 0 {
			return "."
		}
		sample = sample[colon+1:]
	}
	if colon := strings.IndexByte(sample, ':'); colon >= 0 {
		sample = sample[:colon]
	}
	if sample == "" {
		return "."
	}
	return sample
}
