// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bam

import (
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/htsutil/pileup"
)

// SeqBase returns the 4-bit .bam base code at query index i. The high nibble
// of each byte holds the even-indexed base.
func SeqBase(s sam.Seq, i int) byte {
	b := byte(s.Seq[i>>1])
	if i&1 == 0 {
		return b >> 4
	}
	return b & 0xf
}

// ReadSeq decodes s to ASCII, using the "=ACMGRSVTWYHKDBN" code table.
func ReadSeq(s sam.Seq) []byte {
	dst := make([]byte, s.Length)
	for i := range dst {
		dst[i] = pileup.Seq8ToASCIITable[SeqBase(s, i)]
	}
	return dst
}

// BaseQuals returns r's base qualities, or nil if the record carries the
// 0xff "no quality" marker.
func BaseQuals(r *sam.Record) []byte {
	if len(r.Qual) == 0 || r.Qual[0] == 0xff {
		return nil
	}
	return r.Qual
}
