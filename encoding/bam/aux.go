// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package bam

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hts/sam"
)

// auxTypeSizes maps a fixed-size aux value type to its encoded size.
// Variable-length and unknown types map to 0.
var auxTypeSizes = [256]int{
	'A': 1,
	'c': 1, 'C': 1,
	's': 2, 'S': 2,
	'i': 4, 'I': 4,
	'f': 4,
	'd': 8,
}

// AuxTypeSize returns the encoded size of a fixed-size aux value of type t,
// or 0 if t is variable-length ('Z', 'H', 'B') or unknown.
func AuxTypeSize(t byte) int { return auxTypeSizes[t] }

// IsMalformedTag reports whether err was caused by a corrupt aux tag block.
func IsMalformedTag(err error) bool {
	return errors.Is(errors.Invalid, err)
}

func malformedTag(format string, args ...interface{}) error {
	return errors.E(errors.Invalid, "bam: malformed aux tag: "+fmt.Sprintf(format, args...))
}

// PayloadSize returns the length of an aux value of type t. payload starts
// right after the type byte and extends to the end of the enclosing tag block.
//
// Fixed-size types return their table size. 'Z' and 'H' return the length of
// the text including its NUL terminator. 'B' returns 4 + count*elemSize; this
// excludes the element type byte, so the array occupies 1+PayloadSize bytes
// after the value type. An unknown type, a missing terminator, or a value that
// runs past the end of payload yields an error for which IsMalformedTag is
// true.
func PayloadSize(t byte, payload []byte) (int, error) {
	switch t {
	case 'Z', 'H':
		for i, v := range payload {
			if v == 0 {
				return i + 1, nil
			}
		}
		return 0, malformedTag("unterminated %q value", t)
	case 'B':
		if len(payload) < 5 {
			return 0, malformedTag("short array header (%d bytes)", len(payload))
		}
		elemSize := auxTypeSizes[payload[0]]
		if elemSize == 0 {
			return 0, malformedTag("bad array element type %q", payload[0])
		}
		count := uint64(binary.LittleEndian.Uint32(payload[1:5]))
		size := uint64(4) + count*uint64(elemSize)
		if size+1 > uint64(len(payload)) {
			return 0, malformedTag("array of %d %q elements overruns block", count, payload[0])
		}
		return int(size), nil
	}
	size := auxTypeSizes[t]
	if size == 0 {
		return 0, malformedTag("unknown value type %q", t)
	}
	if size > len(payload) {
		return 0, malformedTag("short %q value (%d of %d bytes)", t, len(payload), size)
	}
	return size, nil
}

// SkipTag returns the offset of the tag that follows the one starting at
// block[off].
func SkipTag(block []byte, off int) (int, error) {
	if off+3 > len(block) {
		return 0, malformedTag("truncated tag header at offset %d", off)
	}
	t := block[off+2]
	n, err := PayloadSize(t, block[off+3:])
	if err != nil {
		return 0, err
	}
	if t == 'B' {
		n++ // element type
	}
	return off + 3 + n, nil
}

// CountAuxFields returns the number of tags in the serialized aux block.
func CountAuxFields(block []byte) (int, error) {
	naux := 0
	for off := 0; off < len(block); naux++ {
		next, err := SkipTag(block, off)
		if err != nil {
			return -1, err
		}
		off = next
	}
	return naux, nil
}

// SplitAuxBlock splits a serialized aux block into sam.Aux values. The
// returned values share storage with block. Text values are returned without
// their NUL terminator, as sam.Aux expects.
func SplitAuxBlock(block []byte) ([]sam.Aux, error) {
	naux, err := CountAuxFields(block)
	if err != nil {
		return nil, err
	}
	aa := make([]sam.Aux, 0, naux)
	for off := 0; off < len(block); {
		next, err := SkipTag(block, off)
		if err != nil {
			return nil, err
		}
		end := next
		switch block[off+2] {
		case 'Z', 'H':
			end-- // Truncate terminal zero.
		}
		aa = append(aa, sam.Aux(block[off:end:end]))
		off = next
	}
	return aa, nil
}

// AppendAuxBlock serializes aa and appends the result to dst. It is the
// inverse of SplitAuxBlock.
func AppendAuxBlock(dst []byte, aa []sam.Aux) []byte {
	for _, a := range aa {
		dst = append(dst, []byte(a)...)
		switch a.Type() {
		case 'Z', 'H':
			dst = append(dst, 0)
		}
	}
	return dst
}

// FormatAux renders a as "TG:t:value" in SAM text form. Integer types are
// printed as 'i', 'd' as 'f', and arrays as "TG:B:t,v1,v2,...".
func FormatAux(a sam.Aux) string {
	if len(a) < 3 {
		return ""
	}
	var buf strings.Builder
	buf.Write(a[:2])
	buf.WriteByte(':')
	t, v := a[2], []byte(a[3:])
	switch t {
	case 'A', 'Z', 'H':
		buf.WriteByte(t)
		buf.WriteByte(':')
		buf.Write(v)
	case 'B':
		buf.WriteString("B:")
		if len(v) < 5 {
			break
		}
		elemType := v[0]
		elemSize := auxTypeSizes[elemType]
		buf.WriteByte(elemType)
		v = v[5:]
		for elemSize > 0 && len(v) >= elemSize {
			buf.WriteByte(',')
			buf.WriteString(formatAuxScalar(elemType, v))
			v = v[elemSize:]
		}
	case 'f', 'd':
		buf.WriteString("f:")
		buf.WriteString(formatAuxScalar(t, v))
	default:
		buf.WriteString("i:")
		buf.WriteString(formatAuxScalar(t, v))
	}
	return buf.String()
}

// formatAuxScalar renders the fixed-size value of type t at the start of v.
func formatAuxScalar(t byte, v []byte) string {
	if size := auxTypeSizes[t]; size == 0 || len(v) < size {
		return "?"
	}
	switch t {
	case 'A':
		return string(v[:1])
	case 'c':
		return strconv.FormatInt(int64(int8(v[0])), 10)
	case 'C':
		return strconv.FormatUint(uint64(v[0]), 10)
	case 's':
		return strconv.FormatInt(int64(int16(binary.LittleEndian.Uint16(v))), 10)
	case 'S':
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint16(v)), 10)
	case 'i':
		return strconv.FormatInt(int64(int32(binary.LittleEndian.Uint32(v))), 10)
	case 'I':
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(v)), 10)
	case 'f':
		return strconv.FormatFloat(float64(math.Float32frombits(binary.LittleEndian.Uint32(v))), 'g', -1, 32)
	default: // 'd'
		return strconv.FormatFloat(math.Float64frombits(binary.LittleEndian.Uint64(v)), 'g', -1, 64)
	}
}
