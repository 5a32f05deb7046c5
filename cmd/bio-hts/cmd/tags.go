package cmd

import (
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	gbam "github.com/grailbio/htsutil/encoding/bam"
	"github.com/pkg/errors"
)

type tagsResult struct {
	records int
	bad     int
}

// runTags prints the aux fields of every record in the BAM at inPath as
// "name<TAB>TG:t:value...". The tags are decoded from the raw BAM aux block,
// so a record whose block cannot be walked is reported as such. If
// validateOnly is set, only those records are printed.
func runTags(ctx context.Context, inPath string, validateOnly bool, w io.Writer) (res tagsResult, err error) {
	in, err := file.Open(ctx, inPath)
	if err != nil {
		return res, errors.Wrapf(err, "tags: open %s", inPath)
	}
	defer file.CloseAndReport(ctx, in, &err)
	r, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return res, errors.Wrapf(err, "tags: read %s", inPath)
	}
	defer func() {
		if e := r.Close(); e != nil && err == nil {
			err = e
		}
	}()

	tw := tsv.NewWriter(w)
	var block []byte
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, errors.Wrapf(err, "tags: read %s", inPath)
		}
		res.records++
		block = gbam.AppendAuxBlock(block[:0], rec.AuxFields)
		aa, checkErr := checkAuxBlock(block, len(rec.AuxFields))
		if checkErr != nil {
			res.bad++
			log.Debug.Printf("tags: %s: %v", rec.Name, checkErr)
		}
		if validateOnly && checkErr == nil {
			continue
		}
		tw.WriteString(rec.Name)
		if checkErr != nil {
			tw.WriteString("ERROR:" + checkErr.Error())
		} else {
			for _, a := range aa {
				tw.WriteString(gbam.FormatAux(a))
			}
		}
		if err := tw.EndLine(); err != nil {
			return res, err
		}
	}
	if err := tw.Flush(); err != nil {
		return res, err
	}
	log.Printf("tags: %s: %d records, %d with malformed aux blocks", inPath, res.records, res.bad)
	return res, nil
}

// checkAuxBlock decodes block and verifies it holds want fields.
func checkAuxBlock(block []byte, want int) ([]sam.Aux, error) {
	n, err := gbam.CountAuxFields(block)
	if err != nil {
		return nil, err
	}
	if n != want {
		return nil, errors.Errorf("aux block has %d fields, record has %d", n, want)
	}
	return gbam.SplitAuxBlock(block)
}
