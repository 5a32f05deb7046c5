package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/htsutil/util"
	"github.com/pkg/errors"
)

// runFisher parses the four cells of a 2x2 contingency table, in row-major
// order, and prints the Fisher exact test p-values.
func runFisher(argv []string, w io.Writer) (util.FisherResult, error) {
	if len(argv) != 4 {
		return util.FisherResult{}, fmt.Errorf("fisher takes n11 n12 n21 n22, but got %v", argv)
	}
	var n [4]int
	for i, arg := range argv {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 0 {
			return util.FisherResult{}, errors.Errorf("fisher: cell %q is not a nonnegative integer", arg)
		}
		n[i] = v
	}
	res := util.FisherExactTest(n[0], n[1], n[2], n[3])
	_, err := fmt.Fprintf(w, "left\t%.6g\nright\t%.6g\ntwo-tail\t%.6g\n", res.Left, res.Right, res.TwoTail)
	return res, err
}
