package dataset

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/YuminosukeSato/bikecount/pkg/errors"
)

// SubmissionHeader is the header row of the prediction file.
var SubmissionHeader = []string{"Id", "log_bike_count"}

// WriteSubmission writes one row per prediction with a 0-based Id in input order.
func WriteSubmission(w io.Writer, predictions []float64) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)
	if err := cw.Write(SubmissionHeader); err != nil {
		return errors.Wrap(err, "write header")
	}
	row := make([]string, 2)
	for i, p := range predictions {
		row[0] = strconv.Itoa(i)
		row[1] = strconv.FormatFloat(p, 'g', -1, 64)
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, "flush")
	}
	return errors.Wrap(bw.Flush(), "flush")
}

// WriteSubmissionFile creates path and writes the predictions into it.
func WriteSubmissionFile(path string, predictions []float64) (err error) {
	fh, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := fh.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return WriteSubmission(fh, predictions)
}
