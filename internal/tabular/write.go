package tabular

import (
	"encoding/csv"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/croptrust/gapanalysis-cli/internal/model"
)

// WriteScores writes per-species GRSex rows as CSV, preserving row order.
func WriteScores(path string, rows []model.ScoreRow) error {
	return writeCSV(path, func(enc *csvutil.Encoder) error {
		for _, row := range rows {
			if err := enc.Encode(row); err != nil {
				return eris.Wrapf(err, "tabular: encode score row %s", row.Species)
			}
		}
		return nil
	})
}

// WriteAssessments writes final assessment rows as CSV, preserving row
// order. Missing scores serialize as empty cells.
func WriteAssessments(path string, rows []model.FinalAssessment) error {
	return writeCSV(path, func(enc *csvutil.Encoder) error {
		for _, row := range rows {
			if err := enc.Encode(row); err != nil {
				return eris.Wrapf(err, "tabular: encode assessment row %s", row.Species)
			}
		}
		return nil
	})
}

func writeCSV(path string, encode func(*csvutil.Encoder) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "tabular: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	if err := encode(enc); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "tabular: flush %s", path)
	}
	return nil
}
