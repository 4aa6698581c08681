package persistence

import (
	"encoding/csv"
	"io"
	"strconv"
)

var yearlyHeader = []string{"Year", "Player", "Ships", "Caught", "Frozen", "Accepted_Contract", "Profit", "Cash"}

// WriteYearlyCSV writes one row per captain per closed year.
func WriteYearlyCSV(out io.Writer, rows []YearRow) error {
	w := csv.NewWriter(out)
	if err := w.Write(yearlyHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Year),
			r.Player,
			strconv.Itoa(r.Ships),
			strconv.FormatFloat(r.Caught, 'f', 2, 64),
			strconv.FormatFloat(r.Frozen, 'f', 2, 64),
			strconv.FormatBool(r.Accepted),
			strconv.FormatFloat(r.Profit, 'f', 2, 64),
			strconv.FormatFloat(r.Cash, 'f', 2, 64),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
