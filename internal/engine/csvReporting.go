package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"papertrade/types"
)

// WriteHistoryCSVFile writes entries to a CSV file at the given path.
func WriteHistoryCSVFile(path string, entries []types.HistoryEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create history file: %w", err)
	}
	defer f.Close()

	return WriteHistoryCSV(f, entries)
}

// WriteHistoryCSV writes entries to any io.Writer as CSV.
func WriteHistoryCSV(w io.Writer, entries []types.HistoryEntry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"id",
		"symbol",
		"kind", // BUY or SELL
		"shares",
		"price",
		"executed_at", // RFC3339
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, en := range entries {
		record := []string{
			en.ID.String(),
			en.Symbol,
			string(en.Side),
			strconv.FormatInt(en.Shares, 10),
			en.Price.String(),
			en.Time.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	return nil
}
