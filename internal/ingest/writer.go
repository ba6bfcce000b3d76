package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
)

func writeCSVFile(path string, records [][]string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file %s: %w", path, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write csv file %s: %w", path, err)
	}
	return nil
}
