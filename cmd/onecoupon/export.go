package main

import (
	"fmt"
	"os"

	"onecoupon/integrations/exports"
)

// writeExport writes rows to path in format and returns the payload checksum
// where the format provides one.
func writeExport(format, path string, rows []exports.ActivityRow) (string, error) {
	var (
		data []byte
		sum  string
		err  error
	)
	switch format {
	case "csv":
		data, sum, err = exports.ActivityCSV(rows)
	case "jsonl":
		data, sum, err = exports.ActivityJSONL(rows)
	case "parquet":
		return "", exports.WriteActivityParquet(path, rows)
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return sum, nil
}
