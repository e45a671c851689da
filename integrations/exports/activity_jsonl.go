package exports

import (
	"bytes"
	"encoding/json"
)

// ActivityJSONL builds a JSON Lines export of rows and returns the payload
// alongside its checksum.
func ActivityJSONL(rows []ActivityRow) ([]byte, string, error) {
	buffer := &bytes.Buffer{}
	encoder := json.NewEncoder(buffer)
	encoder.SetEscapeHTML(false)
	for _, row := range rows {
		if err := encoder.Encode(row); err != nil {
			return nil, "", err
		}
	}
	data := buffer.Bytes()
	return data, checksum(data), nil
}
