package catalog

import (
	"encoding/json"
	"fmt"
)

// Encode serialises a record as the JSON payload the SQL drivers store.
func Encode(rec Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	return data, nil
}

// Decode parses a payload written by Encode.
func Decode(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// Clone returns a deep copy of rec so stores never share datasets with callers.
func Clone(rec Record) (Record, error) {
	data, err := Encode(rec)
	if err != nil {
		return Record{}, err
	}
	return Decode(data)
}
