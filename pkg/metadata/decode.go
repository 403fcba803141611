package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DocumentFormat identifies the encoding of a metadata document.
type DocumentFormat string

const (
	DocumentYAML DocumentFormat = "yaml"
	DocumentJSON DocumentFormat = "json"
)

// FormatForPath picks the document format from a file extension. Anything
// other than .json is read as YAML.
func FormatForPath(path string) DocumentFormat {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return DocumentJSON
	}
	return DocumentYAML
}

// FormatForContentType maps an HTTP content type to a document format.
func FormatForContentType(contentType string) DocumentFormat {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "json") {
		return DocumentJSON
	}
	return DocumentYAML
}

// Decode reads a single dataset document. Unknown top-level keys are rejected.
func Decode(r io.Reader, format DocumentFormat) (*Dataset, error) {
	var ds Dataset
	switch format {
	case DocumentJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&ds); err != nil {
			return nil, fmt.Errorf("decode json metadata: %w", err)
		}
	case DocumentYAML, "":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&ds); err != nil {
			if err == io.EOF {
				return &ds, nil
			}
			return nil, fmt.Errorf("decode yaml metadata: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported metadata document format %q", format)
	}
	return &ds, nil
}

// LoadFile decodes the dataset document at path.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Decode(f, FormatForPath(path))
}
