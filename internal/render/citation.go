package render

import (
	"datasetmd/pkg/citation"
	"datasetmd/pkg/metadata"
)

// citationText is "" when the dataset has nothing citable.
func citationText(ds *metadata.Dataset) (string, error) {
	text, ok, err := citation.Synthesize(ds)
	if err != nil || !ok {
		return "", err
	}
	return text, nil
}
