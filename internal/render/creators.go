package render

import (
	"fmt"

	"datasetmd/internal/ordered"
	"datasetmd/pkg/metadata"
)

// Creator is a Schema.org Person or Organization credited with a dataset.
type Creator struct {
	Type       string `json:"@type"`
	ID         string `json:"@id,omitempty"`
	Name       string `json:"name,omitempty"`
	FamilyName string `json:"familyName,omitempty"`
	GivenName  string `json:"givenName,omitempty"`
	URL        string `json:"url,omitempty"`
}

// Creators lists the citation authors as Schema.org creators. Entries with
// nothing to show are dropped, as are repeats of an earlier entry.
func Creators(ds *metadata.Dataset) ([]Creator, error) {
	if ds == nil || ds.Citation == nil {
		return nil, nil
	}
	var (
		seen ordered.Index[Creator]
		out  []Creator
	)
	for i, a := range ds.Citation.Authors {
		var c Creator
		switch v := a.(type) {
		case *metadata.Person:
			if v == nil {
				return nil, fmt.Errorf("creator %d: nil person: %w", i+1, metadata.ErrInvalidContributor)
			}
			c = Creator{Type: "Person", GivenName: v.GivenName, FamilyName: v.FamilyName, Name: v.DisplayName()}
		case *metadata.Organisation:
			if v == nil {
				return nil, fmt.Errorf("creator %d: nil organisation: %w", i+1, metadata.ErrInvalidContributor)
			}
			c = Creator{Type: "Organization", Name: v.Name}
			if v.Website != nil && v.Website.URL != "" {
				c.ID = v.Website.URL
				c.URL = v.Website.URL
			}
		default:
			return nil, fmt.Errorf("creator %d: %T: %w", i+1, a, metadata.ErrInvalidContributor)
		}
		if c.Name == "" && c.ID == "" {
			continue
		}
		if _, added := seen.Add(c); added {
			out = append(out, c)
		}
	}
	return out, nil
}
