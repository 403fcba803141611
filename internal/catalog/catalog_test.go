package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datasetmd/pkg/metadata"
)

func TestNewRecordUsesIdentifier(t *testing.T) {
	rec := NewRecord(&metadata.Dataset{Base: &metadata.Base{Identifier: "  ocean-temp  ", Title: "Ocean"}})
	assert.Equal(t, "ocean-temp", rec.ID)
	assert.Equal(t, "Ocean", rec.Title())
}

func TestNewRecordFallsBackToUUID(t *testing.T) {
	for _, ds := range []*metadata.Dataset{nil, {}, {Base: &metadata.Base{Identifier: " "}}} {
		rec := NewRecord(ds)
		_, err := uuid.Parse(rec.ID)
		require.NoError(t, err)
		assert.Empty(t, rec.Title())
	}
	assert.NotEqual(t, NewRecord(nil).ID, NewRecord(nil).ID)
}

func TestCloneIsDeep(t *testing.T) {
	orig := NewRecord(&metadata.Dataset{
		Base: &metadata.Base{Identifier: "x", Title: "Before", Created: metadata.NewDate(2020, 1, 2)},
		Citation: &metadata.Citation{Authors: metadata.Contributors{
			&metadata.Person{GivenName: "Jane", FamilyName: "Doe"},
			&metadata.Organisation{Name: "Marine Institute"},
		}},
	})
	cp, err := Clone(orig)
	require.NoError(t, err)
	cp.Dataset.Base.Title = "After"
	assert.Equal(t, "Before", orig.Dataset.Base.Title)
	require.Len(t, cp.Dataset.Citation.Authors, 2)
	assert.IsType(t, &metadata.Organisation{}, cp.Dataset.Citation.Authors[1])
	assert.Equal(t, "2020-01-02", cp.Dataset.Base.Created.String())
}

func TestEncodeRejectsInvalidContributor(t *testing.T) {
	rec := NewRecord(&metadata.Dataset{Citation: &metadata.Citation{Authors: metadata.Contributors{nil}}})
	_, err := Encode(rec)
	require.ErrorIs(t, err, metadata.ErrInvalidContributor)
}

func TestDecodeError(t *testing.T) {
	_, err := Decode([]byte("{"))
	require.Error(t, err)
}
