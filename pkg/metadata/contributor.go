package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidContributor reports a contributor that is neither a Person nor an Organisation.
var ErrInvalidContributor = errors.New("metadata: invalid contributor")

// ContributorKind tags the two contributor variants in encoded documents.
type ContributorKind string

const (
	KindPerson       ContributorKind = "person"
	KindOrganisation ContributorKind = "organisation"
)

// NameOrder selects how a Person's full name is displayed.
type NameOrder string

const (
	FamilyThenGiven NameOrder = "FAMILY_THEN_GIVEN"
	GivenThenFamily NameOrder = "GIVEN_THEN_FAMILY"
)

// Contributor is a Person or an Organisation credited as an author. The set
// of implementations is closed to this package.
type Contributor interface {
	Kind() ContributorKind
	isContributor()
}

// Person may be affiliated with one or more organisations.
type Person struct {
	Affiliations []*Organisation `json:"affiliation,omitempty" yaml:"affiliation"`
	FamilyName   string          `json:"family_name,omitempty" yaml:"family_name"`
	GivenName    string          `json:"given_name,omitempty" yaml:"given_name"`
	NameOrder    NameOrder       `json:"name_order,omitempty" yaml:"name_order"`
	Role         string          `json:"role,omitempty" yaml:"role"`
}

// Organisation is a data provider, publisher or other party related to a dataset.
type Organisation struct {
	AdministrativeArea string      `json:"administrative_area,omitempty" yaml:"administrative_area"`
	City               string      `json:"city,omitempty" yaml:"city"`
	Country            string      `json:"country,omitempty" yaml:"country"`
	DeliveryPoint      string      `json:"delivery_point,omitempty" yaml:"delivery_point"`
	EmailAddress       string      `json:"email_address,omitempty" yaml:"email_address"`
	Name               string      `json:"name,omitempty" yaml:"name"`
	PostalCode         string      `json:"postal_code,omitempty" yaml:"postal_code"`
	Website            *WebAddress `json:"website,omitempty" yaml:"website"`
}

func (*Person) Kind() ContributorKind       { return KindPerson }
func (*Person) isContributor()              {}
func (*Organisation) Kind() ContributorKind { return KindOrganisation }
func (*Organisation) isContributor()        {}

// EffectiveNameOrder returns the configured order, defaulting to given-then-family.
func (p *Person) EffectiveNameOrder() NameOrder {
	if p.NameOrder == FamilyThenGiven {
		return FamilyThenGiven
	}
	return GivenThenFamily
}

// DisplayName joins the available names in the person's display order.
func (p *Person) DisplayName() string {
	switch {
	case p.FamilyName == "":
		return p.GivenName
	case p.GivenName == "":
		return p.FamilyName
	case p.EffectiveNameOrder() == FamilyThenGiven:
		return p.FamilyName + " " + p.GivenName
	default:
		return p.GivenName + " " + p.FamilyName
	}
}

// Contributors is an ordered author list. It encodes each entry as an object
// tagged with a "type" of person or organisation.
type Contributors []Contributor

type personEnvelope struct {
	Type ContributorKind `json:"type"`
	*Person
}

type organisationEnvelope struct {
	Type ContributorKind `json:"type"`
	*Organisation
}

type contributorHead struct {
	Type string `json:"type" yaml:"type"`
}

// MarshalJSON implements json.Marshaler.
func (cs Contributors) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(cs))
	for i, c := range cs {
		switch v := c.(type) {
		case *Person:
			if v == nil {
				return nil, fmt.Errorf("contributor %d: %w: nil person", i, ErrInvalidContributor)
			}
			out = append(out, personEnvelope{Type: KindPerson, Person: v})
		case *Organisation:
			if v == nil {
				return nil, fmt.Errorf("contributor %d: %w: nil organisation", i, ErrInvalidContributor)
			}
			out = append(out, organisationEnvelope{Type: KindOrganisation, Organisation: v})
		default:
			return nil, fmt.Errorf("contributor %d: %w: %T", i, ErrInvalidContributor, c)
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (cs *Contributors) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Contributors, 0, len(raws))
	for i, raw := range raws {
		var head contributorHead
		if err := json.Unmarshal(raw, &head); err != nil {
			return fmt.Errorf("contributor %d: %w", i, err)
		}
		kind, err := parseKind(head.Type)
		if err != nil {
			return fmt.Errorf("contributor %d: %w", i, err)
		}
		switch kind {
		case KindPerson:
			var p Person
			if err := json.Unmarshal(raw, &p); err != nil {
				return fmt.Errorf("contributor %d: %w", i, err)
			}
			out = append(out, &p)
		case KindOrganisation:
			var o Organisation
			if err := json.Unmarshal(raw, &o); err != nil {
				return fmt.Errorf("contributor %d: %w", i, err)
			}
			out = append(out, &o)
		}
	}
	*cs = out
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (cs *Contributors) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: authors must be a sequence", node.Line)
	}
	out := make(Contributors, 0, len(node.Content))
	for i, item := range node.Content {
		var head contributorHead
		if err := item.Decode(&head); err != nil {
			return fmt.Errorf("contributor %d: %w", i, err)
		}
		kind, err := parseKind(head.Type)
		if err != nil {
			return fmt.Errorf("contributor %d (line %d): %w", i, item.Line, err)
		}
		switch kind {
		case KindPerson:
			var p Person
			if err := item.Decode(&p); err != nil {
				return fmt.Errorf("contributor %d: %w", i, err)
			}
			out = append(out, &p)
		case KindOrganisation:
			var o Organisation
			if err := item.Decode(&o); err != nil {
				return fmt.Errorf("contributor %d: %w", i, err)
			}
			out = append(out, &o)
		}
	}
	*cs = out
	return nil
}

func parseKind(raw string) (ContributorKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(KindPerson):
		return KindPerson, nil
	case string(KindOrganisation), "organization":
		return KindOrganisation, nil
	case "":
		return "", fmt.Errorf("%w: missing type", ErrInvalidContributor)
	default:
		return "", fmt.Errorf("%w: unknown type %q", ErrInvalidContributor, raw)
	}
}
