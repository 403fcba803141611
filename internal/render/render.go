// Package render turns a dataset metadata snapshot into interchange
// documents: ISO 19139 XML, Schema.org JSON-LD and a plain-text citation.
package render

import (
	"bytes"
	"embed"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/template"

	"datasetmd/pkg/metadata"
)

// Format names an output document type.
type Format string

const (
	FormatISO19139  Format = "iso19139"
	FormatSchemaOrg Format = "schemaorg"
	FormatCitation  Format = "citation"
	// FormatDataCite is declared but has no renderer yet.
	FormatDataCite Format = "datacite"
)

var (
	// ErrUnknownFormat is returned for format names that are not declared.
	ErrUnknownFormat = errors.New("render: unknown format")
	// ErrUnsupportedFormat is returned for declared formats without a renderer.
	ErrUnsupportedFormat = errors.New("render: unsupported format")
)

const isoTemplateName = "iso19139.xml.tmpl"

//go:embed templates/*.tmpl
var embedded embed.FS

// Formats lists the formats Render can produce.
func Formats() []Format {
	return []Format{FormatISO19139, FormatSchemaOrg, FormatCitation}
}

// ParseFormat resolves a user supplied format name.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "iso19139", "iso", "iso-19139":
		return FormatISO19139, nil
	case "schemaorg", "schema.org", "jsonld", "json-ld":
		return FormatSchemaOrg, nil
	case "citation", "cite", "text":
		return FormatCitation, nil
	case "datacite":
		return FormatDataCite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, raw)
	}
}

// Document is a rendered metadata document.
type Document struct {
	Format      Format
	ContentType string
	Extension   string
	Body        []byte
}

// Renderer renders datasets. It is safe for concurrent use.
type Renderer struct {
	iso *template.Template
}

type options struct {
	templates fs.FS
}

// Option configures a Renderer.
type Option func(*options)

// WithTemplateFS replaces the embedded templates. fsys must contain
// iso19139.xml.tmpl at its root.
func WithTemplateFS(fsys fs.FS) Option {
	return func(o *options) { o.templates = fsys }
}

// WithTemplateDir reads templates from a directory on disk. An empty dir
// keeps the embedded templates.
func WithTemplateDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.templates = os.DirFS(dir)
		}
	}
}

// New parses the document templates.
func New(opts ...Option) (*Renderer, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.templates == nil {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, err
		}
		o.templates = sub
	}
	iso, err := template.New(isoTemplateName).
		Funcs(template.FuncMap{"xml": xmlEscape}).
		ParseFS(o.templates, isoTemplateName)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", isoTemplateName, err)
	}
	return &Renderer{iso: iso}, nil
}

// Render produces the document for ds in the requested format.
func (r *Renderer) Render(ds *metadata.Dataset, format Format) (Document, error) {
	if ds == nil {
		ds = &metadata.Dataset{}
	}
	switch format {
	case FormatISO19139:
		view, err := newISOView(ds)
		if err != nil {
			return Document{}, err
		}
		var buf bytes.Buffer
		if err := r.iso.Execute(&buf, view); err != nil {
			return Document{}, fmt.Errorf("render iso19139: %w", err)
		}
		return Document{Format: format, ContentType: "application/xml", Extension: "xml", Body: buf.Bytes()}, nil
	case FormatSchemaOrg:
		body, err := schemaOrg(ds)
		if err != nil {
			return Document{}, err
		}
		return Document{Format: format, ContentType: "application/ld+json", Extension: "jsonld", Body: body}, nil
	case FormatCitation:
		text, err := citationText(ds)
		if err != nil {
			return Document{}, err
		}
		return Document{Format: format, ContentType: "text/plain; charset=utf-8", Extension: "txt", Body: []byte(text)}, nil
	case FormatDataCite:
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	default:
		return Document{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func xmlEscape(s string) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}
