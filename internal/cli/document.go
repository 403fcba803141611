package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"datasetmd/internal/render"
	"datasetmd/pkg/citation"
	"datasetmd/pkg/keywords"
	"datasetmd/pkg/metadata"
)

func loadDataset(cmd *cobra.Command, path string) (*metadata.Dataset, error) {
	ds, err := metadata.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	commandLogger(cmd).Debug("metadata loaded", "path", path, "format", metadata.FormatForPath(path))
	return ds, nil
}

func newCiteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cite FILE",
		Short: "Print the suggested citation for a metadata document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadDataset(cmd, args[0])
			if err != nil {
				return err
			}
			text, ok, err := citation.Synthesize(ds)
			if err != nil {
				return err
			}
			if !ok {
				commandLogger(cmd).Warn("nothing citable in document", "path", args[0])
				return nil
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
}

func newKeywordsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "keywords FILE",
		Short: "Group observed properties and keywords by vocabulary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadDataset(cmd, args[0])
			if err != nil {
				return err
			}
			groups, ok := keywords.Group(ds.ObservedProperties, ds.Keywords)
			out := cmd.OutOrStdout()
			if asJSON {
				if groups == nil {
					groups = []keywords.Vocabulary{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(groups)
			}
			if !ok {
				commandLogger(cmd).Warn("no usable keywords in document", "path", args[0])
				return nil
			}
			return writeVocabularies(out, groups)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the groups as JSON")
	return cmd
}

func writeVocabularies(w io.Writer, groups []keywords.Vocabulary) error {
	for _, g := range groups {
		label := g.Title
		if label == "" {
			label = "(uncontrolled)"
		}
		if g.URL != "" {
			label += " <" + g.URL + ">"
		}
		if _, err := fmt.Fprintln(w, label); err != nil {
			return err
		}
		for _, t := range g.Terms {
			line := "  - " + t.Title
			if t.URL != "" {
				line += " <" + t.URL + ">"
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func newRenderCmd() *cobra.Command {
	var (
		format      string
		output      string
		templateDir string
	)
	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render a metadata document as ISO 19139, Schema.org or citation text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}
			ds, err := loadDataset(cmd, args[0])
			if err != nil {
				return err
			}
			renderer, err := render.New(render.WithTemplateDir(templateDir))
			if err != nil {
				return err
			}
			doc, err := renderer.Render(ds, f)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(doc.Body)
				return err
			}
			if err := os.WriteFile(output, doc.Body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			commandLogger(cmd).Debug("document written", "path", output, "format", doc.Format, "bytes", len(doc.Body))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(render.FormatISO19139), "Output format (iso19139, schemaorg, citation)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	cmd.Flags().StringVar(&templateDir, "template-dir", "", "Read templates from this directory")
	return cmd
}
