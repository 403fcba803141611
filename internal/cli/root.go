// Package cli wires the datasetmd command tree.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"datasetmd/internal/logging"
)

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand builds a fresh command tree. Tests build their own so flag
// state never leaks between runs.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "datasetmd",
		Short: "Dataset metadata citations, keywords and documents",
		Long: `datasetmd reads dataset metadata documents (YAML or JSON) and produces
suggested citations, vocabulary-grouped keywords and ISO 19139 or Schema.org
documents. "datasetmd serve" runs the same operations behind an HTTP API with a
record store and background exports.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newCiteCmd(),
		newKeywordsCmd(),
		newRenderCmd(),
		newServeCmd(),
		newVersionCmd(),
	)
	return root
}

func verbose(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetBool("verbose")
	return err == nil && v
}

// commandLogger is the text logger used by the one-shot commands.
func commandLogger(cmd *cobra.Command) *slog.Logger {
	return newLogger(cmd, cmd.ErrOrStderr(), slog.LevelWarn, logging.FormatText)
}

func newLogger(cmd *cobra.Command, w io.Writer, level slog.Level, format logging.Format) *slog.Logger {
	if verbose(cmd) {
		level = slog.LevelDebug
	}
	return logging.New(level, format, w)
}
