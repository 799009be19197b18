package cli

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoot() *cobra.Command {
	root := &cobra.Command{Use: "vault", Short: "Textbook vault"}
	AddHelpJSONFlag(root)

	ingest := &cobra.Command{Use: "ingest <pdf>", Short: "Ingest a PDF", Run: func(*cobra.Command, []string) {}}
	ingest.Flags().StringP("subject", "s", "", "Subject label")
	ingest.Flags().Int("chunk-size", 600, "Chunk size")
	_ = ingest.MarkFlagRequired("subject")

	hidden := &cobra.Command{Use: "debug", Hidden: true, Run: func(*cobra.Command, []string) {}}

	root.AddCommand(ingest, hidden)
	return root
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(newTestRoot())

	assert.Equal(t, "vault", schema.Name)
	assert.Equal(t, "Textbook vault", schema.Description)
	require.Len(t, schema.Subcommands, 1)

	ingest := schema.Subcommands[0]
	assert.Equal(t, "ingest", ingest.Name)
	assert.Equal(t, "ingest <pdf>", ingest.Use)

	flags := map[string]FlagSchema{}
	for _, f := range ingest.Flags {
		flags[f.Name] = f
	}
	assert.Equal(t, FlagSchema{Name: "subject", Shorthand: "s", Type: "string", Description: "Subject label", Required: true}, flags["subject"])
	assert.Equal(t, FlagSchema{Name: "chunk-size", Type: "int", Default: "600", Description: "Chunk size"}, flags["chunk-size"])
	assert.NotContains(t, flags, "help-json")
}

func TestFindTargetCommand(t *testing.T) {
	root := newTestRoot()

	assert.Equal(t, "ingest", findTargetCommand(root, []string{"ingest"}).Name())
	assert.Equal(t, "ingest", findTargetCommand(root, []string{"ingest", "book.pdf"}).Name())
	assert.Equal(t, "vault", findTargetCommand(root, nil).Name())
	assert.Equal(t, "vault", findTargetCommand(root, []string{"unknown"}).Name())
}
