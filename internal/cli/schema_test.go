package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTree() *cobra.Command {
	root := &cobra.Command{Use: "notewised", Short: "root"}
	AddHelpJSONFlag(root)

	reindex := &cobra.Command{Use: "reindex", Short: "Rebuild the index", RunE: func(*cobra.Command, []string) error { return nil }}
	reindex.Flags().String("owner", "", "Owner")
	reindex.Flags().StringP("output", "o", "text", "Output format")
	_ = reindex.MarkFlagRequired("owner")

	migrate := &cobra.Command{Use: "migrate", Short: "Migrations"}
	migrate.AddCommand(&cobra.Command{Use: "up", Short: "Apply", RunE: func(*cobra.Command, []string) error { return nil }})
	migrate.AddCommand(&cobra.Command{Use: "secret", Hidden: true})

	root.AddCommand(reindex, migrate)
	return root
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(testTree())

	assert.Equal(t, "notewised", schema.Name)
	require.Len(t, schema.Subcommands, 2)

	var reindex, migrate CommandSchema
	for _, sub := range schema.Subcommands {
		switch sub.Name {
		case "reindex":
			reindex = sub
		case "migrate":
			migrate = sub
		}
	}

	require.Len(t, reindex.Flags, 2)
	flags := map[string]FlagSchema{}
	for _, f := range reindex.Flags {
		flags[f.Name] = f
	}
	assert.True(t, flags["owner"].Required)
	assert.False(t, flags["output"].Required)
	assert.Equal(t, "o", flags["output"].Shorthand)
	assert.Equal(t, "text", flags["output"].Default)

	require.Len(t, migrate.Subcommands, 1)
	assert.Equal(t, "up", migrate.Subcommands[0].Name)
}

func TestFindTargetCommand(t *testing.T) {
	root := testTree()

	assert.Equal(t, "up", findTargetCommand(root, []string{"migrate", "up"}).Name())
	assert.Equal(t, "migrate", findTargetCommand(root, []string{"migrate", "--flag"}).Name())
	assert.Equal(t, "notewised", findTargetCommand(root, nil).Name())
}

func TestWriteSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSchema(&buf, testTree()))

	var decoded CommandSchema
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "notewised", decoded.Name)
	assert.Len(t, decoded.Subcommands, 2)
}
