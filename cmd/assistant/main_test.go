package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-assistant/internal/models"
)

func TestSchemaCommand(t *testing.T) {
	t.Run("lists registered tables", func(t *testing.T) {
		var out bytes.Buffer
		schemaCmd.SetOut(&out)
		require.NoError(t, schemaCmd.RunE(schemaCmd, nil))

		for _, name := range models.DefaultSchemaRegistry().Names() {
			assert.Contains(t, out.String(), name)
		}
	})

	t.Run("renders one table", func(t *testing.T) {
		var out bytes.Buffer
		schemaCmd.SetOut(&out)
		require.NoError(t, schemaCmd.RunE(schemaCmd, []string{"inventory"}))
		assert.Contains(t, out.String(), "CREATE TABLE inventory (")
	})

	t.Run("unknown table", func(t *testing.T) {
		schemaCmd.SetOut(&bytes.Buffer{})
		assert.Error(t, schemaCmd.RunE(schemaCmd, []string{"customers"}))
	})
}

func TestPrintReplies(t *testing.T) {
	var out bytes.Buffer
	printReplies(&out, []models.Reply{
		{Text: "What would you like to do?", Options: []string{"Identify", "Diagnose"}},
		{Text: "Done."},
	})

	assert.Equal(t, "What would you like to do?\n  [Identify]\n  [Diagnose]\nDone.\n", out.String())
}
