package synthesizequery

import (
	"fmt"
	"strings"

	"chat-assistant/internal/models"
)

const systemPrompt = "You are an SQL expert."

// envelopeSchema is the only response shape accepted from the model.
var envelopeSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"query": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
	},
	"required":             []interface{}{"query"},
	"additionalProperties": false,
}

type envelope struct {
	Query string `json:"query"`
}

func buildPrompt(utterance string, schema models.SchemaDescriptor) string {
	var parts []string

	parts = append(parts, "Given the following SQL table, your job is to write a query given a user's request.")
	parts = append(parts, "")
	parts = append(parts, schema.Render())
	parts = append(parts, "")
	parts = append(parts, fmt.Sprintf("User request: %s", utterance))
	parts = append(parts, "")
	parts = append(parts, "Instructions:")
	parts = append(parts, fmt.Sprintf("- Only read from the %s table with a single SELECT statement", schema.Table()))
	parts = append(parts, "- Never modify data")
	parts = append(parts, "- Compare text columns case-insensitively")
	parts = append(parts, `- Return a JSON object with exactly one key "query" whose value is the SQL statement`)
	parts = append(parts, "- Do not wrap the JSON in markdown or add any other text")

	return strings.Join(parts, "\n")
}

func normalizeUtterance(utterance string) string {
	return strings.ToLower(strings.Join(strings.Fields(utterance), " "))
}
