package buildresponse

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"chat-assistant/internal/models"
)

const TaskType = "build-response"

// Formatter renders query results and plant service payloads as chat text.
type Formatter struct {
	config *Config
}

func NewFormatter(config *Config) *Formatter {
	if config.Placeholder == "" {
		config.Placeholder = "N/A"
	}
	return &Formatter{config: config}
}

// RenderQueryResult lists records in column order, one numbered line each.
func (f *Formatter) RenderQueryResult(result *models.QueryResult) string {
	if result.Empty() {
		return NoItemsMessage
	}

	var parts []string
	if len(result.Records) == 1 {
		parts = append(parts, "I found 1 item:")
	} else {
		parts = append(parts, fmt.Sprintf("I found %d items:", len(result.Records)))
	}

	for i, record := range result.Records {
		columns := result.Columns
		if len(columns) == 0 {
			columns = sortedKeys(record)
		}
		pairs := make([]string, 0, len(columns))
		for _, col := range columns {
			pairs = append(pairs, fmt.Sprintf("%s: %s", col, f.formatValue(record[col], false)))
		}
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, strings.Join(pairs, ", ")))
	}

	if result.Truncated {
		parts = append(parts, fmt.Sprintf("Showing the first %d results.", len(result.Records)))
	}

	return strings.Join(parts, "\n")
}

// RenderFields prints "Label: value" for every declared field in order.
func (f *Formatter) RenderFields(title string, data map[string]interface{}, fields []Field) string {
	parts := make([]string, 0, len(fields)+1)
	if title != "" {
		parts = append(parts, title)
	}
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field.Label, f.formatValue(lookupNestedValue(data, field.Key), true)))
	}
	return strings.Join(parts, "\n")
}

func (f *Formatter) RenderIdentification(result map[string]interface{}) string {
	return f.RenderFields(identificationTitle, result, IdentificationFields)
}

// RenderDiagnosis prints the final decision lines of a diagnosis.
func (f *Formatter) RenderDiagnosis(finalDecision []string) string {
	if len(finalDecision) == 0 {
		return diagnosisTitle + "\n" + f.config.Placeholder
	}
	return diagnosisTitle + "\n" + strings.Join(finalDecision, "\n")
}

// RenderSolutions flattens the provider payload. Its shape is not fixed, so
// keys are printed in sorted order.
func (f *Formatter) RenderSolutions(result map[string]interface{}) string {
	if len(result) == 0 {
		return solutionsTitle + "\n" + f.config.Placeholder
	}

	parts := []string{solutionsTitle}
	for _, key := range sortedKeys(result) {
		switch v := result[key].(type) {
		case []interface{}:
			parts = append(parts, key+":")
			for _, item := range v {
				parts = append(parts, "- "+f.formatValue(item, true))
			}
		default:
			parts = append(parts, fmt.Sprintf("%s: %s", key, f.formatValue(v, true)))
		}
	}
	return strings.Join(parts, "\n")
}

func (f *Formatter) formatValue(v interface{}, blankIsMissing bool) string {
	switch val := v.(type) {
	case nil:
		return f.config.Placeholder
	case string:
		if blankIsMissing && strings.TrimSpace(val) == "" {
			return f.config.Placeholder
		}
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		return val.Format("2006-01-02 15:04")
	case []interface{}:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = f.formatValue(item, false)
		}
		return strings.Join(items, ", ")
	case []string:
		return strings.Join(val, ", ")
	default:
		return fmt.Sprint(val)
	}
}

func lookupNestedValue(data map[string]interface{}, key string) interface{} {
	parts := strings.Split(key, ".")
	current := interface{}(data)

	for _, part := range parts {
		currentMap, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}

		val, exists := currentMap[part]
		if !exists {
			return nil
		}

		current = val
	}

	return current
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
