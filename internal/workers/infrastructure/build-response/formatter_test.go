package buildresponse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"chat-assistant/internal/models"
)

func TestFormatter_RenderQueryResult(t *testing.T) {
	f := NewFormatter(LoadConfig())

	tests := []struct {
		name   string
		result *models.QueryResult
		want   string
	}{
		{
			name:   "nil result",
			result: nil,
			want:   NoItemsMessage,
		},
		{
			name:   "zero rows",
			result: &models.QueryResult{Columns: []string{"product_name"}, Records: []map[string]interface{}{}},
			want:   NoItemsMessage,
		},
		{
			name: "single row keeps column order",
			result: &models.QueryResult{
				Columns: []string{"product_name", "price", "color", "size"},
				Records: []map[string]interface{}{
					{"product_name": "T-Shirt", "price": 159.99, "color": "Red", "size": nil},
				},
			},
			want: "I found 1 item:\n1. product_name: T-Shirt, price: 159.99, color: Red, size: N/A",
		},
		{
			name: "truncated",
			result: &models.QueryResult{
				Columns: []string{"sku"},
				Records: []map[string]interface{}{
					{"sku": "SKU001"},
					{"sku": "SKU002"},
				},
				Truncated: true,
			},
			want: "I found 2 items:\n1. sku: SKU001\n2. sku: SKU002\nShowing the first 2 results.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.RenderQueryResult(tt.result))
		})
	}
}

func TestFormatter_RenderIdentification(t *testing.T) {
	f := NewFormatter(LoadConfig())

	got := f.RenderIdentification(map[string]interface{}{
		"name":      "Monstera deliciosa",
		"sunlight":  "Partial sun",
		"soil":      "",
		"hardiness": []interface{}{"10", "11"},
	})

	lines := strings.Split(got, "\n")
	assert.Len(t, lines, len(IdentificationFields)+1)
	assert.Equal(t, "Plant identified:", lines[0])
	assert.Equal(t, "Name: Monstera deliciosa", lines[1])
	assert.Equal(t, "Hardiness: 10, 11", lines[2])
	assert.Equal(t, "Hardiness Zones: N/A", lines[3])
	assert.Equal(t, "Soil: N/A", lines[4])
	assert.Equal(t, "Sunlight: Partial sun", lines[5])
	assert.Equal(t, "Bloom Season: N/A", lines[17])
}

func TestFormatter_RenderFields_Nested(t *testing.T) {
	f := NewFormatter(&Config{Placeholder: "-"})

	got := f.RenderFields("", map[string]interface{}{
		"care": map[string]interface{}{"water": "weekly"},
	}, []Field{{Key: "care.water", Label: "Water"}, {Key: "care.light", Label: "Light"}})

	assert.Equal(t, "Water: weekly\nLight: -", got)
}

func TestFormatter_RenderDiagnosisAndSolutions(t *testing.T) {
	f := NewFormatter(LoadConfig())

	assert.Equal(t, "The diagnosis is:\nLeaf spot\nOverwatering",
		f.RenderDiagnosis([]string{"Leaf spot", "Overwatering"}))
	assert.Equal(t, "The diagnosis is:\nN/A", f.RenderDiagnosis(nil))

	got := f.RenderSolutions(map[string]interface{}{
		"treatment":  []interface{}{"Remove affected leaves", "Apply copper fungicide"},
		"prevention": "Water at the base",
	})
	assert.Equal(t, "The recommended solutions are:\nprevention: Water at the base\ntreatment:\n- Remove affected leaves\n- Apply copper fungicide", got)
}
