package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dataset-processor/internal/models"
)

func cells(values ...string) []models.Cell {
	row := make([]models.Cell, len(values))
	for i, v := range values {
		if v != "" {
			row[i] = models.Cell{Value: v, Valid: true}
		}
	}
	return row
}

func TestInferSchema(t *testing.T) {
	table := models.Table{
		Columns: []string{"id", "price", "qty", "flag", "name", "empty"},
		Rows: [][]models.Cell{
			cells("1", "1.5", "3", "True", "a", ""),
			cells("2", "2", "", "False", "b", ""),
			cells("3", "7", "4", "True", "3", ""),
		},
	}

	schema := InferSchema(table)
	assert.Equal(t, []models.Field{
		{Name: "id", Type: models.TypeInt64},
		{Name: "price", Type: models.TypeFloat64},
		{Name: "qty", Type: models.TypeFloat64},
		{Name: "flag", Type: models.TypeBool},
		{Name: "name", Type: models.TypeObject},
		{Name: "empty", Type: models.TypeFloat64},
	}, schema.Fields)
}

func TestColumnTags(t *testing.T) {
	assert.Equal(t, []models.Tag{{Name: "a"}, {Name: "b"}}, ColumnTags([]string{"a", "b"}))
}

func TestMergeSchema(t *testing.T) {
	a := &models.Schema{Fields: []models.Field{
		{Name: "id", Type: models.TypeInt64},
		{Name: "v", Type: models.TypeInt64},
		{Name: "s", Type: models.TypeBool},
	}}
	b := &models.Schema{Fields: []models.Field{
		{Name: "id", Type: models.TypeInt64},
		{Name: "v", Type: models.TypeFloat64},
		{Name: "s", Type: models.TypeObject},
		{Name: "new", Type: models.TypeBool},
	}}

	merged := MergeSchema(a, b)
	assert.Equal(t, []models.Field{
		{Name: "id", Type: models.TypeInt64},
		{Name: "v", Type: models.TypeFloat64},
		{Name: "s", Type: models.TypeObject},
		{Name: "new", Type: models.TypeBool},
	}, merged.Fields)
	assert.Equal(t, models.TypeInt64, a.Fields[1].Type, "inputs are not modified")

	assert.Same(t, a, MergeSchema(a, nil))
	assert.Same(t, b, MergeSchema(nil, b))
}
