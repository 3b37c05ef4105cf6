package parser

import (
	"strconv"
	"strings"

	"dataset-processor/internal/models"
)

// InferSchema derives a pandas-like dtype for every column. Integer columns
// containing nulls become float64, as they would in a DataFrame.
func InferSchema(table models.Table) *models.Schema {
	schema := &models.Schema{Fields: make([]models.Field, len(table.Columns))}
	for i, name := range table.Columns {
		schema.Fields[i] = models.Field{Name: name, Type: columnType(table.Rows, i)}
	}
	return schema
}

// ColumnTags returns one tag per column.
func ColumnTags(columns []string) []models.Tag {
	tags := make([]models.Tag, len(columns))
	for i, name := range columns {
		tags[i] = models.Tag{Name: name}
	}
	return tags
}

// HeadingTags returns one tag per Markdown heading.
func HeadingTags(content string) []models.Tag {
	tags := []models.Tag{}
	for _, h := range MarkdownHeadings(content) {
		tags = append(tags, models.Tag{Name: h})
	}
	return tags
}

// MergeSchema combines the schemas of two reads of the same table. Columns
// keep first-seen order; conflicting types widen to float64 when both are
// numeric and to object otherwise.
func MergeSchema(a, b *models.Schema) *models.Schema {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}

	merged := &models.Schema{Fields: append([]models.Field(nil), a.Fields...)}
	index := make(map[string]int, len(merged.Fields))
	for i, f := range merged.Fields {
		index[f.Name] = i
	}
	for _, f := range b.Fields {
		i, ok := index[f.Name]
		if !ok {
			index[f.Name] = len(merged.Fields)
			merged.Fields = append(merged.Fields, f)
			continue
		}
		merged.Fields[i].Type = widen(merged.Fields[i].Type, f.Type)
	}
	return merged
}

func widen(a, b string) string {
	switch {
	case a == b:
		return a
	case isNumeric(a) && isNumeric(b):
		return models.TypeFloat64
	default:
		return models.TypeObject
	}
}

func isNumeric(t string) bool {
	return t == models.TypeInt64 || t == models.TypeFloat64
}

func columnType(rows [][]models.Cell, col int) string {
	isInt, isFloat, isBool := true, true, true
	values, nulls := 0, 0

	for _, row := range rows {
		if col >= len(row) || !row[col].Valid {
			nulls++
			continue
		}
		values++
		v := strings.TrimSpace(row[col].Value)
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			isInt = false
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			isFloat = false
		}
		if !isBoolLiteral(v) {
			isBool = false
		}
	}

	switch {
	case values == 0:
		// an all-null column is read as NaN floats
		return models.TypeFloat64
	case isInt && nulls == 0:
		return models.TypeInt64
	case isInt || isFloat:
		return models.TypeFloat64
	case isBool && nulls == 0:
		return models.TypeBool
	default:
		return models.TypeObject
	}
}

func isBoolLiteral(v string) bool {
	switch v {
	case "True", "False", "true", "false", "TRUE", "FALSE":
		return true
	}
	return false
}
