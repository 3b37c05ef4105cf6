package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"dataset-processor/internal/models"
)

var ErrNoHeader = errors.New("missing header row")

// ParseCSV reads a CSV file with a header row. Empty fields are null and
// short records are padded with nulls.
func ParseCSV(filePath string) (models.Table, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return models.Table{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return models.Table{}, ErrNoHeader
	}
	if err != nil {
		return models.Table{}, fmt.Errorf("failed to read csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	table := models.Table{Columns: columnNames(header)}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.Table{}, fmt.Errorf("failed to read csv record: %w", err)
		}
		table.Rows = append(table.Rows, toCells(record, len(table.Columns)))
	}
	return table, nil
}

// ParsePDF extracts the plain text of every page, joined with a space.
func ParsePDF(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Get file size for reader initialization
	stat, err := f.Stat()
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return "", err
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract page %d: %w", i, err)
		}
		pages = append(pages, pageText)
	}
	return strings.Join(pages, " "), nil
}

// ParseText reads a plain text or Markdown file verbatim.
func ParseText(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MarkdownHeadings returns the distinct heading texts of a Markdown
// document in document order.
func MarkdownHeadings(content string) []string {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	source := []byte(content)
	doc := md.Parser().Parse(text.NewReader(source))

	var headings []string
	seen := map[string]bool{}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if _, ok := n.(*ast.Heading); !ok {
			return ast.WalkContinue, nil
		}
		heading := strings.Join(strings.Fields(nodeText(n, source)), " ")
		if heading != "" && !seen[heading] {
			seen[heading] = true
			headings = append(headings, heading)
		}
		return ast.WalkSkipChildren, nil
	})
	return headings
}

func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			buf.WriteString(nodeText(c, source))
		}
	}
	return buf.String()
}

// columnNames names blank header cells the way pandas does.
func columnNames(header []string) []string {
	columns := make([]string, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		columns[i] = name
	}
	return columns
}

func toCells(record []string, width int) []models.Cell {
	cells := make([]models.Cell, max(width, len(record)))
	for i, v := range record {
		if v != "" {
			cells[i] = models.Cell{Value: v, Valid: true}
		}
	}
	return cells
}
