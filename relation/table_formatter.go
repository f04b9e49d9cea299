package relation

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// TableFormatter provides utilities for formatting Relations as tables
type TableFormatter struct {
	// MaxRows caps the number of rows rendered; 0 means unlimited
	MaxRows int
	// MaxWidth is the maximum width for a column value
	MaxWidth int
	// TruncateString is the string to append when truncating
	TruncateString string
}

// NewTableFormatter creates a new table formatter with default settings
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		MaxRows:        0,
		MaxWidth:       50,
		TruncateString: "...",
	}
}

// FormatRelation formats a Relation as a markdown table, rows sorted
// for stable output.
func (tf *TableFormatter) FormatRelation(rel *Relation) string {
	if rel == nil || rel.IsEmpty() {
		return "_Empty relation_"
	}
	return tf.formatTable(rel.Attributes(), rel.Sorted())
}

func (tf *TableFormatter) formatTable(attrs []Attribute, tuples []Tuple) string {
	if len(tuples) == 0 {
		return fmt.Sprintf("_Attributes: %v_\n\n_No rows_", attrs)
	}

	total := len(tuples)
	if tf.MaxRows > 0 && len(tuples) > tf.MaxRows {
		tuples = tuples[:tf.MaxRows]
	}

	tableString := &strings.Builder{}

	alignment := make([]tw.Align, len(attrs))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(tableString,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	headers := make([]string, len(attrs))
	for i, a := range attrs {
		headers[i] = string(a)
	}
	table.Header(headers)

	for _, tuple := range tuples {
		row := make([]string, len(tuple))
		for j, val := range tuple {
			row[j] = tf.formatValue(val)
		}
		table.Append(row)
	}

	table.Render()

	if len(tuples) < total {
		tableString.WriteString(fmt.Sprintf("\n_%d of %d rows_\n", len(tuples), total))
	} else {
		tableString.WriteString(fmt.Sprintf("\n_%d rows_\n", total))
	}

	return tableString.String()
}

// formatValue converts a value to a string representation
func (tf *TableFormatter) formatValue(val interface{}) string {
	if val == nil {
		return "nil"
	}

	s := fmt.Sprintf("%v", val)
	if tf.MaxWidth > 0 && len(s) > tf.MaxWidth {
		cut := tf.MaxWidth - len(tf.TruncateString)
		if cut < 1 {
			cut = 1
		}
		s = s[:cut] + tf.TruncateString
	}
	return s
}
