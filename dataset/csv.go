package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/wbrown/hyperjoin/relation"
)

// WriteCSV writes a relation as CSV: a header row of attribute names,
// then one row per tuple in sorted order.
func WriteCSV(w io.Writer, r *relation.Relation) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(r.Attributes()))
	for i, a := range r.Attributes() {
		header[i] = string(a)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, t := range r.Sorted() {
		row := make([]string, len(t))
		for i, v := range t {
			row[i] = fmt.Sprintf("%v", v)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a relation from CSV. The first row names the
// attributes; values parse as int64, then float64, then bool, falling
// back to string.
func ReadCSV(rd io.Reader, name string) (*relation.Relation, error) {
	cr := csv.NewReader(rd)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header of %s: %v", relation.ErrMalformedQuery, name, err)
	}
	attrs := make([]relation.Attribute, len(header))
	for i, h := range header {
		attrs[i] = relation.Attribute(h)
	}

	var tuples []relation.Tuple
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading rows of %s: %v", relation.ErrMalformedQuery, name, err)
		}
		tuple := make(relation.Tuple, len(row))
		for i, field := range row {
			tuple[i] = parseValue(field)
		}
		tuples = append(tuples, tuple)
	}

	return relation.New(name, attrs, tuples)
}

// SaveFile writes a relation to a CSV file.
func SaveFile(path string, r *relation.Relation) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads a relation from a CSV file, naming it after the
// given name.
func LoadFile(path, name string) (*relation.Relation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f, name)
}

func parseValue(field string) interface{} {
	if n, err := strconv.ParseInt(field, 10, 64); err == nil {
		return n
	}
	if x, err := strconv.ParseFloat(field, 64); err == nil {
		return x
	}
	if b, err := strconv.ParseBool(field); err == nil {
		return b
	}
	return field
}
