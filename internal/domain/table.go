package domain

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// RawTable is the dataset as loaded, before projection and cleaning.
type RawTable struct {
	frame dataframe.DataFrame
}

// NewRawTable wraps a loaded frame. It fails with ErrDataLoad when the frame
// carries a load error or lacks any of CleanColumns.
func NewRawTable(df dataframe.DataFrame) (*RawTable, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataLoad, df.Err)
	}
	if missing := missingColumns(df.Names(), CleanColumns); len(missing) > 0 {
		return nil, fmt.Errorf("%w: required columns absent: %v", ErrDataLoad, missing)
	}
	return &RawTable{frame: df}, nil
}

// RawTableFromRecords builds a RawTable from CSV-style records whose first
// row is the header. A header without data rows gives an empty table.
func RawTableFromRecords(records [][]string) (*RawTable, error) {
	if len(records) == 1 {
		return NewRawTable(emptyFrame(records[0]))
	}
	return NewRawTable(dataframe.LoadRecords(records, FrameOptions()...))
}

// emptyFrame builds a zero-row frame with the pinned column types.
func emptyFrame(header []string) dataframe.DataFrame {
	cols := make([]series.Series, len(header))
	for i, name := range header {
		t, ok := columnTypes[name]
		if !ok {
			t = series.String
		}
		cols[i] = series.New([]string{}, t, name)
	}
	return dataframe.New(cols...)
}

// Len returns the number of rows.
func (t *RawTable) Len() int { return t.frame.Nrow() }

// Columns returns the header names.
func (t *RawTable) Columns() []string { return t.frame.Names() }

// Head renders the first n rows as a text table.
func (t *RawTable) Head(n int) string {
	return head(t.frame, n)
}

// Table is a cleaned, read-only accident table. Accessors return copies.
type Table struct {
	frame      dataframe.DataFrame
	startTimes []time.Time
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.frame.Nrow() }

// Columns returns the column names.
func (t *Table) Columns() []string { return t.frame.Names() }

// Head renders the first n rows as a text table.
func (t *Table) Head(n int) string {
	return head(t.frame, n)
}

// Records returns the table as string records, header first.
func (t *Table) Records() [][]string {
	return t.frame.Records()
}

// StartTimes returns the parsed Start_Time of every row.
func (t *Table) StartTimes() []time.Time {
	return slices.Clone(t.startTimes)
}

// Floats returns a numeric column with nulls as NaN.
func (t *Table) Floats(name string) ([]float64, error) {
	s, err := t.col(name)
	if err != nil {
		return nil, err
	}
	return s.Float(), nil
}

// Ints returns an integer column. ok[i] is false where the value is null.
func (t *Table) Ints(name string) (values []int, ok []bool, err error) {
	s, err := t.col(name)
	if err != nil {
		return nil, nil, err
	}
	floats := s.Float()
	values = make([]int, len(floats))
	ok = make([]bool, len(floats))
	for i, f := range floats {
		if math.IsNaN(f) {
			continue
		}
		values[i] = int(f)
		ok[i] = true
	}
	return values, ok, nil
}

// Strings returns a text column with nulls as "".
func (t *Table) Strings(name string) ([]string, error) {
	s, err := t.col(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, s.Len())
	for i := range out {
		el := s.Elem(i)
		if el.IsNA() {
			continue
		}
		out[i] = el.String()
	}
	return out, nil
}

func (t *Table) col(name string) (series.Series, error) {
	if !slices.Contains(t.frame.Names(), name) {
		return series.Series{}, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}
	return t.frame.Col(name), nil
}

func head(df dataframe.DataFrame, n int) string {
	n = min(n, df.Nrow())
	if n <= 0 {
		return fmt.Sprintf("[0x%d] DataFrame", df.Ncol())
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return df.Subset(idx).String()
}

func missingColumns(have, want []string) []string {
	var missing []string
	for _, name := range want {
		if !slices.Contains(have, name) {
			missing = append(missing, name)
		}
	}
	return missing
}
