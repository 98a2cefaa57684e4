package frame

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// Row is one georeferenced observation together with the covariate
// values sampled under it.
type Row struct {
	ID       int
	Group    string
	Lon      float64
	Lat      float64
	Response float64
	Class    int
	Features []float64
}

// Frame is the table every modelling stage works on: rows of labelled
// observations over a shared, ordered set of feature columns.
type Frame struct {
	FeatureNames []string
	Rows         []Row
}

func New(featureNames []string) *Frame {
	return &Frame{FeatureNames: append([]string{}, featureNames...)}
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

func (f *Frame) Append(r Row) error {
	if len(r.Features) != len(f.FeatureNames) {
		return fmt.Errorf("row %d carries %d features, frame has %d columns", r.ID, len(r.Features), len(f.FeatureNames))
	}
	f.Rows = append(f.Rows, r)
	return nil
}

// Matrix copies the feature block into a row major matrix.
func (f *Frame) Matrix() [][]float64 {
	x := make([][]float64, len(f.Rows))
	for i, r := range f.Rows {
		x[i] = append([]float64{}, r.Features...)
	}
	return x
}

func (f *Frame) Labels() []int {
	y := make([]int, len(f.Rows))
	for i, r := range f.Rows {
		y[i] = r.Class
	}
	return y
}

func (f *Frame) FeatureIndex(name string) (int, bool) {
	for i, n := range f.FeatureNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Column copies one feature column.
func (f *Frame) Column(name string) ([]float64, error) {
	j, ok := f.FeatureIndex(name)
	if !ok {
		return nil, fmt.Errorf("feature %q not in frame", name)
	}
	col := make([]float64, len(f.Rows))
	for i, r := range f.Rows {
		col[i] = r.Features[j]
	}
	return col, nil
}

// Subset builds a new frame from the rows at the given positions.
func (f *Frame) Subset(idx []int) *Frame {
	out := New(f.FeatureNames)
	out.Rows = make([]Row, 0, len(idx))
	for _, i := range idx {
		out.Rows = append(out.Rows, f.Rows[i])
	}
	return out
}

// ClassBalance counts favourable and unfavourable rows.
func (f *Frame) ClassBalance() (pos, neg int) {
	for _, r := range f.Rows {
		if r.Class == 1 {
			pos++
		} else {
			neg++
		}
	}
	return pos, neg
}

// Groups lists the distinct group keys in first-seen order.
func (f *Frame) Groups() []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range f.Rows {
		if !seen[r.Group] {
			seen[r.Group] = true
			out = append(out, r.Group)
		}
	}
	return out
}

const fixedColumns = 6

// WriteCSV stores the frame with its feature columns after the six
// fixed ones, so studies with different covariate sets share a layout.
func (f *Frame) WriteCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating frame file %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := append([]string{"id", "group", "lon", "lat", "response", "class"}, f.FeatureNames...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("error writing frame header: %w", err)
	}
	rec := make([]string, len(header))
	for _, r := range f.Rows {
		rec[0] = strconv.Itoa(r.ID)
		rec[1] = r.Group
		rec[2] = formatFloat(r.Lon)
		rec[3] = formatFloat(r.Lat)
		rec[4] = formatFloat(r.Response)
		rec[5] = strconv.Itoa(r.Class)
		for j, v := range r.Features {
			rec[fixedColumns+j] = formatFloat(v)
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("error writing frame row %d: %w", r.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("error flushing frame file %s: %w", path, err)
	}
	return nil
}

// ReadCSV loads a frame written by WriteCSV.
func ReadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening frame file %s: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading frame file %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("frame file %s is empty", path)
	}
	header := records[0]
	if len(header) < fixedColumns {
		return nil, fmt.Errorf("frame file %s misses the fixed columns", path)
	}
	f := New(header[fixedColumns:])
	for i, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("frame file %s row %d has %d fields, want %d", path, i+1, len(rec), len(header))
		}
		row := Row{Group: rec[1]}
		if row.ID, err = strconv.Atoi(rec[0]); err != nil {
			return nil, fmt.Errorf("frame file %s row %d: bad id %q", path, i+1, rec[0])
		}
		if row.Lon, err = strconv.ParseFloat(rec[2], 64); err != nil {
			return nil, fmt.Errorf("frame file %s row %d: bad lon %q", path, i+1, rec[2])
		}
		if row.Lat, err = strconv.ParseFloat(rec[3], 64); err != nil {
			return nil, fmt.Errorf("frame file %s row %d: bad lat %q", path, i+1, rec[3])
		}
		if row.Response, err = strconv.ParseFloat(rec[4], 64); err != nil {
			return nil, fmt.Errorf("frame file %s row %d: bad response %q", path, i+1, rec[4])
		}
		if row.Class, err = strconv.Atoi(rec[5]); err != nil {
			return nil, fmt.Errorf("frame file %s row %d: bad class %q", path, i+1, rec[5])
		}
		row.Features = make([]float64, len(f.FeatureNames))
		for j := range f.FeatureNames {
			if row.Features[j], err = strconv.ParseFloat(rec[fixedColumns+j], 64); err != nil {
				return nil, fmt.Errorf("frame file %s row %d: bad %s %q", path, i+1, f.FeatureNames[j], rec[fixedColumns+j])
			}
		}
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
