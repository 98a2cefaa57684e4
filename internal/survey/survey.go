package survey

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kshedden/datareader"
	"gonum.org/v1/gonum/stat"
)

// Point is one surveyed field observation. Class is only meaningful
// when the survey carries an explicit class column.
type Point struct {
	ID       int
	Group    string
	Lon      float64
	Lat      float64
	Response float64
	Class    int
}

// Table holds the survey after reading, before it is turned into a
// model frame.
type Table struct {
	Source string
	Points []Point
}

// Columns names the survey table columns the pipeline needs. ID, Group
// and Class are optional: without an id column rows number themselves,
// without a group column every row is its own group, and Class is for
// surveys that ship with a 0/1 label already.
type Columns struct {
	Response  string
	Latitude  string
	Longitude string
	ID        string
	Group     string
	Class     string
}

// Read loads a survey from a Stata .dta file or a CSV file. Rows with
// a missing response or coordinate are dropped.
func Read(path string, cols Columns) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening survey %s: %w", path, err)
	}
	defer f.Close()

	var series []*datareader.Series
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dta":
		rdr, err := datareader.NewStataReader(f)
		if err != nil {
			return nil, fmt.Errorf("error reading stata file %s: %w", path, err)
		}
		series, err = rdr.Read(-1)
		if err != nil {
			return nil, fmt.Errorf("error reading stata rows of %s: %w", path, err)
		}
	case ".csv":
		rdr := datareader.NewCSVReader(f)
		series, err = rdr.Read(-1)
		if err != nil {
			return nil, fmt.Errorf("error reading csv rows of %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("survey %s: only .dta and .csv are supported", path)
	}

	byName := map[string]*datareader.Series{}
	for _, s := range series {
		byName[strings.ToLower(strings.TrimSpace(s.Name))] = s
	}

	resp, respMiss, err := floatColumn(byName, cols.Response)
	if err != nil {
		return nil, fmt.Errorf("survey %s: %w", path, err)
	}
	lat, latMiss, err := floatColumn(byName, cols.Latitude)
	if err != nil {
		return nil, fmt.Errorf("survey %s: %w", path, err)
	}
	lon, lonMiss, err := floatColumn(byName, cols.Longitude)
	if err != nil {
		return nil, fmt.Errorf("survey %s: %w", path, err)
	}

	var group []string
	var groupMiss []bool
	if cols.Group != "" {
		group, groupMiss, err = stringColumn(byName, cols.Group)
		if err != nil {
			return nil, fmt.Errorf("survey %s: %w", path, err)
		}
	}

	var class []float64
	var classMiss []bool
	if cols.Class != "" {
		class, classMiss, err = floatColumn(byName, cols.Class)
		if err != nil {
			return nil, fmt.Errorf("survey %s: %w", path, err)
		}
	}

	var ids []float64
	var idMiss []bool
	if cols.ID != "" {
		ids, idMiss, err = floatColumn(byName, cols.ID)
		if err != nil {
			return nil, fmt.Errorf("survey %s: %w", path, err)
		}
	}

	t := &Table{Source: path}
	for i := range resp {
		if missingAt(respMiss, i) || missingAt(latMiss, i) || missingAt(lonMiss, i) {
			continue
		}
		p := Point{ID: i + 1, Lon: lon[i], Lat: lat[i], Response: resp[i]}
		if ids != nil && !missingAt(idMiss, i) {
			p.ID = int(ids[i])
		}
		if class != nil {
			if missingAt(classMiss, i) {
				continue
			}
			switch class[i] {
			case 0, 1:
				p.Class = int(class[i])
			default:
				return nil, fmt.Errorf("survey %s: column %q holds %v at row %d, classes must be 0 or 1", path, cols.Class, class[i], i+1)
			}
		}
		if group != nil && !missingAt(groupMiss, i) {
			p.Group = strings.TrimSpace(group[i])
		}
		if p.Group == "" {
			p.Group = fmt.Sprintf("obs-%d", p.ID)
		}
		t.Points = append(t.Points, p)
	}
	if len(t.Points) == 0 {
		return nil, fmt.Errorf("survey %s has no usable rows", path)
	}
	return t, nil
}

func floatColumn(byName map[string]*datareader.Series, name string) ([]float64, []bool, error) {
	s, ok := byName[strings.ToLower(name)]
	if !ok {
		return nil, nil, fmt.Errorf("column %q not found", name)
	}
	vals, miss, err := s.UpcastNumeric().AsFloat64Slice()
	if err != nil {
		return nil, nil, fmt.Errorf("column %q is not numeric: %w", name, err)
	}
	return vals, miss, nil
}

func stringColumn(byName map[string]*datareader.Series, name string) ([]string, []bool, error) {
	s, ok := byName[strings.ToLower(name)]
	if !ok {
		return nil, nil, fmt.Errorf("column %q not found", name)
	}
	vals, miss, err := s.ToString().AsStringSlice()
	if err != nil {
		return nil, nil, fmt.Errorf("column %q cannot be read as text: %w", name, err)
	}
	return vals, miss, nil
}

func missingAt(miss []bool, i int) bool {
	return miss != nil && i < len(miss) && miss[i]
}

// Responses copies the response values of the table.
func (t *Table) Responses() []float64 {
	out := make([]float64, len(t.Points))
	for i, p := range t.Points {
		out[i] = p.Response
	}
	return out
}

// Cutoff returns the response value splitting favourable from
// unfavourable sites at the given quantile.
func Cutoff(responses []float64, quantile float64) float64 {
	sorted := append([]float64{}, responses...)
	sort.Float64s(sorted)
	return stat.Quantile(quantile, stat.Empirical, sorted, nil)
}

// Classes labels every point against a response cutoff, 1 for
// favourable sites.
func (t *Table) Classes(cutoff float64) []int {
	out := make([]int, len(t.Points))
	for i, p := range t.Points {
		if p.Response >= cutoff {
			out[i] = 1
		}
	}
	return out
}

// ExplicitClasses copies the labels the survey carried in its own
// class column.
func (t *Table) ExplicitClasses() []int {
	out := make([]int, len(t.Points))
	for i, p := range t.Points {
		out[i] = p.Class
	}
	return out
}
