package raster

import (
	"fmt"
)

// Source names one raster layer on disk.
type Source struct {
	Name string
	Path string
	Band int
}

// Stack is an ordered set of grids sharing one cell lattice. The
// covariates of a study are loaded into a stack so every cell can be
// read as a feature vector.
type Stack struct {
	Names []string
	Grids []*Grid
}

func NewStack() *Stack {
	return &Stack{}
}

// LoadStack reads every source and verifies it aligns with the first.
func LoadStack(sources []Source) (*Stack, error) {
	s := NewStack()
	for _, src := range sources {
		g, err := Read(src.Path, src.Band)
		if err != nil {
			return nil, fmt.Errorf("error loading layer %s: %w", src.Name, err)
		}
		if err := s.Append(src.Name, g); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Stack) Append(name string, g *Grid) error {
	if len(s.Grids) > 0 {
		if err := s.Grids[0].AlignWith(g); err != nil {
			return fmt.Errorf("layer %s does not align with %s: %w", name, s.Names[0], err)
		}
	}
	s.Names = append(s.Names, name)
	s.Grids = append(s.Grids, g)
	return nil
}

func (s *Stack) Len() int {
	return len(s.Grids)
}

// Ref is the grid whose georeferencing the whole stack shares.
func (s *Stack) Ref() *Grid {
	if len(s.Grids) == 0 {
		return nil
	}
	return s.Grids[0]
}

// CellVector reads one feature vector. The second return is false when
// any layer is nodata at that cell, such cells are not predictable.
func (s *Stack) CellVector(col, row int) ([]float64, bool) {
	vec := make([]float64, len(s.Grids))
	for i, g := range s.Grids {
		v := g.At(col, row)
		if g.IsNoData(v) {
			return nil, false
		}
		vec[i] = v
	}
	return vec, true
}

// ValuesAt samples every layer at a geographic coordinate.
func (s *Stack) ValuesAt(lon, lat float64) ([]float64, bool) {
	ref := s.Ref()
	if ref == nil {
		return nil, false
	}
	col, row, ok := ref.Locate(lon, lat)
	if !ok {
		return nil, false
	}
	return s.CellVector(col, row)
}

// Layer returns a grid by name.
func (s *Stack) Layer(name string) (*Grid, bool) {
	for i, n := range s.Names {
		if n == name {
			return s.Grids[i], true
		}
	}
	return nil, false
}
