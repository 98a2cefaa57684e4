package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadASC parses an Esri ASCII grid. The format has no projection
// block, coordinates are taken as WGS84 degrees like the rest of the
// pipeline.
func ReadASC(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening ascii grid %s: %w", path, err)
	}
	defer f.Close()
	g, err := parseASC(f)
	if err != nil {
		return nil, fmt.Errorf("error parsing ascii grid %s: %w", path, err)
	}
	return g, nil
}

func parseASC(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	sc.Split(bufio.ScanWords)

	next := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}

	var (
		ncols, nrows       int
		xll, yll, cellsize float64
		centered           bool
		noData             = float64(DefaultNoData)
		hasCols, hasRows   bool
		hasX, hasY, hasCS  bool
		pending            string
	)

	for {
		tok, ok := next()
		if !ok {
			return nil, fmt.Errorf("header ended before any cell values")
		}
		key := strings.ToLower(tok)
		known := true
		switch key {
		case "ncols", "nrows", "xllcorner", "xllcenter", "yllcorner", "yllcenter", "cellsize", "nodata_value":
		default:
			known = false
		}
		if !known {
			pending = tok
			break
		}
		val, ok := next()
		if !ok {
			return nil, fmt.Errorf("header key %s has no value", tok)
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("header key %s: bad value %q", tok, val)
		}
		switch key {
		case "ncols":
			ncols, hasCols = int(f), true
		case "nrows":
			nrows, hasRows = int(f), true
		case "xllcorner":
			xll, hasX = f, true
		case "xllcenter":
			xll, hasX, centered = f, true, true
		case "yllcorner":
			yll, hasY = f, true
		case "yllcenter":
			yll, hasY, centered = f, true, true
		case "cellsize":
			cellsize, hasCS = f, true
		case "nodata_value":
			noData = f
		}
	}

	if !hasCols || !hasRows || !hasX || !hasY || !hasCS {
		return nil, fmt.Errorf("incomplete header (ncols/nrows/xll/yll/cellsize required)")
	}
	if ncols <= 0 || nrows <= 0 {
		return nil, fmt.Errorf("invalid grid size %dx%d", ncols, nrows)
	}
	if cellsize <= 0 {
		return nil, fmt.Errorf("invalid cellsize %v", cellsize)
	}
	if centered {
		xll -= cellsize / 2
		yll -= cellsize / 2
	}

	transform := [6]float64{
		xll, cellsize, 0,
		yll + float64(nrows)*cellsize, 0, -cellsize,
	}
	g := NewGrid(ncols, nrows, transform, noData)

	total := ncols * nrows
	parse := func(tok string, i int) error {
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return fmt.Errorf("cell %d: bad value %q", i, tok)
		}
		g.Cells[i] = f
		return nil
	}
	if err := parse(pending, 0); err != nil {
		return nil, err
	}
	for i := 1; i < total; i++ {
		tok, ok := next()
		if !ok {
			return nil, fmt.Errorf("expected %d cells, got %d", total, i)
		}
		if err := parse(tok, i); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

// WriteASC stores a grid as an Esri ASCII file. Only square, axis
// aligned cells can be represented in this format.
func WriteASC(path string, g *Grid) error {
	if g.Transform[2] != 0 || g.Transform[4] != 0 {
		return fmt.Errorf("rotated grids cannot be written as ascii")
	}
	dx, dy := g.CellSize()
	if diff := dx - dy; diff > alignTol || diff < -alignTol {
		return fmt.Errorf("non-square cells %vx%v cannot be written as ascii", dx, dy)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating ascii grid %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	yll := g.Transform[3] + g.Transform[5]*float64(g.Height)
	fmt.Fprintf(w, "ncols %d\n", g.Width)
	fmt.Fprintf(w, "nrows %d\n", g.Height)
	fmt.Fprintf(w, "xllcorner %s\n", formatCell(g.Transform[0]))
	fmt.Fprintf(w, "yllcorner %s\n", formatCell(yll))
	fmt.Fprintf(w, "cellsize %s\n", formatCell(dx))
	fmt.Fprintf(w, "NODATA_value %s\n", formatCell(g.NoData))
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			if col > 0 {
				w.WriteByte(' ')
			}
			v := g.At(col, row)
			if g.IsNoData(v) {
				v = g.NoData
			}
			w.WriteString(formatCell(v))
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("error writing ascii grid %s: %w", path, err)
	}
	return nil
}

func formatCell(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
