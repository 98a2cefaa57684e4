package raster

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/airbusgeo/godal"
)

var registerDrivers sync.Once

func register() {
	registerDrivers.Do(godal.RegisterInternalDrivers)
}

// ReadGeoTIFF loads one band of a GeoTIFF into memory. Band numbers
// are 1 based like in GDAL tooling.
func ReadGeoTIFF(path string, band int) (*Grid, error) {
	register()
	if band < 1 {
		band = 1
	}
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening raster %s: %w", path, err)
	}
	defer ds.Close()

	width := ds.Structure().SizeX
	height := ds.Structure().SizeY
	bands := ds.Bands()
	if band > len(bands) {
		return nil, fmt.Errorf("raster %s has %d bands, band %d requested", path, len(bands), band)
	}

	transform, err := ds.GeoTransform()
	if err != nil {
		return nil, fmt.Errorf("error reading geotransform of %s: %w", path, err)
	}

	b := bands[band-1]
	noData := float64(DefaultNoData)
	if nd, ok := b.NoData(); ok {
		noData = nd
	}

	g := NewGrid(width, height, transform, noData)
	if err := b.Read(0, 0, g.Cells, width, height); err != nil {
		return nil, fmt.Errorf("error reading band %d of %s: %w", band, path, err)
	}
	return g, nil
}

// WriteGeoTIFF stores a grid as a single band Float64 GeoTIFF in WGS84.
func WriteGeoTIFF(path string, g *Grid) error {
	register()
	ds, err := godal.Create(godal.GTiff, path, 1, godal.Float64, g.Width, g.Height)
	if err != nil {
		return fmt.Errorf("error creating raster %s: %w", path, err)
	}
	defer ds.Close()

	if err := ds.SetGeoTransform(g.Transform); err != nil {
		return fmt.Errorf("error setting geotransform on %s: %w", path, err)
	}
	sr, err := godal.NewSpatialRefFromEPSG(4326)
	if err != nil {
		return fmt.Errorf("error building WGS84 reference: %w", err)
	}
	defer sr.Close()
	if err := ds.SetSpatialRef(sr); err != nil {
		return fmt.Errorf("error setting spatial reference on %s: %w", path, err)
	}

	band := ds.Bands()[0]
	if err := band.SetNoData(g.NoData); err != nil {
		return fmt.Errorf("error setting nodata on %s: %w", path, err)
	}
	if err := band.Write(0, 0, g.Cells, g.Width, g.Height); err != nil {
		return fmt.Errorf("error writing band of %s: %w", path, err)
	}
	return nil
}

// Read dispatches on the file extension: .asc and .txt go through the
// ascii codec, everything else through GDAL.
func Read(path string, band int) (*Grid, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asc", ".txt":
		return ReadASC(path)
	default:
		return ReadGeoTIFF(path, band)
	}
}

// Write dispatches like Read.
func Write(path string, g *Grid) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asc", ".txt":
		return WriteASC(path, g)
	default:
		return WriteGeoTIFF(path, g)
	}
}
