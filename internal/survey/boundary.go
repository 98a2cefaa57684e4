package survey

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Boundary clips a survey to a study region read from GeoJSON.
type Boundary struct {
	regions orb.MultiPolygon
}

// LoadBoundary reads every polygon of a GeoJSON feature collection
// into one boundary.
func LoadBoundary(path string) (*Boundary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading boundary %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing boundary %s: %w", path, err)
	}

	b := &Boundary{}
	for _, feat := range fc.Features {
		switch geom := feat.Geometry.(type) {
		case orb.Polygon:
			b.regions = append(b.regions, geom)
		case orb.MultiPolygon:
			b.regions = append(b.regions, geom...)
		}
	}
	if len(b.regions) == 0 {
		return nil, fmt.Errorf("boundary %s holds no polygons", path)
	}
	return b, nil
}

func (b *Boundary) Contains(lon, lat float64) bool {
	return planar.MultiPolygonContains(b.regions, orb.Point{lon, lat})
}

// Bound reports the geographic envelope of the boundary as
// minLon, minLat, maxLon, maxLat.
func (b *Boundary) Bound() (minLon, minLat, maxLon, maxLat float64) {
	box := b.regions.Bound()
	return box.Min[0], box.Min[1], box.Max[0], box.Max[1]
}

// Filter drops the points outside the boundary and reports how many
// were removed. A nil boundary keeps everything.
func (t *Table) Filter(b *Boundary) (*Table, int) {
	if b == nil {
		return t, 0
	}
	out := &Table{Source: t.Source}
	for _, p := range t.Points {
		if b.Contains(p.Lon, p.Lat) {
			out.Points = append(out.Points, p)
		}
	}
	return out, len(t.Points) - len(out.Points)
}
