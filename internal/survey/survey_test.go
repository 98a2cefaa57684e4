package survey_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jvasco323/TRM/internal/survey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const surveyCSV = `site,yield,lat,lon,notes
A,4.2,0.5,34.1,ok
A,1.1,0.6,34.2,ok
B,3.9,0.7,34.3,ok
B,,0.8,34.4,missing yield
C,2.5,,34.5,missing lat
C,5.0,0.9,36.5,outside
`

const squareBoundary = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"name": "study region"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[34.0, 0.0], [35.0, 0.0], [35.0, 1.0], [34.0, 1.0], [34.0, 0.0]]]
      }
    }
  ]
}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadCSVDropsIncompleteRows(t *testing.T) {
	table, err := survey.Read(writeFile(t, "survey.csv", surveyCSV), survey.Columns{
		Response:  "yield",
		Latitude:  "lat",
		Longitude: "lon",
		Group:     "site",
	})
	require.NoError(t, err)
	require.Len(t, table.Points, 4, "rows with missing response or coordinate are dropped")

	assert.Equal(t, "A", table.Points[0].Group)
	assert.Equal(t, 4.2, table.Points[0].Response)
	assert.Equal(t, 34.1, table.Points[0].Lon)
	assert.Equal(t, 0.5, table.Points[0].Lat)
	assert.Equal(t, "C", table.Points[3].Group)
}

func TestReadWithoutGroupColumn(t *testing.T) {
	table, err := survey.Read(writeFile(t, "survey.csv", surveyCSV), survey.Columns{
		Response:  "yield",
		Latitude:  "lat",
		Longitude: "lon",
	})
	require.NoError(t, err)
	for _, p := range table.Points {
		assert.NotEmpty(t, p.Group, "each point falls back to a singleton group")
	}
	assert.NotEqual(t, table.Points[0].Group, table.Points[1].Group)
}

func TestReadUnknownColumn(t *testing.T) {
	_, err := survey.Read(writeFile(t, "survey.csv", surveyCSV), survey.Columns{
		Response:  "production",
		Latitude:  "lat",
		Longitude: "lon",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "production")
}

func TestReadRejectsUnknownFormat(t *testing.T) {
	_, err := survey.Read(writeFile(t, "survey.xlsx", "nope"), survey.Columns{
		Response: "a", Latitude: "b", Longitude: "c",
	})
	assert.Error(t, err)
}

func TestBoundaryFilter(t *testing.T) {
	table, err := survey.Read(writeFile(t, "survey.csv", surveyCSV), survey.Columns{
		Response:  "yield",
		Latitude:  "lat",
		Longitude: "lon",
		Group:     "site",
	})
	require.NoError(t, err)

	boundary, err := survey.LoadBoundary(writeFile(t, "region.geojson", squareBoundary))
	require.NoError(t, err)

	assert.True(t, boundary.Contains(34.5, 0.5))
	assert.False(t, boundary.Contains(36.0, 0.5))

	filtered, dropped := table.Filter(boundary)
	assert.Equal(t, 1, dropped, "the point at lon 36.5 leaves the region")
	assert.Len(t, filtered.Points, 3)

	same, dropped := table.Filter(nil)
	assert.Equal(t, 0, dropped)
	assert.Len(t, same.Points, 4)
}

func TestBoundaryBound(t *testing.T) {
	boundary, err := survey.LoadBoundary(writeFile(t, "region.geojson", squareBoundary))
	require.NoError(t, err)

	minLon, minLat, maxLon, maxLat := boundary.Bound()
	assert.Equal(t, 34.0, minLon)
	assert.Equal(t, 0.0, minLat)
	assert.Equal(t, 35.0, maxLon)
	assert.Equal(t, 1.0, maxLat)
}

func TestCutoffAndClasses(t *testing.T) {
	table := &survey.Table{Points: []survey.Point{
		{ID: 1, Response: 1},
		{ID: 2, Response: 2},
		{ID: 3, Response: 3},
		{ID: 4, Response: 4},
	}}

	cutoff := survey.Cutoff(table.Responses(), 0.5)
	assert.Equal(t, 2.0, cutoff)
	assert.Equal(t, []int{0, 1, 1, 1}, table.Classes(cutoff))

	high := survey.Cutoff(table.Responses(), 0.75)
	assert.Equal(t, 3.0, high)
	assert.Equal(t, []int{0, 0, 1, 1}, table.Classes(high))
}

func TestReadExplicitClassColumn(t *testing.T) {
	labelled := `plot,yield,lat,lon,good
P1,4.2,0.5,34.1,1
P2,1.1,0.6,34.2,0
P3,3.9,0.7,34.3,1
P4,2.8,0.8,34.4,
P5,2.5,0.9,34.5,0
`
	table, err := survey.Read(writeFile(t, "survey.csv", labelled), survey.Columns{
		Response:  "yield",
		Latitude:  "lat",
		Longitude: "lon",
		Class:     "good",
	})
	require.NoError(t, err)
	require.Len(t, table.Points, 4, "the row without a class is dropped")
	assert.Equal(t, []int{1, 0, 1, 0}, table.ExplicitClasses())
}

func TestReadExplicitIDColumn(t *testing.T) {
	withID := `plot_id,yield,lat,lon
101,4.2,0.5,34.1
205,1.1,0.6,34.2
`
	table, err := survey.Read(writeFile(t, "survey.csv", withID), survey.Columns{
		Response:  "yield",
		Latitude:  "lat",
		Longitude: "lon",
		ID:        "plot_id",
	})
	require.NoError(t, err)
	require.Len(t, table.Points, 2)
	assert.Equal(t, 101, table.Points[0].ID)
	assert.Equal(t, 205, table.Points[1].ID)
}

func TestReadRejectsNonBinaryClass(t *testing.T) {
	bad := "yield,lat,lon,good\n4.2,0.5,34.1,2\n"
	_, err := survey.Read(writeFile(t, "survey.csv", bad), survey.Columns{
		Response:  "yield",
		Latitude:  "lat",
		Longitude: "lon",
		Class:     "good",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be 0 or 1")
}

func TestLoadBoundaryRejectsEmpty(t *testing.T) {
	empty := `{"type": "FeatureCollection", "features": []}`
	_, err := survey.LoadBoundary(writeFile(t, "empty.geojson", empty))
	assert.Error(t, err)
}
