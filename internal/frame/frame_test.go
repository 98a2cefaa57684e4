package frame_test

import (
	"path/filepath"
	"testing"

	"github.com/jvasco323/TRM/internal/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f := frame.New([]string{"bio1", "bio12", "ph"})
	rows := []frame.Row{
		{ID: 1, Group: "site-a", Lon: 34.1, Lat: 0.5, Response: 4.2, Class: 1, Features: []float64{21.5, 1100, 5.6}},
		{ID: 2, Group: "site-a", Lon: 34.2, Lat: 0.6, Response: 1.1, Class: 0, Features: []float64{22.0, 900, 6.1}},
		{ID: 3, Group: "site-b", Lon: 34.3, Lat: 0.7, Response: 3.9, Class: 1, Features: []float64{20.8, 1250, 5.2}},
	}
	for _, r := range rows {
		require.NoError(t, f.Append(r))
	}
	return f
}

func TestAppendChecksWidth(t *testing.T) {
	f := frame.New([]string{"a", "b"})
	err := f.Append(frame.Row{ID: 1, Features: []float64{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 columns")
}

func TestMatrixAndLabels(t *testing.T) {
	f := buildFrame(t)
	x := f.Matrix()
	require.Len(t, x, 3)
	assert.Equal(t, []float64{21.5, 1100, 5.6}, x[0])
	assert.Equal(t, []int{1, 0, 1}, f.Labels())

	x[0][0] = -1
	assert.Equal(t, 21.5, f.Rows[0].Features[0], "matrix must be a copy")
}

func TestColumnAndBalance(t *testing.T) {
	f := buildFrame(t)
	col, err := f.Column("bio12")
	require.NoError(t, err)
	assert.Equal(t, []float64{1100, 900, 1250}, col)

	_, err = f.Column("absent")
	assert.Error(t, err)

	pos, neg := f.ClassBalance()
	assert.Equal(t, 2, pos)
	assert.Equal(t, 1, neg)

	assert.Equal(t, []string{"site-a", "site-b"}, f.Groups())
}

func TestSubset(t *testing.T) {
	f := buildFrame(t)
	sub := f.Subset([]int{2, 0})
	require.Equal(t, 2, sub.Len())
	assert.Equal(t, 3, sub.Rows[0].ID)
	assert.Equal(t, 1, sub.Rows[1].ID)
	assert.Equal(t, f.FeatureNames, sub.FeatureNames)
}

func TestCSVRoundTrip(t *testing.T) {
	f := buildFrame(t)
	path := filepath.Join(t.TempDir(), "frame.csv")
	require.NoError(t, f.WriteCSV(path))

	got, err := frame.ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, f.FeatureNames, got.FeatureNames)
	require.Equal(t, f.Len(), got.Len())
	for i := range f.Rows {
		assert.Equal(t, f.Rows[i], got.Rows[i])
	}
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := frame.ReadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
