package utils_test

import (
	"testing"
	"time"

	"github.com/jvasco323/TRM/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestSortedDates(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2020, 5, d, 0, 0, 0, 0, time.UTC) }
	m := map[time.Time]int{day(3): 1, day(1): 2, day(2): 3}

	assert.Equal(t, []time.Time{day(1), day(2), day(3)}, utils.SortedDates(m))
}

func TestSortedDatesEmpty(t *testing.T) {
	assert.Empty(t, utils.SortedDates(map[time.Time]string{}))
}
