package climate

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/gonum/stat"

	"github.com/jvasco323/TRM/internal/cache"
	"github.com/jvasco323/TRM/internal/raster"
	"github.com/jvasco323/TRM/internal/utils"
)

// Day holds the daily aggregates kept from the archive API.
type Day struct {
	Temperature   float64 `json:"temperature"`
	Precipitation float64 `json:"precipitation"`
	Humidity      float64 `json:"humidity"`
}

// History maps a calendar day to its weather.
type History map[time.Time]Day

// Season summarises one growing season at a point.
type Season struct {
	MeanTemperature   float64
	TemperatureSD     float64
	GrowingDegreeDays float64
	TotalRainfall     float64
	LongestDrySpell   int
	MeanHumidity      float64
}

type Point struct {
	Lat float64
	Lon float64
}

// Metrics lists the seasonal summaries that can join the covariate set,
// in reporting order.
var Metrics = []string{"tmean", "tsd", "gdd", "rain", "dryspell", "rhmean"}

const (
	gddBase   = 10.0
	dryDayMax = 1.0
)

var (
	archiveURL = "https://archive-api.open-meteo.com/v1/archive"
	retryDelay = 10 * time.Second
)

// FeatureName is the covariate column a climate metric lands in. The
// prefix keeps climate columns from shadowing raster covariates.
func FeatureName(metric string) string {
	return "clim_" + metric
}

// Value resolves one named metric of a season.
func (s Season) Value(metric string) (float64, error) {
	switch metric {
	case "tmean":
		return s.MeanTemperature, nil
	case "tsd":
		return s.TemperatureSD, nil
	case "gdd":
		return s.GrowingDegreeDays, nil
	case "rain":
		return s.TotalRainfall, nil
	case "dryspell":
		return float64(s.LongestDrySpell), nil
	case "rhmean":
		return s.MeanHumidity, nil
	}
	return 0, fmt.Errorf("unknown climate metric %q", metric)
}

type hourlyData struct {
	Time             []string  `json:"time"`
	RelativeHumidity []float64 `json:"relative_humidity_2m"`
}

type dailyData struct {
	Time          []string  `json:"time"`
	Temperature   []float64 `json:"temperature_2m_mean"`
	Precipitation []float64 `json:"precipitation_sum"`
}

type archiveResponse struct {
	Hourly hourlyData `json:"hourly"`
	Daily  dailyData  `json:"daily"`
}

func dailyMeanHumidity(hourly hourlyData) map[string]float64 {
	perDay := make(map[string][]float64)
	for i, t := range hourly.Time {
		if i >= len(hourly.RelativeHumidity) || len(t) < 10 {
			continue
		}
		date := t[:10]
		perDay[date] = append(perDay[date], hourly.RelativeHumidity[i])
	}

	mean := make(map[string]float64, len(perDay))
	for date, values := range perDay {
		var sum float64
		for _, h := range values {
			sum += h
		}
		mean[date] = sum / float64(len(values))
	}
	return mean
}

// Fetch retrieves the daily weather history of one point from the
// Open-Meteo archive, going through the file cache first. Archive data
// is immutable so cached entries never expire.
func Fetch(lat, lon float64, start, end time.Time, retries int) (History, error) {
	fc := cache.NewFileCache[History]("climate", 0)
	key := fc.GenerateKey(
		fmt.Sprintf("%.5f", lat), fmt.Sprintf("%.5f", lon),
		start.Format("2006-01-02"), end.Format("2006-01-02"),
	)
	if cached, ok := fc.Get(key); ok {
		return cached, nil
	}

	params := fmt.Sprintf("?latitude=%f&longitude=%f&start_date=%s&end_date=%s&daily=temperature_2m_mean,precipitation_sum&hourly=relative_humidity_2m",
		lat, lon, start.Format("2006-01-02"), end.Format("2006-01-02"))

	var attempt int
	for attempt < retries {
		resp, err := http.Get(archiveURL + params)
		if err != nil {
			fmt.Printf("Failed to retrieve climate data: %v. Retrying... (%d/%d)\n", err, attempt+1, retries)
			time.Sleep(retryDelay)
			attempt++
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			fmt.Printf("Failed to retrieve climate data: %d. Retrying... (%d/%d)\n", resp.StatusCode, attempt+1, retries)
			time.Sleep(retryDelay)
			attempt++
			continue
		}

		var payload archiveResponse
		err = json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse archive response: %v", err)
		}
		if len(payload.Daily.Temperature) < len(payload.Daily.Time) || len(payload.Daily.Precipitation) < len(payload.Daily.Time) {
			return nil, fmt.Errorf("archive response arrays misaligned")
		}

		humidity := dailyMeanHumidity(payload.Hourly)
		history := History{}
		for i, date := range payload.Daily.Time {
			day, err := time.Parse("2006-01-02", date)
			if err != nil {
				return nil, fmt.Errorf("failed to parse archive date: %v", err)
			}
			history[day] = Day{
				Temperature:   payload.Daily.Temperature[i],
				Precipitation: payload.Daily.Precipitation[i],
				Humidity:      humidity[date],
			}
		}

		fc.Set(key, history)
		return history, nil
	}

	return nil, fmt.Errorf("failed to retrieve climate data after %d attempts", retries)
}

// Seasonal reduces a daily history to the seasonal metrics.
func Seasonal(h History) Season {
	dates := utils.SortedDates(h)

	temps := make([]float64, 0, len(dates))
	hums := make([]float64, 0, len(dates))
	var season Season
	dry := 0
	for _, d := range dates {
		day := h[d]
		temps = append(temps, day.Temperature)
		hums = append(hums, day.Humidity)
		if day.Temperature > gddBase {
			season.GrowingDegreeDays += day.Temperature - gddBase
		}
		season.TotalRainfall += day.Precipitation
		if day.Precipitation < dryDayMax {
			dry++
			if dry > season.LongestDrySpell {
				season.LongestDrySpell = dry
			}
		} else {
			dry = 0
		}
	}

	if len(temps) > 0 {
		season.MeanTemperature = stat.Mean(temps, nil)
		season.MeanHumidity = stat.Mean(hums, nil)
	}
	if len(temps) > 1 {
		season.TemperatureSD = stat.StdDev(temps, nil)
	}
	return season
}

// Seasons fetches and summarises the season at every point, keeping
// point order. Fetches run on a bounded pool so a long survey does not
// hammer the archive API.
func Seasons(points []Point, start, end time.Time, retries int) ([]Season, error) {
	results := make([]Season, len(points))

	var (
		mu          sync.Mutex
		progressBar = progressbar.Default(int64(len(points)), "Fetching climate")
	)

	wp := workerpool.New(8)
	errChan := make(chan error, 1)
	var stopProcessing sync.Once

	for i, p := range points {
		i, p := i, p
		wp.Submit(func() {
			history, err := Fetch(p.Lat, p.Lon, start, end, retries)
			if err != nil {
				stopProcessing.Do(func() { errChan <- err })
				return
			}
			results[i] = Seasonal(history)

			mu.Lock()
			progressBar.Add(1)
			mu.Unlock()
		})
	}

	go func() {
		wp.StopWait()
		close(errChan)
	}()

	if err := <-errChan; err != nil {
		return nil, fmt.Errorf("error fetching climate data: %v", err)
	}
	return results, nil
}

// Grids rasterises seasonal metrics over the reference grid. Weather is
// sampled on a coarse lattice of step degrees and each cell takes the
// season of the lattice block it falls in, which keeps the archive
// calls far below one per cell.
func Grids(ref *raster.Grid, metrics []string, step float64, start, end time.Time, retries int) (map[string]*raster.Grid, error) {
	if step <= 0 {
		return nil, fmt.Errorf("lattice step %v must be positive", step)
	}
	for _, m := range metrics {
		if _, err := (Season{}).Value(m); err != nil {
			return nil, err
		}
	}

	minLon, minLat, maxLon, maxLat := ref.Bounds()
	nx := int(math.Ceil((maxLon - minLon) / step))
	ny := int(math.Ceil((maxLat - minLat) / step))
	if nx < 1 {
		nx = 1
	}
	if ny < 1 {
		ny = 1
	}

	nodes := make([]Point, 0, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			nodes = append(nodes, Point{
				Lat: minLat + (float64(j)+0.5)*step,
				Lon: minLon + (float64(i)+0.5)*step,
			})
		}
	}

	seasons, err := Seasons(nodes, start, end, retries)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*raster.Grid, len(metrics))
	for _, m := range metrics {
		out[m] = ref.Blank()
	}

	for row := 0; row < ref.Height; row++ {
		for col := 0; col < ref.Width; col++ {
			lon, lat := ref.CellCenter(col, row)
			i := latticeIndex(lon, minLon, step, nx)
			j := latticeIndex(lat, minLat, step, ny)
			season := seasons[j*nx+i]
			for _, m := range metrics {
				v, _ := season.Value(m)
				out[m].Set(col, row, v)
			}
		}
	}
	return out, nil
}

func latticeIndex(v, min, step float64, n int) int {
	i := int((v - min) / step)
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i
}
