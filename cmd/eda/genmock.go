package main

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/accident-eda/internal/domain"
)

// mockColumns mirrors the public US accidents export, including columns the
// reports never read.
var mockColumns = []string{
	"ID", "Source", domain.ColSeverity, domain.ColStartTime, domain.ColEndTime,
	domain.ColStartLat, domain.ColStartLng, domain.ColDistance, "City", "State",
	domain.ColTemperature, domain.ColHumidity, domain.ColPressure, domain.ColVisibility,
	domain.ColWindSpeed, domain.ColPrecipitation, domain.ColWeather,
	domain.ColTrafficSignal, domain.ColSunriseSunset,
}

type mockCity struct {
	name, state string
	lat, lng    float64
	weight      int
}

var mockCities = []mockCity{
	{"Los Angeles", "CA", 34.0522, -118.2437, 18},
	{"Miami", "FL", 25.7617, -80.1918, 12},
	{"Houston", "TX", 29.7604, -95.3698, 10},
	{"Charlotte", "NC", 35.2271, -80.8431, 8},
	{"Sacramento", "CA", 38.5816, -121.4944, 6},
	{"Orlando", "FL", 28.5383, -81.3792, 6},
	{"Dallas", "TX", 32.7767, -96.7970, 6},
	{"Atlanta", "GA", 33.7490, -84.3880, 5},
	{"Minneapolis", "MN", 44.9778, -93.2650, 4},
	{"Columbus", "OH", 39.9612, -82.9988, 3},
	{"Denver", "CO", 39.7392, -104.9903, 3},
	{"Seattle", "WA", 47.6062, -122.3321, 3},
}

type weighted struct {
	value  string
	weight int
}

var mockWeather = []weighted{
	{"Fair", 33}, {"Clear", 10}, {"Mostly Cloudy", 13}, {"Cloudy", 11},
	{"Partly Cloudy", 9}, {"Overcast", 5}, {"Light Rain", 5}, {"Scattered Clouds", 3},
	{"Light Snow", 2}, {"Rain", 2}, {"Fog", 1}, {"Haze", 1}, {"Heavy Rain", 1},
	{"Fair / Windy", 1}, {"Light Drizzle", 1}, {"Thunderstorm", 1}, {"T-Storm", 1},
	{"Snow", 1},
}

var mockSeverity = []weighted{{"1", 2}, {"2", 80}, {"3", 15}, {"4", 3}}

var mockBase = time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)

func genmockCmd() *cobra.Command {
	var (
		rows int
		seed uint64
		out  string
	)
	cmd := &cobra.Command{
		Use:   "genmock",
		Short: "Write a deterministic synthetic accidents CSV",
		Long: `Generates a US-accidents-shaped CSV with realistic nulls and a few
unparseable Start_Time values. A ".gz" suffix writes gzip.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rows < 1 {
				return fmt.Errorf("--rows must be positive, got %d", rows)
			}
			if err := writeMock(out, mockRecords(rows, seed)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", rows, out)
			return nil
		},
	}
	cmd.Flags().IntVarP(&rows, "rows", "n", 1000, "number of records")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "random seed")
	cmd.Flags().StringVar(&out, "out", "accidents_mock.csv", "output path")
	return cmd
}

// mockRecords returns a header and rows records; equal seeds give equal
// output.
func mockRecords(rows int, seed uint64) [][]string {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	records := make([][]string, 0, rows+1)
	records = append(records, mockColumns)

	for i := range rows {
		city := pickCity(rng)
		lat := city.lat + rng.NormFloat64()*0.15
		lng := city.lng + rng.NormFloat64()*0.15
		start := mockBase.Add(time.Duration(rng.IntN(7*365*24*60))*time.Minute +
			time.Duration(rng.IntN(60))*time.Second)
		end := start.Add(time.Duration(15+rng.IntN(345)) * time.Minute)
		temp := 30 + rng.Float64()*65
		sunrise := "Day"
		if h := start.Hour(); h < 6 || h >= 19 {
			sunrise = "Night"
		}

		startText := start.Format(domain.StartTimeLayout)
		switch r := rng.IntN(100); {
		case r == 0:
			startText = fmt.Sprintf("%d-02-30 25:%02d:00", start.Year(), start.Minute())
		case r < 10:
			startText += ".000000000"
		}

		records = append(records, []string{
			"A-" + strconv.Itoa(i+1),
			pickString(rng, []weighted{{"Source1", 55}, {"Source2", 45}}),
			pickString(rng, mockSeverity),
			startText,
			end.Format(domain.StartTimeLayout),
			formatFloat(lat, 6),
			formatFloat(lng, 6),
			formatFloat(rng.ExpFloat64()*0.6, 3),
			city.name,
			city.state,
			nullable(rng, 1, formatFloat(temp, 1)),
			nullable(rng, 1, strconv.Itoa(15+rng.IntN(85))),
			nullable(rng, 1, formatFloat(28.5+rng.Float64()*1.8, 2)),
			nullable(rng, 1, pickString(rng, []weighted{{"10", 80}, {"7", 6}, {"5", 5}, {"2", 5}, {"0.5", 4}})),
			nullable(rng, 5, strconv.Itoa(rng.IntN(25))),
			nullable(rng, 35, pickString(rng, []weighted{{"0", 90}, {"0.01", 5}, {"0.05", 3}, {"0.3", 2}})),
			nullable(rng, 2, pickString(rng, mockWeather)),
			pickString(rng, []weighted{{"False", 85}, {"True", 15}}),
			nullable(rng, 1, sunrise),
		})
	}
	return records
}

// writeMock writes records through a string-typed frame so values are kept
// verbatim. Paths ending in ".gz" are gzip compressed.
func writeMock(path string, records [][]string) (err error) {
	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return fmt.Errorf("build mock frame: %w", df.Err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	if strings.HasSuffix(path, ".gz") {
		zw := gzip.NewWriter(f)
		defer func() {
			if cerr := zw.Close(); err == nil && cerr != nil {
				err = cerr
			}
		}()
		w = zw
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func pickCity(rng *rand.Rand) mockCity {
	total := 0
	for _, c := range mockCities {
		total += c.weight
	}
	n := rng.IntN(total)
	for _, c := range mockCities {
		if n < c.weight {
			return c
		}
		n -= c.weight
	}
	return mockCities[0]
}

func pickString(rng *rand.Rand, options []weighted) string {
	total := 0
	for _, o := range options {
		total += o.weight
	}
	n := rng.IntN(total)
	for _, o := range options {
		if n < o.weight {
			return o.value
		}
		n -= o.weight
	}
	return options[0].value
}

// nullable blanks value with the given percent probability.
func nullable(rng *rand.Rand, percent int, value string) string {
	if rng.IntN(100) < percent {
		return ""
	}
	return value
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
