package domain

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Source column names, as they appear in the CSV header.
const (
	ColSeverity      = "Severity"
	ColStartTime     = "Start_Time"
	ColEndTime       = "End_Time"
	ColStartLat      = "Start_Lat"
	ColStartLng      = "Start_Lng"
	ColWeather       = "Weather_Condition"
	ColVisibility    = "Visibility(mi)"
	ColWindSpeed     = "Wind_Speed(mph)"
	ColPrecipitation = "Precipitation(in)"
	ColTemperature   = "Temperature(F)"
	ColHumidity      = "Humidity(%)"
	ColPressure      = "Pressure(in)"
	ColTrafficSignal = "Traffic_Signal"
	ColSunriseSunset = "Sunrise_Sunset"
	ColDistance      = "Distance(mi)"
)

// Derived column names added by Clean.
const (
	ColHour    = "Hour"
	ColMonth   = "Month"
	ColWeekday = "Weekday"
)

// CleanColumns is the projection kept by Clean, in output order.
var CleanColumns = []string{
	ColSeverity, ColStartTime, ColEndTime, ColStartLat, ColStartLng, ColWeather,
	ColVisibility, ColWindSpeed, ColPrecipitation, ColTemperature,
	ColHumidity, ColPressure, ColTrafficSignal, ColSunriseSunset, ColDistance,
}

// RequiredColumns must be non-null for a row to survive cleaning.
var RequiredColumns = []string{
	ColSeverity, ColStartLat, ColStartLng, ColWeather,
	ColVisibility, ColTemperature, ColHumidity,
}

// NumericColumns feed the correlation matrix.
var NumericColumns = []string{
	ColSeverity, ColVisibility, ColWindSpeed, ColPrecipitation,
	ColTemperature, ColHumidity, ColPressure, ColDistance,
}

// NullTokens load as null regardless of column type.
var NullTokens = []string{"", "NA", "NaN", "<nil>"}

// columnTypes pins the series type of every analysed column so that a sparse
// or dirty sample cannot change how it is parsed.
var columnTypes = map[string]series.Type{
	ColSeverity:      series.Int,
	ColStartTime:     series.String,
	ColEndTime:       series.String,
	ColStartLat:      series.Float,
	ColStartLng:      series.Float,
	ColWeather:       series.String,
	ColVisibility:    series.Float,
	ColWindSpeed:     series.Float,
	ColPrecipitation: series.Float,
	ColTemperature:   series.Float,
	ColHumidity:      series.Float,
	ColPressure:      series.Float,
	ColTrafficSignal: series.Bool,
	ColSunriseSunset: series.String,
	ColDistance:      series.Float,
}

// FrameOptions returns the gota load options for accident CSVs: a header
// row, type detection for unknown columns, pinned types for analysed ones.
func FrameOptions() []dataframe.LoadOption {
	types := make(map[string]series.Type, len(columnTypes))
	for k, v := range columnTypes {
		types[k] = v
	}
	return []dataframe.LoadOption{
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(NullTokens),
		dataframe.WithTypes(types),
	}
}
