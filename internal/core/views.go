package core

import "fmt"

// Shapes handed to the presentation layer.
type (
	// MapPoint colors one region of the choropleth.
	MapPoint struct {
		LocationCode string  `json:"location_code"`
		Value        float64 `json:"value"`
		Label        string  `json:"label"`
	}

	// BarPoint is one bar of the ranked chart.
	BarPoint struct {
		Label string  `json:"label"`
		Value float64 `json:"value"`
	}

	// TrendPoint is one point of a country's time series.
	TrendPoint struct {
		Year  int     `json:"year"`
		Value float64 `json:"value"`
	}
)

// DefaultTopN is the number of bars the ranked chart shows.
const DefaultTopN = 10

func MapPoints(records []ExpenditureRecord) []MapPoint {
	out := make([]MapPoint, 0, len(records))
	for _, r := range records {
		out = append(out, MapPoint{LocationCode: r.CountryCode, Value: r.ExpenditureUSD, Label: r.CountryName})
	}
	return out
}

func BarPoints(records []ExpenditureRecord) []BarPoint {
	out := make([]BarPoint, 0, len(records))
	for _, r := range records {
		out = append(out, BarPoint{Label: r.CountryName, Value: r.ExpenditureUSD})
	}
	return out
}

func TrendPoints(records []ExpenditureRecord) []TrendPoint {
	out := make([]TrendPoint, 0, len(records))
	for _, r := range records {
		out = append(out, TrendPoint{Year: r.Year, Value: r.ExpenditureUSD})
	}
	return out
}

func MapTitle(year int) string {
	return fmt.Sprintf("Health Expenditure Per Capita in %d", year)
}

func TopTitle(n, year int) string {
	return fmt.Sprintf("Top %d Countries by Health Expenditure in %d", n, year)
}

func TrendTitle(country string) string {
	return "Health Expenditure Over Time - " + country
}

// ClampYear returns year bounded to [minYear, maxYear].
func ClampYear(year, minYear, maxYear int) int {
	if year < minYear {
		return minYear
	}
	if year > maxYear {
		return maxYear
	}
	return year
}
