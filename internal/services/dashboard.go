package services

import (
	"fmt"

	"healthdash/internal/core"
)

// Selection is the caller-held dashboard state. Every view is a pure
// function of the current table and one of its fields.
type Selection struct {
	Year    int    `json:"year"`
	Country string `json:"country"`
	TopN    int    `json:"top_n"`
}

type (
	MapView struct {
		Title  string          `json:"title"`
		Year   int             `json:"year"`
		Points []core.MapPoint `json:"points"`
	}

	TopView struct {
		Title  string          `json:"title"`
		Year   int             `json:"year"`
		N      int             `json:"n"`
		Points []core.BarPoint `json:"points"`
	}

	TrendView struct {
		Title   string            `json:"title"`
		Country string            `json:"country"`
		Points  []core.TrendPoint `json:"points"`
	}

	// YearsView feeds the year slider.
	YearsView struct {
		Min   int   `json:"min"`
		Max   int   `json:"max"`
		Years []int `json:"years"`
	}
)

// Dashboard turns table queries into view payloads.
type Dashboard struct {
	dataset     *DatasetService
	defaultYear int
	defaultTopN int
}

func NewDashboard(dataset *DatasetService, defaultYear, defaultTopN int) *Dashboard {
	if defaultTopN <= 0 {
		defaultTopN = core.DefaultTopN
	}
	return &Dashboard{dataset: dataset, defaultYear: defaultYear, defaultTopN: defaultTopN}
}

// DefaultTopN is the bar count used when the caller gives none.
func (d *Dashboard) DefaultTopN() int {
	return d.defaultTopN
}

// Resolve fills the zero fields of sel with defaults: the configured year
// clamped into the data range, the first country in sorted order and the
// configured top N.
func (d *Dashboard) Resolve(sel Selection) (Selection, error) {
	table, err := d.dataset.Current()
	if err != nil {
		return Selection{}, err
	}
	minYear, maxYear, err := table.YearRange()
	if err != nil {
		return Selection{}, err
	}
	if sel.Year == 0 {
		sel.Year = core.ClampYear(d.defaultYear, minYear, maxYear)
	}
	if sel.Country == "" {
		if names := table.CountryNames(); len(names) > 0 {
			sel.Country = names[0]
		}
	}
	if sel.TopN == 0 {
		sel.TopN = d.defaultTopN
	}
	return sel, nil
}

func (d *Dashboard) Years() (YearsView, error) {
	table, err := d.dataset.Current()
	if err != nil {
		return YearsView{}, err
	}
	minYear, maxYear, err := table.YearRange()
	if err != nil {
		return YearsView{}, err
	}
	return YearsView{Min: minYear, Max: maxYear, Years: table.Years()}, nil
}

func (d *Dashboard) Countries() ([]string, error) {
	table, err := d.dataset.Current()
	if err != nil {
		return nil, err
	}
	return table.CountryNames(), nil
}

func (d *Dashboard) Map(year int) (MapView, error) {
	table, err := d.dataset.Current()
	if err != nil {
		return MapView{}, err
	}
	return MapView{
		Title:  core.MapTitle(year),
		Year:   year,
		Points: core.MapPoints(table.FilterByYear(year)),
	}, nil
}

func (d *Dashboard) Top(year, n int) (TopView, error) {
	table, err := d.dataset.Current()
	if err != nil {
		return TopView{}, err
	}
	records, err := table.TopNByExpenditure(year, n)
	if err != nil {
		return TopView{}, err
	}
	return TopView{
		Title:  core.TopTitle(n, year),
		Year:   year,
		N:      n,
		Points: core.BarPoints(records),
	}, nil
}

// Trend returns the time series of one country. Unknown countries yield an
// empty series unless strict is set, in which case they are an
// ErrInvalidArgument.
func (d *Dashboard) Trend(country string, strict bool) (TrendView, error) {
	table, err := d.dataset.Current()
	if err != nil {
		return TrendView{}, err
	}
	if strict && !table.HasCountry(country) {
		return TrendView{}, fmt.Errorf("%w: unknown country %q", core.ErrInvalidArgument, country)
	}
	return TrendView{
		Title:   core.TrendTitle(country),
		Country: country,
		Points:  core.TrendPoints(table.FilterByCountry(country)),
	}, nil
}
