package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewShapes(t *testing.T) {
	tbl, err := Load(scenarioTable())
	require.NoError(t, err)

	points := MapPoints(tbl.FilterByYear(2020))
	assert.Equal(t, []MapPoint{
		{LocationCode: "AFG", Value: 14.1, Label: "Afghanistan"},
		{LocationCode: "ALB", Value: 9.9, Label: "Albania"},
	}, points)

	top, err := tbl.TopNByExpenditure(2020, DefaultTopN)
	require.NoError(t, err)
	assert.Equal(t, []BarPoint{{Label: "Afghanistan", Value: 14.1}, {Label: "Albania", Value: 9.9}}, BarPoints(top))

	assert.Equal(t, []TrendPoint{{Year: 2019, Value: 12.3}, {Year: 2020, Value: 14.1}},
		TrendPoints(tbl.FilterByCountry("Afghanistan")))

	assert.Empty(t, MapPoints(nil))

	b, err := json.Marshal(points[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"location_code":"AFG","value":14.1,"label":"Afghanistan"}`, string(b))
}

func TestTitles(t *testing.T) {
	assert.Equal(t, "Health Expenditure Per Capita in 2020", MapTitle(2020))
	assert.Equal(t, "Top 10 Countries by Health Expenditure in 2020", TopTitle(10, 2020))
	assert.Equal(t, "Health Expenditure Over Time - Chile", TrendTitle("Chile"))
}

func TestClampYear(t *testing.T) {
	assert.Equal(t, 2000, ClampYear(1990, 2000, 2021))
	assert.Equal(t, 2021, ClampYear(2030, 2000, 2021))
	assert.Equal(t, 2020, ClampYear(2020, 2000, 2021))
}
