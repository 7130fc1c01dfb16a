package dashboard

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_StaticFigures(t *testing.T) {
	d := Build(rand.New(rand.NewPCG(1, 2)), DefaultRange(time.Now()))

	require.Len(t, d.KPIs, 6)
	assert.Equal(t, KPI{Label: "Total Sales", Value: "£15,240", Delta: "+12% vs last month"}, d.KPIs[0])
	assert.Equal(t, KPI{Label: "Returning Rate", Value: "35%", Delta: "Slightly down"}, d.KPIs[5])

	assert.Equal(t, []string{"Electronics", "300", "£8,200"}, d.TopCategories.Rows[0])
	assert.Len(t, d.LowStock.Rows, 2)
	assert.Len(t, d.Shipments.Rows, 4)
	assert.Equal(t, []Bar{{"Segment A", 50}, {"Segment B", 30}, {"Segment C", 20}}, d.Segments.Bars)
	assert.Equal(t, []Fact{{"Average Delivery Time", "3.2 days"}, {"Return Rate", "2.1%"}}, d.Delivery)
	assert.Len(t, d.Alerts, 3)
	assert.Equal(t, ReportsBlurb, d.ReportsBlurb)
}

func TestBuild_RandomSeriesWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	for i := 0; i < 50; i++ {
		d := Build(rng, DefaultRange(time.Now()))
		checkSeries(t, d.SalesTrend, 100, 500)
		checkSeries(t, d.OrdersTrend, 20, 100)
		checkSeries(t, d.Frequency, 1, 5)
	}
}

func checkSeries(t *testing.T, s Series, lo, hi int) {
	t.Helper()
	require.Len(t, s.Points, 10, s.Title)
	for _, p := range s.Points {
		if p < lo || p >= hi {
			t.Fatalf("%s: %d outside [%d,%d)", s.Title, p, lo, hi)
		}
	}
}

func TestBuild_ReturnsIndependentCopies(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	a := Build(rng, DefaultRange(time.Now()))
	a.TopProducts.Rows[0][0] = "mutated"
	a.Alerts[0] = "mutated"
	a.KPIs[0].Value = "£0"

	b := Build(rng, DefaultRange(time.Now()))
	assert.Equal(t, "Product A", b.TopProducts.Rows[0][0])
	assert.Equal(t, "Product D stock is critically low.", b.Alerts[0])
	assert.Equal(t, "£15,240", b.KPIs[0].Value)
}

func TestParseRange(t *testing.T) {
	now := time.Date(2024, 5, 31, 15, 0, 0, 0, time.UTC)

	r, err := ParseRange("", "", now)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", r.StartString())
	assert.Equal(t, "2024-05-31", r.EndString())

	r, err = ParseRange("2024-01-01", "2024-02-01", now)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", r.StartString())
	assert.Equal(t, "2024-02-01", r.EndString())

	_, err = ParseRange("01/01/2024", "", now)
	assert.Error(t, err)
	_, err = ParseRange("", "tomorrow", now)
	assert.Error(t, err)
}

func TestBuild_EchoesRangeWithoutFiltering(t *testing.T) {
	now := time.Now()
	narrow, err := ParseRange("2020-01-01", "2020-01-02", now)
	require.NoError(t, err)
	a := Build(rand.New(rand.NewPCG(3, 3)), narrow)
	b := Build(rand.New(rand.NewPCG(3, 3)), DefaultRange(now))

	assert.Equal(t, narrow, a.Range)
	assert.Equal(t, a.KPIs, b.KPIs)
	assert.Equal(t, a.SalesTrend, b.SalesTrend)
}

func TestBuild_NilRNG(t *testing.T) {
	d := Build(nil, DefaultRange(time.Now()))
	require.Len(t, d.SalesTrend.Points, seriesLength)
	for _, p := range d.SalesTrend.Points {
		assert.GreaterOrEqual(t, p, 100)
		assert.Less(t, p, 500)
	}
	assert.NotNil(t, NewRNG())
}
