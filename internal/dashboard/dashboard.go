// Package dashboard assembles the e-commerce overview page. Figures are fixed
// sample data; the trend series are redrawn on every Build.
package dashboard

import (
	"fmt"
	"math/rand/v2"
	"time"
)

const (
	Title           = "E-commerce Dashboard Mockup"
	ReportsBlurb    = "Generate or schedule detailed reports combining Orders, Payments, Shipping, and Inventory data."
	ReportCreated   = "Report creation process (placeholder)."
	dateLayout      = "2006-01-02"
	defaultLookback = 30 * 24 * time.Hour
	seriesLength    = 10
)

type KPI struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Delta string `json:"delta"`
}

type Series struct {
	Title  string `json:"title"`
	Points []int  `json:"points"`
}

type Bar struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

type BarChart struct {
	Title string `json:"title"`
	Bars  []Bar  `json:"bars"`
}

type Table struct {
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

type Fact struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r DateRange) StartString() string { return r.Start.Format(dateLayout) }
func (r DateRange) EndString() string   { return r.End.Format(dateLayout) }

// DefaultRange is the last thirty days ending at now.
func DefaultRange(now time.Time) DateRange {
	return DateRange{Start: now.Add(-defaultLookback), End: now}
}

// ParseRange reads YYYY-MM-DD bounds; an empty bound keeps its default.
func ParseRange(start, end string, now time.Time) (DateRange, error) {
	r := DefaultRange(now)
	if start != "" {
		t, err := time.ParseInLocation(dateLayout, start, now.Location())
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid start date %q: %w", start, err)
		}
		r.Start = t
	}
	if end != "" {
		t, err := time.ParseInLocation(dateLayout, end, now.Location())
		if err != nil {
			return DateRange{}, fmt.Errorf("invalid end date %q: %w", end, err)
		}
		r.End = t
	}
	return r, nil
}

// Dashboard is everything the overview page shows. The date range is echoed
// back but does not filter anything.
type Dashboard struct {
	Title         string    `json:"title"`
	Range         DateRange `json:"range"`
	KPIs          []KPI     `json:"kpis"`
	SalesTrend    Series    `json:"sales_trend"`
	OrdersTrend   Series    `json:"orders_trend"`
	TopProducts   Table     `json:"top_products"`
	TopCategories Table     `json:"top_categories"`
	LowStock      Table     `json:"low_stock"`
	Suppliers     Table     `json:"suppliers"`
	Segments      BarChart  `json:"segments"`
	Frequency     Series    `json:"purchase_frequency"`
	Shipments     Table     `json:"shipments"`
	Delivery      []Fact    `json:"delivery"`
	Alerts        []string  `json:"alerts"`
	ReportsBlurb  string    `json:"reports_blurb"`
}

var kpis = []KPI{
	{Label: "Total Sales", Value: "£15,240", Delta: "+12% vs last month"},
	{Label: "Orders", Value: "342", Delta: "-5% vs last month"},
	{Label: "Avg Order Value", Value: "£44.56", Delta: "+3% vs last month"},
	{Label: "Top Category", Value: "Electronics", Delta: "£8,200 rev"},
	{Label: "New Customers", Value: "58", Delta: "+10% vs last month"},
	{Label: "Returning Rate", Value: "35%", Delta: "Slightly down"},
}

var (
	topProducts = Table{
		Title:   "Top Products",
		Columns: []string{"Product", "Units Sold", "Revenue"},
		Rows: [][]string{
			{"Product A", "120", "£2,400"},
			{"Product B", "90", "£1,800"},
			{"Product C", "75", "£1,500"},
		},
	}
	topCategories = Table{
		Title:   "Top Categories",
		Columns: []string{"Category", "Units Sold", "Revenue"},
		Rows: [][]string{
			{"Electronics", "300", "£8,200"},
			{"Home & Garden", "180", "£3,600"},
			{"Fashion", "150", "£2,700"},
		},
	}
	lowStock = Table{
		Title:   "Low Stock Items",
		Columns: []string{"Product", "Stock Level", "Reorder Threshold"},
		Rows: [][]string{
			{"Product A", "8", "10"},
			{"Product D", "4", "5"},
		},
	}
	suppliers = Table{
		Title:   "Supplier Performance",
		Columns: []string{"Supplier", "Avg Lead Time (days)", "On-Time Delivery Rate"},
		Rows: [][]string{
			{"Supplier X", "7", "95%"},
			{"Supplier Y", "10", "88%"},
		},
	}
	shipments = Table{
		Title:   "Shipment Status",
		Columns: []string{"Status", "Count"},
		Rows: [][]string{
			{"Pending", "20"},
			{"In Transit", "35"},
			{"Delivered", "280"},
			{"Returned", "7"},
		},
	}
	segments = BarChart{
		Title: "Customer Segmentation Chart (Placeholder)",
		Bars: []Bar{
			{Label: "Segment A", Value: 50},
			{Label: "Segment B", Value: 30},
			{Label: "Segment C", Value: 20},
		},
	}
	delivery = []Fact{
		{Label: "Average Delivery Time", Value: "3.2 days"},
		{Label: "Return Rate", Value: "2.1%"},
	}
	alerts = []string{
		"Product D stock is critically low.",
		"Supplier Y shipment delayed by 2 days.",
		"Return rate for Product C is unusually high.",
	}
)

// NewRNG returns a randomly seeded source for the placeholder series.
func NewRNG() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// Build returns a fresh Dashboard. Static sections are deep copies so callers
// may modify the result freely. A nil rng means NewRNG.
func Build(rng *rand.Rand, r DateRange) Dashboard {
	if rng == nil {
		rng = NewRNG()
	}
	return Dashboard{
		Title:         Title,
		Range:         r,
		KPIs:          append([]KPI(nil), kpis...),
		SalesTrend:    Series{Title: "Sales Trend Chart", Points: randomSeries(rng, 100, 500)},
		OrdersTrend:   Series{Title: "Orders Trend Chart", Points: randomSeries(rng, 20, 100)},
		TopProducts:   topProducts.clone(),
		TopCategories: topCategories.clone(),
		LowStock:      lowStock.clone(),
		Suppliers:     suppliers.clone(),
		Segments:      BarChart{Title: segments.Title, Bars: append([]Bar(nil), segments.Bars...)},
		Frequency:     Series{Title: "Lifetime Value / Purchase Frequency (Placeholder)", Points: randomSeries(rng, 1, 5)},
		Shipments:     shipments.clone(),
		Delivery:      append([]Fact(nil), delivery...),
		Alerts:        append([]string(nil), alerts...),
		ReportsBlurb:  ReportsBlurb,
	}
}

// randomSeries draws seriesLength integers from [lo, hi).
func randomSeries(rng *rand.Rand, lo, hi int) []int {
	out := make([]int, seriesLength)
	for i := range out {
		out[i] = lo + rng.IntN(hi-lo)
	}
	return out
}

func (t Table) clone() Table {
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]string(nil), r...)
	}
	return Table{Title: t.Title, Columns: append([]string(nil), t.Columns...), Rows: rows}
}
