// Package charts builds bar and doughnut chart data from validation aggregates.
// The output matches the data structure expected by Chart.js.
package charts

import "github.com/hervehildenbrand/looking-glass/pkg/models"

// Series colours: valid, invalid, unknown.
var (
	backgroundColors = [3]string{"#86e49d", "#d893a3", "#ebc474"}
	borderColors     = [3]string{"#006b21", "#b30021", "#806c43"}
	seriesLabels     = [3]string{"Valid", "Invalid", "Unknown"}
)

// BarDataset is one series of the bar chart.
type BarDataset struct {
	Label           string `json:"label"`
	Data            []int  `json:"data"`
	BackgroundColor string `json:"backgroundColor"`
	BorderColor     string `json:"borderColor"`
	BorderRadius    int    `json:"borderRadius"`
}

// BarData is the complete bar chart input.
type BarData struct {
	Labels   []string     `json:"labels"`
	Datasets []BarDataset `json:"datasets"`
}

// DoughnutDataset is the single ring of the doughnut chart.
type DoughnutDataset struct {
	Label           string   `json:"label"`
	Data            []int    `json:"data"`
	BackgroundColor []string `json:"backgroundColor"`
	BorderColor     []string `json:"borderColor"`
	BorderWidth     int      `json:"borderWidth"`
}

// DoughnutData is the complete doughnut chart input.
type DoughnutData struct {
	Labels   []string          `json:"labels"`
	Datasets []DoughnutDataset `json:"datasets"`
}

// BuildBarData maps graph buckets to three parallel series (valid, invalid,
// unknown) for the given source. Bucket order becomes the x-axis order.
func BuildBarData(buckets []models.GraphBucket, source models.ValidationSource) BarData {
	labels := make([]string, len(buckets))
	series := [3][]int{
		make([]int, len(buckets)),
		make([]int, len(buckets)),
		make([]int, len(buckets)),
	}

	for i, b := range buckets {
		labels[i] = b.Label
		c := b.Counts(source)
		series[0][i] = c.Valid
		series[1][i] = c.Invalid
		series[2][i] = c.Unknown
	}

	datasets := make([]BarDataset, 3)
	for i := range datasets {
		datasets[i] = BarDataset{
			Label:           seriesLabels[i],
			Data:            series[i],
			BackgroundColor: backgroundColors[i],
			BorderColor:     borderColors[i],
			BorderRadius:    4,
		}
	}

	return BarData{Labels: labels, Datasets: datasets}
}

// BuildDoughnutData maps one summary bucket to a 3-slice distribution.
// A nil summary yields three zero slices.
func BuildDoughnutData(summary *models.SummaryBucket, source models.ValidationSource) DoughnutData {
	data := []int{0, 0, 0}
	if summary != nil {
		c := summary.Counts(source)
		data = []int{c.Valid, c.Invalid, c.Unknown}
	}

	return DoughnutData{
		Labels: append([]string(nil), seriesLabels[:]...),
		Datasets: []DoughnutDataset{{
			Label:           "Anzahl",
			Data:            data,
			BackgroundColor: append([]string(nil), backgroundColors[:]...),
			BorderColor:     append([]string(nil), borderColors[:]...),
			BorderWidth:     2,
		}},
	}
}
