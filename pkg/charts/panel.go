package charts

import (
	"sync"

	"github.com/hervehildenbrand/looking-glass/pkg/models"
	"github.com/hervehildenbrand/looking-glass/pkg/selector"
)

// ValidationFilterName is the name of the validation-source selector.
const ValidationFilterName = "Validierung"

// Panel composes the validation-source selector with both charts.
type Panel struct {
	mu      sync.RWMutex
	source  models.ValidationSource
	buckets []models.GraphBucket
	summary *models.SummaryBucket
	window  Window

	sources *selector.Selector
}

// NewPanel creates a panel with ROA preselected.
func NewPanel() *Panel {
	p := &Panel{}
	items := make([]string, len(models.ValidationSources))
	for i, s := range models.ValidationSources {
		items[i] = string(s)
	}
	p.sources = selector.New(ValidationFilterName, items, p.setSource, selector.WithDefault(string(models.SourceROA)))
	return p
}

func (p *Panel) setSource(value string) {
	p.mu.Lock()
	p.source = models.ValidationSource(value)
	p.mu.Unlock()
}

// SelectSource switches the validation source shown by both charts.
func (p *Panel) SelectSource(source string) error {
	return p.sources.SelectValue(source)
}

// Source returns the selected validation source.
func (p *Panel) Source() models.ValidationSource {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.source
}

// SetData replaces the chart data and rewinds the bar window.
func (p *Panel) SetData(buckets []models.GraphBucket, summary *models.SummaryBucket) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buckets = buckets
	p.summary = summary
	p.window.Reset(len(buckets))
}

// Spool moves the bar window.
func (p *Panel) Spool(direction string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.window.Spool(direction)
}

// Offset returns the index of the first visible bucket.
func (p *Panel) Offset() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.window.Offset()
}

// Bucket returns the bucket at position index of the visible window.
func (p *Panel) Bucket(index int) (models.GraphBucket, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	start, end := p.window.Bounds()
	abs := start + index
	if index < 0 || abs >= end {
		return models.GraphBucket{}, false
	}
	return p.buckets[abs], true
}

// PanelView is the rendered state of the panel.
type PanelView struct {
	Source    models.ValidationSource `json:"validationSource"`
	Offset    int                     `json:"offset"`
	Spoolable bool                    `json:"spoolable"`
	Bar       BarData                 `json:"bar"`
	Doughnut  DoughnutData            `json:"doughnut"`
}

// View builds both charts for the visible window.
func (p *Panel) View() PanelView {
	p.mu.RLock()
	defer p.mu.RUnlock()
	start, end := p.window.Bounds()
	return PanelView{
		Source:    p.source,
		Offset:    p.window.Offset(),
		Spoolable: p.window.Spoolable(),
		Bar:       BuildBarData(p.buckets[start:end], p.source),
		Doughnut:  BuildDoughnutData(p.summary, p.source),
	}
}
