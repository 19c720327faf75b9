package charts

// WindowSize is the number of buckets the bar chart shows at once.
const WindowSize = 12

// Spool directions
const (
	SpoolForward  = "forward"
	SpoolBackward = "backward"
	SpoolCurrent  = "current"
)

// Window tracks which slice of the graph buckets is visible.
type Window struct {
	offset int
	total  int
}

// Reset points the window at the start of a bucket list of length total.
func (w *Window) Reset(total int) {
	w.offset = 0
	w.total = total
}

// Spool moves the window. Unknown directions and moves past either end
// leave it in place. It reports whether the offset changed.
func (w *Window) Spool(direction string) bool {
	prev := w.offset
	switch direction {
	case SpoolForward:
		if w.offset < w.total-WindowSize {
			w.offset += WindowSize
		}
	case SpoolBackward:
		if w.offset > 0 {
			w.offset -= WindowSize
		}
	case SpoolCurrent:
		w.offset = 0
	}
	return w.offset != prev
}

// Offset returns the index of the first visible bucket.
func (w *Window) Offset() int { return w.offset }

// Bounds returns the visible [start, end) range.
func (w *Window) Bounds() (int, int) {
	start := w.offset
	if start > w.total {
		start = w.total
	}
	end := start + WindowSize
	if end > w.total {
		end = w.total
	}
	return start, end
}

// Spoolable reports whether there are more buckets than fit in one window.
func (w *Window) Spoolable() bool { return w.total > WindowSize }
