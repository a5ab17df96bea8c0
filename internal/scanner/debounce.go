package scanner

const (
	// DefaultThreshold is the number of identical consecutive reads needed before a decode is accepted.
	DefaultThreshold = 2
	// DefaultStride decodes every other frame.
	DefaultStride = 2
)

// Debouncer suppresses transient misreads by requiring Threshold identical reads in a row.
// An accepted text is not accepted again until a miss or a different read intervenes.
type Debouncer struct {
	Threshold int

	last     string
	count    int
	accepted bool
}

// Observe feeds one sampled read. ok is false when nothing was decoded from the frame.
func (d *Debouncer) Observe(text string, ok bool) (string, bool) {
	if !ok || text == "" {
		d.Reset()
		return "", false
	}
	if text == d.last {
		d.count++
	} else {
		d.last = text
		d.count = 1
		d.accepted = false
	}

	threshold := d.Threshold
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	if d.accepted || d.count < threshold {
		return "", false
	}
	d.accepted = true
	return text, true
}

// Reset forgets the current streak.
func (d *Debouncer) Reset() {
	d.last = ""
	d.count = 0
	d.accepted = false
}
