package media

// Progress is a single progress report from a transfer engine.
type Progress struct {
	// Percent is in [0,100]. Engines never report 100 before the output is final.
	Percent float64
	Message string
	// Bytes is the number of payload bytes written so far in this run.
	Bytes int64
	// Total is the expected payload size, or 0 when unknown.
	Total int64
}

// ProgressFunc receives progress reports. Implementations must not block for
// long; engines call it inline between writes.
type ProgressFunc func(Progress)

// Report invokes fn when it is non-nil.
func (fn ProgressFunc) Report(p Progress) {
	if fn != nil {
		fn(p)
	}
}
