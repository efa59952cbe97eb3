package hpo

// ProgressUpdate is emitted after every search round so callers can stream
// optimization state without blocking the search.
type ProgressUpdate struct {
	ExperimentID  string  `json:"experiment_id"`
	Round         int     `json:"round"`
	TrialsRun     int     `json:"trials_run"`
	IncumbentKey  string  `json:"incumbent_key"`
	IncumbentCost float64 `json:"incumbent_cost"`
	Converged     bool    `json:"converged"`
	Reason        string  `json:"reason,omitempty"`
}

// notifyProgress sends an update without blocking. Slow or absent consumers
// drop updates instead of stalling the search.
func (f *Facade) notifyProgress(u ProgressUpdate) {
	if f.progress == nil {
		return
	}
	select {
	case f.progress <- u:
	default:
	}
}

// Progress returns the channel on which round updates are published.
// The channel is closed when Optimize returns.
func (f *Facade) Progress() <-chan ProgressUpdate {
	return f.progress
}
