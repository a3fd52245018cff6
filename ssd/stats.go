package ssd

// Stats counts what happened at the host and flash boundaries.
type Stats struct {
	WritesRequested uint64 `json:"writes_requested"`
	WritesDone      uint64 `json:"writes_done"`
	ReadsRequested  uint64 `json:"reads_requested"`
	ReadsDone       uint64 `json:"reads_done"`
	TrimsRequested  uint64 `json:"trims_requested"`
	TrimsDone       uint64 `json:"trims_done"`
	FlashReads      uint64 `json:"flash_reads"`
	FlashWrites     uint64 `json:"flash_writes"`
	FlashErases     uint64 `json:"flash_erases"`
}

// WriteAmplification is the number of flash writes per completed host
// write.
func (s Stats) WriteAmplification() float64 {
	if s.WritesDone == 0 {
		return 0
	}

	return float64(s.FlashWrites) / float64(s.WritesDone)
}

// Pair is a named counter value.
type Pair struct {
	Name  string
	Value float64
}

// Pairs lists the counters in report order, write amplification last.
func (s Stats) Pairs() []Pair {
	return []Pair{
		{"writes_requested", float64(s.WritesRequested)},
		{"writes_done", float64(s.WritesDone)},
		{"reads_requested", float64(s.ReadsRequested)},
		{"reads_done", float64(s.ReadsDone)},
		{"trims_requested", float64(s.TrimsRequested)},
		{"trims_done", float64(s.TrimsDone)},
		{"flash_reads", float64(s.FlashReads)},
		{"flash_writes", float64(s.FlashWrites)},
		{"flash_erases", float64(s.FlashErases)},
		{"write_amplification", s.WriteAmplification()},
	}
}
