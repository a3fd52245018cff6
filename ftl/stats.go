package ftl

// Stats counts the cleaning work a translation layer has done.
type Stats struct {
	Merges          uint64
	OptimizedMerges uint64
	FullMerges      uint64
	Relocations     uint64
	ForcedMerges    uint64
	PagesCopied     uint64
	PagesDropped    uint64
	Erases          uint64
	Exhaustions     uint64
}

func (s *Stats) count(ev MergeEvent) {
	s.Merges++
	s.PagesCopied += uint64(ev.PagesCopied)
	s.PagesDropped += uint64(ev.Dropped)

	switch ev.Kind {
	case MergeOptimized:
		s.OptimizedMerges++
	case MergeFull:
		s.FullMerges++
	case MergeRelocate:
		s.Relocations++
	}

	if ev.Forced {
		s.ForcedMerges++
	}
}

// Stats returns the cleaning counters.
func (f *FTL) Stats() Stats {
	s := f.stats
	s.Erases = f.t.erases

	return s
}
