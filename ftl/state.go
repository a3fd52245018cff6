package ftl

// BlockState is the role a physical block currently plays.
type BlockState int

// All the block states.
const (
	BlockSpare BlockState = iota
	BlockData
	BlockLogBound
	BlockLogIdle
	BlockScratch
	BlockRetired
)

func (s BlockState) String() string {
	switch s {
	case BlockSpare:
		return "spare"
	case BlockData:
		return "data"
	case BlockLogBound:
		return "log-bound"
	case BlockLogIdle:
		return "log-idle"
	case BlockScratch:
		return "scratch"
	case BlockRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// EraseCount returns how many times a physical block has been erased.
func (f *FTL) EraseCount(block int) int {
	return f.wear.eraseCount(block)
}

// LogOf returns the physical log block bound to a data block.
func (f *FTL) LogOf(dataBlock int) (int, bool) {
	lb, _, ok := f.t.boundLog(dataBlock)
	if !ok {
		return -1, false
	}

	return lb.phys, true
}

// DataPhys returns the physical block holding a data block.
func (f *FTL) DataPhys(dataBlock int) int {
	return f.t.dataPhys(dataBlock)
}

// IsWritten tells whether an LBA is in the written set, trimmed or not.
func (f *FTL) IsWritten(lba uint64) bool {
	return f.t.written.Contains(lba)
}

// IsTrimmed tells whether an LBA is trimmed but not reclaimed yet.
func (f *FTL) IsTrimmed(lba uint64) bool {
	return f.t.garbage.Contains(lba)
}

// BlockState returns the role of a physical block.
func (f *FTL) BlockState(block int) BlockState {
	if f.t.retired.Contains(block) {
		return BlockRetired
	}

	if block == f.t.scratch {
		return BlockScratch
	}

	for i := range f.t.logs {
		lb := &f.t.logs[i]
		if lb.phys != block {
			continue
		}

		switch {
		case lb.retired:
			return BlockRetired
		case lb.owner >= 0:
			return BlockLogBound
		default:
			return BlockLogIdle
		}
	}

	if block < f.t.logStart {
		return BlockData
	}

	for _, phys := range f.t.relocated {
		if phys == block {
			return BlockData
		}
	}

	return BlockSpare
}

// Binding is a data block and the log block bound to it.
type Binding struct {
	DataBlock int `json:"data_block"`
	LogBlock  int `json:"log_block"`
	Used      int `json:"used"`
}

// Snapshot is a read-only picture of the translation tables.
type Snapshot struct {
	Name         string         `json:"name"`
	Policy       string         `json:"policy"`
	Clock        uint64         `json:"clock"`
	Addressable  uint64         `json:"addressable"`
	LogStart     int            `json:"log_start"`
	Scratch      int            `json:"scratch"`
	Written      int            `json:"written"`
	Trimmed      int            `json:"trimmed"`
	IdleLogs     int            `json:"idle_logs"`
	RetiredLogs  int            `json:"retired_logs"`
	Bindings     []Binding      `json:"bindings"`
	Relocations  map[int]int    `json:"relocations"`
	EraseCounts  map[int]int    `json:"erase_counts"`
	BlockStates  map[string]int `json:"block_states"`
	Stats        Stats          `json:"stats"`
	MaxEraseUsed int            `json:"max_erase_used"`
}

// Snapshot captures the current tables.
func (f *FTL) Snapshot() Snapshot {
	s := Snapshot{
		Name:        f.name,
		Policy:      f.gc.policy.Name(),
		Clock:       f.t.clock,
		Addressable: f.t.addressable,
		LogStart:    f.t.logStart,
		Scratch:     f.t.scratch,
		Written:     f.t.written.Len(),
		Trimmed:     f.t.garbage.Len(),
		IdleLogs:    f.t.idle.Len(),
		RetiredLogs: f.t.retiredLogs,
		Relocations: make(map[int]int, len(f.t.relocated)),
		EraseCounts: make(map[int]int),
		BlockStates: make(map[string]int),
		Stats:       f.Stats(),
	}

	f.t.dataToLog.Scan(func(d, id int) bool {
		lb := &f.t.logs[id]
		s.Bindings = append(s.Bindings,
			Binding{DataBlock: d, LogBlock: lb.phys, Used: lb.cursor})

		return true
	})

	for d, phys := range f.t.relocated {
		s.Relocations[d] = phys
	}

	f.t.eraseCounts.Scan(func(b, c int) bool {
		s.EraseCounts[b] = c
		if c > s.MaxEraseUsed {
			s.MaxEraseUsed = c
		}

		return true
	})

	for _, state := range f.BlockStates() {
		s.BlockStates[state.String()]++
	}

	return s
}

// BlockStates returns the role of every physical block, indexed by block id.
func (f *FTL) BlockStates() []BlockState {
	states := make([]BlockState, f.t.mapper.Geometry().NumBlocks())

	for b := range states {
		if b < f.t.logStart {
			states[b] = BlockData
		}
	}

	for _, phys := range f.t.relocated {
		states[phys] = BlockData
	}

	for i := range f.t.logs {
		lb := &f.t.logs[i]

		switch {
		case lb.retired:
			states[lb.phys] = BlockRetired
		case lb.owner >= 0:
			states[lb.phys] = BlockLogBound
		default:
			states[lb.phys] = BlockLogIdle
		}
	}

	states[f.t.scratch] = BlockScratch

	f.t.retired.Scan(func(b int) bool {
		states[b] = BlockRetired
		return true
	})

	return states
}
