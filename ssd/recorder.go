package ssd

import (
	"github.com/sarchlab/ftlsim/datarecording"
	"github.com/sarchlab/ftlsim/ftl"
	"github.com/sarchlab/ftlsim/hooking"
)

// Tables written by a Recorder.
const (
	MergeTable = "merges"
	BlockTable = "blocks"
	StatsTable = "stats"
)

// MergeEntry is one row of the merges table.
type MergeEntry struct {
	Time        float64
	Result      string
	Kind        string
	Forced      bool
	DataBlock   int
	LogBlock    int
	From        int
	To          int
	PagesCopied int
	Erases      int
	Dropped     int
}

// BlockEntry is one row of the blocks table.
type BlockEntry struct {
	Block      int
	State      string
	EraseCount int
}

// StatsEntry is one row of the stats table.
type StatsEntry struct {
	Name  string
	Value float64
}

// Recorder is a hook that writes the cleaning history of a device into a
// database, and dumps the final wear of every block on Finish.
type Recorder struct {
	dev     *Device
	backend datarecording.DataRecorder
}

// NewRecorder creates the tables and hooks the recorder to the FTL of dev.
func NewRecorder(dev *Device, backend datarecording.DataRecorder) *Recorder {
	backend.CreateTable(MergeTable, MergeEntry{})
	backend.CreateTable(BlockTable, BlockEntry{})
	backend.CreateTable(StatsTable, StatsEntry{})

	r := &Recorder{dev: dev, backend: backend}
	dev.FTL().AcceptHook(r)

	return r
}

// Func records merges and failed reclamations.
func (r *Recorder) Func(ctx hooking.HookCtx) {
	ev, ok := ctx.Item.(ftl.MergeEvent)
	if !ok {
		return
	}

	result := ev.Result.String()
	if ctx.Pos == ftl.HookPosExhausted {
		result = ftl.Exhausted.String()
	}

	r.backend.InsertData(MergeTable, MergeEntry{
		Time:        r.dev.Now(),
		Result:      result,
		Kind:        ev.Kind.String(),
		Forced:      ev.Forced,
		DataBlock:   ev.DataBlock,
		LogBlock:    ev.LogBlock,
		From:        ev.From,
		To:          ev.To,
		PagesCopied: ev.PagesCopied,
		Erases:      ev.Erases,
		Dropped:     ev.Dropped,
	})
}

// Finish writes the block wear and the counters, then flushes.
func (r *Recorder) Finish() {
	f := r.dev.FTL()

	for b, s := range f.BlockStates() {
		r.backend.InsertData(BlockTable, BlockEntry{
			Block:      b,
			State:      s.String(),
			EraseCount: f.EraseCount(b),
		})
	}

	for _, kv := range r.dev.Stats().Pairs() {
		r.backend.InsertData(StatsTable, StatsEntry{Name: kv.Name, Value: kv.Value})
	}

	r.backend.Flush()
}
