package ftl

import (
	"github.com/sarchlab/ftlsim/flash"
	"github.com/tidwall/btree"
)

const noPage = -1

// logBlock is an arena record. Records are never freed; an erased log
// block goes back to the idle pool under the same id.
type logBlock struct {
	phys      int
	cursor    int
	pages     []int // logical page offset -> physical page offset
	lastWrite uint64
	owner     int // data block, or -1
	retired   bool
}

func (lb *logBlock) full() bool {
	return lb.cursor == len(lb.pages)
}

func (lb *logBlock) reset() {
	lb.cursor = 0
	for i := range lb.pages {
		lb.pages[i] = noPage
	}
}

type idleEntry struct {
	eraseCount int
	phys       int
	id         int
}

func idleLess(a, b idleEntry) bool {
	if a.eraseCount != b.eraseCount {
		return a.eraseCount < b.eraseCount
	}

	return a.phys < b.phys
}

// tables hold every piece of mutable state of one translation layer. The
// services operate on a shared reference and never keep state of their own.
type tables struct {
	mapper      flash.Mapper
	ppb         int
	addressable uint64
	eraseLimit  int

	// The log region is [logStart, regionEnd). The block at regionEnd
	// starts as the cleaning scratch block.
	logStart  int
	regionEnd int
	nextCarve int
	scratch   int

	clock  uint64
	erases uint64

	relocated   map[int]int // data block -> physical block, when moved
	logs        []logBlock
	dataToLog   btree.Map[int, int]
	idle        *btree.BTreeG[idleEntry]
	retiredLogs int
	retired     btree.Set[int]

	// A block with an entry is in use.
	eraseCounts btree.Map[int, int]

	written btree.Set[uint64]
	garbage btree.Set[uint64]
}

func newTables(
	g flash.Geometry,
	eraseLimit int,
	overprovisioning int,
) *tables {
	ppb := g.PagesPerBlock
	addressable := g.Addressable(overprovisioning)
	logStart := int((addressable + uint64(ppb) - 1) / uint64(ppb))
	regionEnd := g.NumBlocks() - 1

	return &tables{
		mapper:      flash.NewMapper(g),
		ppb:         ppb,
		addressable: addressable,
		eraseLimit:  eraseLimit,
		logStart:    logStart,
		regionEnd:   regionEnd,
		nextCarve:   logStart,
		scratch:     regionEnd,
		relocated:   make(map[int]int),
		idle:        btree.NewBTreeG[idleEntry](idleLess),
	}
}

// dataPhys returns the physical block currently holding a data block.
func (t *tables) dataPhys(dataBlock int) int {
	if phys, ok := t.relocated[dataBlock]; ok {
		return phys
	}

	return dataBlock
}

func (t *tables) lba(dataBlock, page int) uint64 {
	return uint64(dataBlock)*uint64(t.ppb) + uint64(page)
}

// live reports whether an LBA holds readable data.
func (t *tables) live(lba uint64) bool {
	return t.written.Contains(lba) && !t.garbage.Contains(lba)
}

// livePages counts the readable LBAs of a data block.
func (t *tables) livePages(dataBlock int) int {
	n := 0

	for p := 0; p < t.ppb; p++ {
		lba := t.lba(dataBlock, p)
		if lba >= t.addressable {
			break
		}

		if t.live(lba) {
			n++
		}
	}

	return n
}

func (t *tables) boundLog(dataBlock int) (*logBlock, int, bool) {
	id, ok := t.dataToLog.Get(dataBlock)
	if !ok {
		return nil, -1, false
	}

	return &t.logs[id], id, true
}
