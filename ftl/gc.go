package ftl

import (
	"fmt"

	"github.com/sarchlab/ftlsim/flash"
	"go.uber.org/zap"
)

// MergeKind tells which reclamation shape a merge took.
type MergeKind int

// All the merge shapes.
const (
	// MergeOptimized copies only from the log block, which holds every live
	// page.
	MergeOptimized MergeKind = iota

	// MergeFull copies through the scratch block.
	MergeFull

	// MergeRelocate moves the data block onto a spare.
	MergeRelocate
)

func (k MergeKind) String() string {
	switch k {
	case MergeOptimized:
		return "optimized"
	case MergeFull:
		return "full"
	case MergeRelocate:
		return "relocate"
	default:
		return "unknown"
	}
}

// MergeEvent describes one completed reclamation. It is the hook item of
// HookPosMerge.
type MergeEvent struct {
	Result      Result
	Kind        MergeKind
	Forced      bool // picked by the reclamation policy
	DataBlock   int
	LogBlock    int
	From, To    int // physical data block before and after
	PagesCopied int
	Erases      int
	Dropped     int // trimmed pages reclaimed
}

// collector folds log blocks back into data blocks.
type collector struct {
	t      *tables
	wear   wearLeveler
	logs   logManager
	policy ReclamationPolicy
	logger *zap.Logger
}

// gather lists the pages of a data block that survive cleaning and the
// trimmed pages that cleaning drops. The pending page is about to be
// rewritten and is neither.
func (c *collector) gather(
	dataBlock int,
	lb *logBlock,
	pending int,
) (live []livePage, dropped []uint64, logHasAll bool) {
	phys := c.t.dataPhys(dataBlock)
	logHasAll = true

	for p := 0; p < c.t.ppb; p++ {
		lba := c.t.lba(dataBlock, p)
		if lba >= c.t.addressable {
			break
		}

		if p == pending || !c.t.written.Contains(lba) {
			continue
		}

		if c.t.garbage.Contains(lba) {
			dropped = append(dropped, lba)
			continue
		}

		lp := livePage{page: p, src: c.t.mapper.PageAddr(phys, p)}
		if lb.pages[p] != noPage {
			lp.src = c.t.mapper.PageAddr(lb.phys, lb.pages[p])
			lp.fromLog = true
		} else {
			logHasAll = false
		}

		live = append(live, lp)
	}

	return live, dropped, logHasAll
}

// merge cleans the log block bound to a data block. Every budget check runs
// before any table or flash change. An Exhausted event means nothing was
// touched and another pair may still be cleaned.
func (c *collector) merge(
	exec flash.Executor,
	dataBlock int,
	pending int,
) (MergeEvent, error) {
	lb, id, ok := c.t.boundLog(dataBlock)
	if !ok {
		panic(fmt.Sprintf("data block %d has no log block", dataBlock))
	}

	phys := c.t.dataPhys(dataBlock)
	live, dropped, logHasAll := c.gather(dataBlock, lb, pending)

	ev := MergeEvent{
		DataBlock: dataBlock,
		LogBlock:  lb.phys,
		From:      phys,
		To:        phys,
		Dropped:   len(dropped),
	}

	if err := c.precheck(&ev, live, logHasAll); err != nil {
		ev.Result = Exhausted
		c.logger.Warn("cleaning exhausted",
			zap.Int("data_block", dataBlock),
			zap.Int("log_block", lb.phys),
			zap.Error(err))

		return ev, err
	}

	if ev.Kind == MergeFull {
		c.swapScratch()
	}

	for _, lba := range dropped {
		c.t.written.Delete(lba)
		c.t.garbage.Delete(lba)
	}

	erasesBefore := c.t.erases

	var err error

	switch ev.Kind {
	case MergeRelocate:
		ev.To, err = c.wear.exchange(exec, dataBlock, live)
		ev.Result = Relocated
	case MergeOptimized:
		err = c.mergeFromLog(exec, phys, live)
		ev.Result = Merged
	case MergeFull:
		err = c.mergeThroughScratch(exec, phys, live)
		ev.Result = Merged
	}

	if err != nil {
		return ev, err
	}

	if err := c.wear.erase(exec, lb.phys); err != nil {
		return ev, err
	}

	ev.PagesCopied = len(live)
	if ev.Kind == MergeFull {
		ev.PagesCopied *= 2
	}

	ev.Erases = int(c.t.erases - erasesBefore)

	c.logs.release(id)

	c.logger.Debug("log block merged",
		zap.Int("data_block", dataBlock),
		zap.Int("log_block", ev.LogBlock),
		zap.Stringer("kind", ev.Kind),
		zap.Int("pages_copied", ev.PagesCopied),
		zap.Int("dropped", ev.Dropped))

	return ev, nil
}

// precheck decides the merge shape and makes sure every block the shape
// erases still has budget.
func (c *collector) precheck(
	ev *MergeEvent,
	live []livePage,
	logHasAll bool,
) error {
	if c.wear.atLimit(ev.LogBlock) {
		return fmt.Errorf("log block %d: %w", ev.LogBlock, ErrEraseLimitExceeded)
	}

	if c.wear.needsExchange(ev.From) {
		if _, ok := c.wear.findSpare(); ok {
			ev.Kind = MergeRelocate
			return nil
		}
	}

	if c.wear.atLimit(ev.From) {
		return fmt.Errorf("data block %d at block %d: %w",
			ev.DataBlock, ev.From, ErrEraseLimitExceeded)
	}

	if logHasAll {
		ev.Kind = MergeOptimized
		return nil
	}

	ev.Kind = MergeFull

	if c.wear.atLimit(c.t.scratch) {
		if _, ok := c.wear.findSpare(); !ok {
			return fmt.Errorf("scratch block %d: %w",
				c.t.scratch, ErrEraseLimitExceeded)
		}
	}

	return nil
}

// swapScratch replaces a worn-out scratch block with a spare. precheck has
// made sure the spare exists.
func (c *collector) swapScratch() {
	if !c.wear.atLimit(c.t.scratch) {
		return
	}

	spare, _ := c.wear.claimSpare()
	c.wear.retire(c.t.scratch)

	c.logger.Info("scratch block replaced",
		zap.Int("from", c.t.scratch),
		zap.Int("to", spare))

	c.t.scratch = spare
}

// mergeFromLog rebuilds the data block from the log alone.
func (c *collector) mergeFromLog(
	exec flash.Executor,
	phys int,
	live []livePage,
) error {
	if err := c.wear.erase(exec, phys); err != nil {
		return err
	}

	copyPages(exec, c.t.mapper, live, phys)

	return nil
}

// mergeThroughScratch evacuates the live pages into the scratch block, then
// copies them back into the erased data block.
func (c *collector) mergeThroughScratch(
	exec flash.Executor,
	phys int,
	live []livePage,
) error {
	scratch := c.t.scratch
	c.wear.touch(scratch)

	copyPages(exec, c.t.mapper, live, scratch)

	if err := c.wear.erase(exec, phys); err != nil {
		return err
	}

	back := make([]livePage, len(live))
	for i, p := range live {
		back[i] = livePage{page: p.page, src: c.t.mapper.PageAddr(scratch, p.page)}
	}

	copyPages(exec, c.t.mapper, back, phys)

	return c.wear.erase(exec, scratch)
}

// candidates lists every bound pair, sorted by data block id.
func (c *collector) candidates() []Candidate {
	var out []Candidate

	c.t.dataToLog.Scan(func(dataBlock, id int) bool {
		lb := &c.t.logs[id]
		out = append(out, Candidate{
			DataBlock:  dataBlock,
			LogBlock:   lb.phys,
			LivePages:  c.t.livePages(dataBlock),
			LastWrite:  lb.lastWrite,
			EraseCount: c.wear.eraseCount(c.t.dataPhys(dataBlock)),
		})

		return true
	})

	return out
}

// reclaim frees a log block by cleaning the victim the policy picks. A
// victim that cannot be cleaned within the erase budget is dropped and the
// policy is asked again, so exhaustion is reported only when no pair can be
// cleaned.
func (c *collector) reclaim(exec flash.Executor) (MergeEvent, error) {
	view := View{
		Candidates:    c.candidates(),
		Now:           c.t.clock,
		PagesPerBlock: c.t.ppb,
		RegionStart:   c.t.logStart,
		RegionEnd:     c.t.regionEnd,
	}

	var lastErr error

	for {
		victim, ok := c.policy.Victim(view)
		if !ok {
			return MergeEvent{Result: Exhausted}, c.noVictim(lastErr)
		}

		c.logger.Debug("victim selected",
			zap.String("policy", c.policy.Name()),
			zap.Int("data_block", victim.DataBlock),
			zap.Int("log_block", victim.LogBlock))

		ev, err := c.merge(exec, victim.DataBlock, noPage)
		ev.Forced = true

		if err == nil || ev.Result != Exhausted {
			return ev, err
		}

		lastErr = err
		view.Candidates = without(view.Candidates, victim.DataBlock)
	}
}

func (c *collector) noVictim(lastErr error) error {
	switch {
	case lastErr != nil:
		return fmt.Errorf("no pair can be cleaned: %w", lastErr)
	case c.t.retiredLogs > 0:
		return fmt.Errorf("%d log blocks retired: %w",
			c.t.retiredLogs, ErrEraseLimitExceeded)
	default:
		return ErrNoLogSpace
	}
}

func without(candidates []Candidate, dataBlock int) []Candidate {
	out := make([]Candidate, 0, len(candidates))

	for _, c := range candidates {
		if c.DataBlock != dataBlock {
			out = append(out, c)
		}
	}

	return out
}
