package ftl

import (
	"fmt"

	"github.com/sarchlab/ftlsim/flash"
	"go.uber.org/zap"
)

// wearLeveler owns the erase budget. Counts are consumed when an erase is
// granted, so checking and spending happen in one step.
type wearLeveler struct {
	t      *tables
	logger *zap.Logger
}

func (w wearLeveler) eraseCount(block int) int {
	c, _ := w.t.eraseCounts.Get(block)
	return c
}

func (w wearLeveler) inUse(block int) bool {
	_, ok := w.t.eraseCounts.Get(block)
	return ok
}

// touch marks a block as in use without spending an erase.
func (w wearLeveler) touch(block int) {
	if !w.inUse(block) {
		w.t.eraseCounts.Set(block, 0)
	}
}

func (w wearLeveler) atLimit(block int) bool {
	return w.eraseCount(block) >= w.t.eraseLimit
}

// needsExchange tells if a data block is worn enough that cleaning should
// move it onto a spare.
func (w wearLeveler) needsExchange(block int) bool {
	return w.eraseCount(block) >= w.t.eraseLimit-1
}

// canErase grants one erase of a block and counts it.
func (w wearLeveler) canErase(block int) bool {
	c := w.eraseCount(block)
	if c >= w.t.eraseLimit {
		return false
	}

	w.t.eraseCounts.Set(block, c+1)
	w.t.erases++

	return true
}

// erase spends one erase of a block and issues it.
func (w wearLeveler) erase(exec flash.Executor, block int) error {
	if !w.canErase(block) {
		return fmt.Errorf("erase block %d: %w", block, ErrEraseLimitExceeded)
	}

	exec.Execute(flash.OpErase, w.t.mapper.BlockAddr(block))

	return nil
}

// findSpare returns the highest never-used block that has not been carved
// for logging yet.
func (w wearLeveler) findSpare() (int, bool) {
	for b := w.t.regionEnd - 1; b >= w.t.nextCarve; b-- {
		if !w.inUse(b) {
			return b, true
		}
	}

	return -1, false
}

func (w wearLeveler) claimSpare() (int, bool) {
	b, ok := w.findSpare()
	if ok {
		w.touch(b)
	}

	return b, ok
}

// retire excludes a physical block from any further allocation.
func (w wearLeveler) retire(block int) {
	w.t.retired.Insert(block)
	w.logger.Info("block retired",
		zap.Int("block", block),
		zap.Int("erases", w.eraseCount(block)))
}

// exchange moves the live pages of a data block onto a fresh spare, erases
// the worn block when its budget allows, and points the data block at the
// spare. The caller checks that a spare exists.
func (w wearLeveler) exchange(
	exec flash.Executor,
	dataBlock int,
	live []livePage,
) (int, error) {
	old := w.t.dataPhys(dataBlock)

	spare, ok := w.claimSpare()
	if !ok {
		return -1, fmt.Errorf("exchange data block %d: %w",
			dataBlock, ErrEraseLimitExceeded)
	}

	copyPages(exec, w.t.mapper, live, spare)

	if w.canErase(old) {
		exec.Execute(flash.OpErase, w.t.mapper.BlockAddr(old))
	}

	w.t.relocated[dataBlock] = spare
	w.retire(old)

	return spare, nil
}

// livePage is a page that survives cleaning and where its latest copy is.
type livePage struct {
	page    int
	src     flash.Address
	fromLog bool
}

func copyPages(
	exec flash.Executor,
	mapper flash.Mapper,
	pages []livePage,
	dst int,
) {
	for _, p := range pages {
		exec.Execute(flash.OpRead, p.src)
		exec.Execute(flash.OpWrite, mapper.PageAddr(dst, p.page))
	}
}
