package ftl

import (
	"fmt"

	"github.com/sarchlab/ftlsim/flash"
	"go.uber.org/zap"
)

// logManager binds log blocks to data blocks and allocates pages inside
// them.
type logManager struct {
	t      *tables
	wear   wearLeveler
	logger *zap.Logger
}

// read returns where the latest copy of a logical page lives.
func (m logManager) read(dataBlock, page int) flash.Address {
	if lb, _, ok := m.t.boundLog(dataBlock); ok && lb.pages[page] != noPage {
		return m.t.mapper.PageAddr(lb.phys, lb.pages[page])
	}

	return m.t.mapper.PageAddr(m.t.dataPhys(dataBlock), page)
}

// write appends a logical page to the log block of a data block, binding a
// log block first if needed.
func (m logManager) write(dataBlock, page int) (flash.Address, error) {
	lb, _, ok := m.t.boundLog(dataBlock)
	if !ok {
		id, acquired := m.acquire()
		if !acquired {
			return flash.Address{}, fmt.Errorf(
				"bind log to data block %d: %w", dataBlock, ErrNoLogSpace)
		}

		m.bind(id, dataBlock)
		lb = &m.t.logs[id]
	}

	if lb.full() {
		return flash.Address{}, fmt.Errorf(
			"log block %d of data block %d: %w",
			lb.phys, dataBlock, ErrLogFull)
	}

	lb.pages[page] = lb.cursor
	lb.cursor++
	lb.lastWrite = m.t.clock

	return m.t.mapper.PageAddr(lb.phys, lb.cursor-1), nil
}

// acquire picks the idle log block with the fewest erases, and carves a new
// one from the log region only when none is idle.
func (m logManager) acquire() (int, bool) {
	if e, ok := m.t.idle.PopMin(); ok {
		return e.id, true
	}

	return m.carve()
}

func (m logManager) carve() (int, bool) {
	for m.t.nextCarve < m.t.regionEnd {
		b := m.t.nextCarve
		m.t.nextCarve++

		if m.wear.inUse(b) {
			continue
		}

		m.wear.touch(b)

		pages := make([]int, m.t.ppb)
		lb := logBlock{phys: b, pages: pages, owner: -1}
		lb.reset()
		m.t.logs = append(m.t.logs, lb)

		m.logger.Debug("log block carved", zap.Int("block", b))

		return len(m.t.logs) - 1, true
	}

	return -1, false
}

func (m logManager) bind(id, dataBlock int) {
	m.t.logs[id].owner = dataBlock
	m.t.dataToLog.Set(dataBlock, id)
}

// release unbinds an erased log block. A log block that used up its erase
// budget moves onto a spare, or is retired when there is none.
func (m logManager) release(id int) {
	lb := &m.t.logs[id]

	m.t.dataToLog.Delete(lb.owner)
	lb.owner = -1
	lb.reset()

	if m.wear.atLimit(lb.phys) {
		m.wear.retire(lb.phys)

		spare, ok := m.wear.claimSpare()
		if !ok {
			lb.retired = true
			m.t.retiredLogs++

			return
		}

		m.logger.Debug("log block rehomed",
			zap.Int("from", lb.phys), zap.Int("to", spare))
		lb.phys = spare
	}

	m.t.idle.Set(idleEntry{
		eraseCount: m.wear.eraseCount(lb.phys),
		phys:       lb.phys,
		id:         id,
	})
}
