package ssd

import (
	"github.com/sarchlab/ftlsim/flash"
	"github.com/sarchlab/ftlsim/hooking"
)

// HookPosFlashOp marks a primitive operation carried out by the controller.
// The hook item is a FlashOp.
var HookPosFlashOp = &hooking.HookPos{Name: "Flash Op"}

// FlashOp is a primitive operation as the controller saw it.
type FlashOp struct {
	Op    flash.Op
	Addr  flash.Address
	Block int
	LBA   uint64 // logical owner of the page moved, if any
}

type bufferedPage struct {
	data []byte
	lba  uint64
}

// Controller executes primitive operations on the flash array. It keeps a
// FIFO page buffer: READ pushes, WRITE pops, and ERASE requires it empty.
type Controller struct {
	hooking.HookableBase

	name       string
	mapper     flash.Mapper
	pageSize   uint64
	eraseLimit int
	storage    *Storage

	dirty  []bool
	owner  []uint64
	erases []int
	buffer []bufferedPage

	reads, writes, eraseOps uint64
}

// NewController creates a controller for a device geometry.
func NewController(
	name string,
	g flash.Geometry,
	pageSize int,
	eraseLimit int,
) *Controller {
	mapper := flash.NewMapper(g)
	raw := g.RawCapacity()

	if pageSize <= 0 {
		panic("page size must be positive")
	}

	return &Controller{
		name:       name,
		mapper:     mapper,
		pageSize:   uint64(pageSize),
		eraseLimit: eraseLimit,
		storage:    NewStorage(raw*uint64(pageSize), uint64(pageSize)),
		dirty:      make([]bool, raw),
		owner:      make([]uint64, raw),
		erases:     make([]int, g.NumBlocks()),
	}
}

// Name returns the name of the controller.
func (c *Controller) Name() string {
	return c.name
}

// PageSize returns the number of bytes in a page.
func (c *Controller) PageSize() int {
	return int(c.pageSize)
}

// Buffered returns the number of pages waiting in the buffer.
func (c *Controller) Buffered() int {
	return len(c.buffer)
}

// EraseCount returns how many times the controller erased a block.
func (c *Controller) EraseCount(block int) int {
	return c.erases[block]
}

// IsDirty tells whether a page has been written since its last erase.
func (c *Controller) IsDirty(addr flash.Address) bool {
	return c.dirty[c.mapper.ToLinear(addr)]
}

// Execute carries out one primitive operation. It panics with a
// *ProtocolViolation when the operation breaks the flash rules.
func (c *Controller) Execute(op flash.Op, addr flash.Address) {
	lin := c.mapper.ToLinear(addr)
	if lin >= uint64(len(c.dirty)) {
		violate(op, addr, "address beyond the device")
	}

	ev := FlashOp{Op: op, Addr: addr, Block: c.mapper.BlockOf(lin)}

	switch op {
	case flash.OpRead:
		ev.LBA = c.read(addr, lin)
	case flash.OpWrite:
		ev.LBA = c.write(addr, lin)
	case flash.OpErase:
		c.erase(addr, ev.Block)
	default:
		violate(op, addr, "unknown operation")
	}

	if c.NumHooks() > 0 {
		c.InvokeHook(hooking.HookCtx{
			Domain: c,
			Pos:    HookPosFlashOp,
			Item:   ev,
		})
	}
}

func (c *Controller) read(addr flash.Address, lin uint64) uint64 {
	if !c.dirty[lin] {
		violate(flash.OpRead, addr, "page not written since erase")
	}

	data, err := c.storage.Read(lin*c.pageSize, c.pageSize)
	if err != nil {
		panic(err)
	}

	c.buffer = append(c.buffer, bufferedPage{data: data, lba: c.owner[lin]})
	c.reads++

	return c.owner[lin]
}

func (c *Controller) write(addr flash.Address, lin uint64) uint64 {
	if len(c.buffer) == 0 {
		violate(flash.OpWrite, addr, "page buffer empty")
	}

	if c.dirty[lin] {
		violate(flash.OpWrite, addr, "page written twice without erase")
	}

	page := c.buffer[0]
	c.buffer = c.buffer[1:]

	if err := c.storage.Write(lin*c.pageSize, page.data); err != nil {
		panic(err)
	}

	c.dirty[lin] = true
	c.owner[lin] = page.lba
	c.writes++

	return page.lba
}

func (c *Controller) erase(addr flash.Address, block int) {
	if len(c.buffer) > 0 {
		violate(flash.OpErase, addr, "%d pages still buffered", len(c.buffer))
	}

	if c.erases[block] >= c.eraseLimit {
		violate(flash.OpErase, addr, "block %d worn out", block)
	}

	ppb := uint64(c.mapper.Geometry().PagesPerBlock)
	first := uint64(block) * ppb
	clean := true

	for lin := first; lin < first+ppb; lin++ {
		if c.dirty[lin] {
			clean = false
			c.dirty[lin] = false
		}
	}

	if clean {
		violate(flash.OpErase, addr, "block %d already erased", block)
	}

	if err := c.storage.Clear(first*c.pageSize, ppb*c.pageSize); err != nil {
		panic(err)
	}

	c.erases[block]++
	c.eraseOps++
}

// hostWrite lands host data on a page handed out by the translation layer.
func (c *Controller) hostWrite(addr flash.Address, lba uint64, data []byte) {
	c.buffer = append(c.buffer, bufferedPage{data: data, lba: lba})
	c.Execute(flash.OpWrite, addr)
}

// hostRead returns the content of a page without going through the buffer.
func (c *Controller) hostRead(addr flash.Address) []byte {
	lin := c.mapper.ToLinear(addr)
	if !c.dirty[lin] {
		violate(flash.OpRead, addr, "host read of a page not written")
	}

	data, err := c.storage.Read(lin*c.pageSize, c.pageSize)
	if err != nil {
		panic(err)
	}

	return data
}

func (c *Controller) mustBeDrained(op flash.Op, addr flash.Address) {
	if len(c.buffer) > 0 {
		violate(op, addr, "%d pages left buffered by translation",
			len(c.buffer))
	}
}
