package ftl

import (
	"fmt"

	"github.com/sarchlab/ftlsim/flash"
)

// fakeFlash is a page store that records every misuse instead of failing.
type fakeFlash struct {
	mapper     flash.Mapper
	pages      map[uint64]string
	buffer     []string
	erases     map[int]int
	ops        []flash.Op
	violations []string
}

func newFakeFlash(g flash.Geometry) *fakeFlash {
	return &fakeFlash{
		mapper: flash.NewMapper(g),
		pages:  make(map[uint64]string),
		erases: make(map[int]int),
	}
}

func (f *fakeFlash) violate(format string, args ...interface{}) {
	f.violations = append(f.violations, fmt.Sprintf(format, args...))
}

func (f *fakeFlash) Execute(op flash.Op, addr flash.Address) {
	f.ops = append(f.ops, op)
	lin := f.mapper.ToLinear(addr)

	switch op {
	case flash.OpRead:
		v, ok := f.pages[lin]
		if !ok {
			f.violate("read of clean page %s", addr)
		}

		f.buffer = append(f.buffer, v)
	case flash.OpWrite:
		if len(f.buffer) == 0 {
			f.violate("write to %s with empty buffer", addr)
			return
		}

		if _, dirty := f.pages[lin]; dirty {
			f.violate("double write to %s", addr)
		}

		f.pages[lin] = f.buffer[0]
		f.buffer = f.buffer[1:]
	case flash.OpErase:
		if len(f.buffer) > 0 {
			f.violate("erase of %s with %d buffered pages", addr, len(f.buffer))
		}

		block := f.mapper.BlockID(addr)
		ppb := f.mapper.Geometry().PagesPerBlock
		clean := true

		for p := 0; p < ppb; p++ {
			l := f.mapper.ToLinear(f.mapper.PageAddr(block, p))
			if _, dirty := f.pages[l]; dirty {
				clean = false
				delete(f.pages, l)
			}
		}

		if clean {
			f.violate("erase of clean block %d", block)
		}

		f.erases[block]++
	}
}

// host plays the part of the harness around a translation layer.
type host struct {
	ftl   *FTL
	flash *fakeFlash
}

func (h host) write(lba uint64, value string) error {
	addr, err := h.ftl.WriteTranslate(lba, h.flash)
	if err != nil {
		return err
	}

	h.flash.buffer = append(h.flash.buffer, value)
	h.flash.Execute(flash.OpWrite, addr)

	return nil
}

func (h host) read(lba uint64) (string, error) {
	addr, err := h.ftl.ReadTranslate(lba)
	if err != nil {
		return "", err
	}

	v, ok := h.flash.pages[h.flash.mapper.ToLinear(addr)]
	if !ok {
		return "", fmt.Errorf("lba %d maps to clean page %s", lba, addr)
	}

	return v, nil
}

func geometry(blocks, ppb int) flash.Geometry {
	return flash.Geometry{
		Packages:       1,
		DiesPerPackage: 1,
		PlanesPerDie:   1,
		BlocksPerPlane: blocks,
		PagesPerBlock:  ppb,
	}
}
