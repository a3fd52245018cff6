package flash

import "fmt"

// Address locates a single page on the device.
type Address struct {
	Package uint8
	Die     uint8
	Plane   uint16
	Block   uint16 // block index within the plane
	Page    uint16
}

func (a Address) String() string {
	return fmt.Sprintf("(%d, %d, %d, %d, %d)",
		a.Package, a.Die, a.Plane, a.Block, a.Page)
}

// Mapper converts between flat page numbers, block ids, and hierarchical
// addresses. A Mapper has no state besides its geometry.
type Mapper struct {
	geometry Geometry
}

// NewMapper creates a Mapper for a validated geometry.
func NewMapper(g Geometry) Mapper {
	if err := g.Validate(); err != nil {
		panic(err)
	}

	return Mapper{geometry: g}
}

// Geometry returns the geometry the mapper works on.
func (m Mapper) Geometry() Geometry {
	return m.geometry
}

// ToPhysical decomposes a flat page number into an address.
func (m Mapper) ToPhysical(lba uint64) Address {
	g := m.geometry
	ppb := uint64(g.PagesPerBlock)

	pkg := lba / g.PagesPerPackage()
	rem := lba % g.PagesPerPackage()
	die := rem / g.PagesPerDie()
	rem %= g.PagesPerDie()
	plane := rem / g.PagesPerPlane()
	rem %= g.PagesPerPlane()

	return Address{
		Package: uint8(pkg),
		Die:     uint8(die),
		Plane:   uint16(plane),
		Block:   uint16(rem / ppb),
		Page:    uint16(rem % ppb),
	}
}

// ToLinear is the inverse of ToPhysical.
func (m Mapper) ToLinear(addr Address) uint64 {
	g := m.geometry

	return uint64(addr.Page) +
		uint64(addr.Block)*uint64(g.PagesPerBlock) +
		uint64(addr.Plane)*g.PagesPerPlane() +
		uint64(addr.Die)*g.PagesPerDie() +
		uint64(addr.Package)*g.PagesPerPackage()
}

// BlockOf returns the flat block id that holds a flat page number.
func (m Mapper) BlockOf(lba uint64) int {
	return int(lba / uint64(m.geometry.PagesPerBlock))
}

// PageOf returns the offset of a flat page number within its block.
func (m Mapper) PageOf(lba uint64) int {
	return int(lba % uint64(m.geometry.PagesPerBlock))
}

// BlockID returns the flat block id of the block containing addr.
func (m Mapper) BlockID(addr Address) int {
	return m.BlockOf(m.ToLinear(addr))
}

// PageAddr returns the address of a page inside a flat block id.
func (m Mapper) PageAddr(block, page int) Address {
	return m.ToPhysical(uint64(block)*uint64(m.geometry.PagesPerBlock) +
		uint64(page))
}

// BlockAddr returns the address of the first page of a block.
func (m Mapper) BlockAddr(block int) Address {
	return m.PageAddr(block, 0)
}
