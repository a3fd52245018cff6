// Package flash describes the physical organization of a NAND flash device
// and the primitive operations that can be issued to it.
package flash

import (
	"errors"
	"fmt"
	"math"
)

// Geometry is the static shape of a device. Every field counts the units
// contained in the next bigger unit.
type Geometry struct {
	Packages       int // packages in the device
	DiesPerPackage int
	PlanesPerDie   int
	BlocksPerPlane int
	PagesPerBlock  int
}

// ErrInvalidGeometry is returned when a geometry cannot describe a device.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Validate checks that every dimension is positive and fits the address
// fields.
func (g Geometry) Validate() error {
	dims := []struct {
		name  string
		value int
		max   int
	}{
		{"packages", g.Packages, math.MaxUint8 + 1},
		{"dies per package", g.DiesPerPackage, math.MaxUint8 + 1},
		{"planes per die", g.PlanesPerDie, math.MaxUint16 + 1},
		{"blocks per plane", g.BlocksPerPlane, math.MaxUint16 + 1},
		{"pages per block", g.PagesPerBlock, math.MaxUint16 + 1},
	}

	for _, d := range dims {
		if d.value <= 0 || d.value > d.max {
			return fmt.Errorf("%w: %s must be in [1, %d], got %d",
				ErrInvalidGeometry, d.name, d.max, d.value)
		}
	}

	return nil
}

// PagesPerPlane returns the number of pages in a plane.
func (g Geometry) PagesPerPlane() uint64 {
	return uint64(g.BlocksPerPlane) * uint64(g.PagesPerBlock)
}

// PagesPerDie returns the number of pages in a die.
func (g Geometry) PagesPerDie() uint64 {
	return g.PagesPerPlane() * uint64(g.PlanesPerDie)
}

// PagesPerPackage returns the number of pages in a package.
func (g Geometry) PagesPerPackage() uint64 {
	return g.PagesPerDie() * uint64(g.DiesPerPackage)
}

// RawCapacity returns the number of pages in the device.
func (g Geometry) RawCapacity() uint64 {
	return g.PagesPerPackage() * uint64(g.Packages)
}

// NumBlocks returns the number of physical blocks in the device.
func (g Geometry) NumBlocks() int {
	return int(g.RawCapacity() / uint64(g.PagesPerBlock))
}

// Addressable returns the number of host-visible pages once overprovisioning
// percent of the raw capacity is held back.
func (g Geometry) Addressable(overprovisioning int) uint64 {
	raw := g.RawCapacity()
	return raw - raw*uint64(overprovisioning)/100
}
