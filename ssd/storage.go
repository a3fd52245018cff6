package ssd

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a storage access crosses the capacity.
var ErrOutOfRange = errors.New("access beyond storage capacity")

// A Storage keeps the bytes of the flash pages.
//
// The storage manages its space in units. Units that are never written take
// no memory, and erasing a range releases the units it covers.
type Storage struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage with the given capacity and unit size, both
// in bytes.
func NewStorage(capacity, unitSize uint64) *Storage {
	if unitSize == 0 {
		panic("unit size must be positive")
	}

	return &Storage{
		unitSize: unitSize,
		capacity: capacity,
		data:     make(map[uint64][]byte),
	}
}

// Capacity returns the capacity in bytes.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

// AllocatedUnits returns the number of units holding data.
func (s *Storage) AllocatedUnits() int {
	return len(s.data)
}

func (s *Storage) checkRange(addr, n uint64) error {
	if addr+n > s.capacity || addr+n < addr {
		return fmt.Errorf("[%d, %d) of %d bytes: %w",
			addr, addr+n, s.capacity, ErrOutOfRange)
	}

	return nil
}

func (s *Storage) split(addr uint64) (base, offset uint64) {
	offset = addr % s.unitSize
	return addr - offset, offset
}

// Read returns n bytes starting at addr. Bytes never written read as zero.
func (s *Storage) Read(addr, n uint64) ([]byte, error) {
	if err := s.checkRange(addr, n); err != nil {
		return nil, err
	}

	res := make([]byte, n)

	for done := uint64(0); done < n; {
		base, offset := s.split(addr + done)
		chunk := min(n-done, s.unitSize-offset)

		if unit, ok := s.data[base]; ok {
			copy(res[done:done+chunk], unit[offset:offset+chunk])
		}

		done += chunk
	}

	return res, nil
}

// Write stores data starting at addr.
func (s *Storage) Write(addr uint64, data []byte) error {
	n := uint64(len(data))
	if err := s.checkRange(addr, n); err != nil {
		return err
	}

	for done := uint64(0); done < n; {
		base, offset := s.split(addr + done)
		chunk := min(n-done, s.unitSize-offset)

		unit, ok := s.data[base]
		if !ok {
			unit = make([]byte, s.unitSize)
			s.data[base] = unit
		}

		copy(unit[offset:offset+chunk], data[done:done+chunk])
		done += chunk
	}

	return nil
}

// Clear zeroes n bytes starting at addr. Units fully covered are released.
func (s *Storage) Clear(addr, n uint64) error {
	if err := s.checkRange(addr, n); err != nil {
		return err
	}

	for done := uint64(0); done < n; {
		base, offset := s.split(addr + done)
		chunk := min(n-done, s.unitSize-offset)

		if unit, ok := s.data[base]; ok {
			if chunk == s.unitSize {
				delete(s.data, base)
			} else {
				clear(unit[offset : offset+chunk])
			}
		}

		done += chunk
	}

	return nil
}
