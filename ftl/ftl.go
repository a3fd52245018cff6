// Package ftl implements a hybrid log-block flash translation layer.
//
// Every data block of the host-visible space may borrow one log block from
// the over-provisioned region to absorb overwrites. A full log block is
// merged back into its data block, and when no log block is left a
// reclamation policy chooses a pair to clean. Erase budgets are enforced per
// physical block, and worn data and log blocks migrate onto spare blocks.
package ftl

import (
	"fmt"

	"github.com/sarchlab/ftlsim/flash"
	"github.com/sarchlab/ftlsim/hooking"
	"go.uber.org/zap"
)

// HookPosMerge marks a completed cleaning pass. The hook item is a
// MergeEvent.
var HookPosMerge = &hooking.HookPos{Name: "FTL Merge"}

// HookPosExhausted marks a cleaning pass that failed. The hook item is a
// MergeEvent and the detail is the error.
var HookPosExhausted = &hooking.HookPos{Name: "FTL Exhausted"}

// FTL translates host LBAs to flash addresses. It is not safe for concurrent
// use; one request is resolved completely before the next one starts.
type FTL struct {
	hooking.HookableBase

	name   string
	t      *tables
	wear   wearLeveler
	logs   logManager
	gc     *collector
	stats  Stats
	logger *zap.Logger
}

// Name returns the name of the translation layer.
func (f *FTL) Name() string {
	return f.name
}

// Geometry returns the geometry of the device.
func (f *FTL) Geometry() flash.Geometry {
	return f.t.mapper.Geometry()
}

// Addressable returns the number of host-visible LBAs.
func (f *FTL) Addressable() uint64 {
	return f.t.addressable
}

// EraseLimit returns the erase budget of each block.
func (f *FTL) EraseLimit() int {
	return f.t.eraseLimit
}

// Policy returns the reclamation policy in use.
func (f *FTL) Policy() ReclamationPolicy {
	return f.gc.policy
}

// Now returns the logical clock, which ticks once per host write.
func (f *FTL) Now() uint64 {
	return f.t.clock
}

func (f *FTL) checkRange(lba uint64) error {
	if lba >= f.t.addressable {
		return fmt.Errorf("lba %d beyond %d: %w",
			lba, f.t.addressable, ErrInvalidLBA)
	}

	return nil
}

// ReadTranslate returns the address holding the latest copy of an LBA.
func (f *FTL) ReadTranslate(lba uint64) (flash.Address, error) {
	if err := f.checkRange(lba); err != nil {
		return flash.Address{}, err
	}

	if !f.t.live(lba) {
		return flash.Address{}, fmt.Errorf("read lba %d: %w", lba, ErrNotWritten)
	}

	d, p := f.t.mapper.BlockOf(lba), f.t.mapper.PageOf(lba)

	return f.logs.read(d, p), nil
}

// WriteTranslate returns the address the host data of an LBA should be
// written to. Cleaning needed to make room is issued through exec before
// WriteTranslate returns, and the returned page is always erased.
func (f *FTL) WriteTranslate(
	lba uint64,
	exec flash.Executor,
) (flash.Address, error) {
	if err := f.checkRange(lba); err != nil {
		return flash.Address{}, err
	}

	f.t.clock++
	d, p := f.t.mapper.BlockOf(lba), f.t.mapper.PageOf(lba)

	if !f.t.written.Contains(lba) {
		phys := f.t.dataPhys(d)
		f.wear.touch(phys)
		f.t.written.Insert(lba)

		return f.t.mapper.PageAddr(phys, p), nil
	}

	for {
		addr, err := f.logs.write(d, p)
		if err == nil {
			f.t.garbage.Delete(lba)
			return addr, nil
		}

		if isLogFull(err) {
			return f.writeAfterMerge(exec, lba, d, p)
		}

		if err := f.reclaim(exec); err != nil {
			return flash.Address{}, fmt.Errorf("write lba %d: %w", lba, err)
		}
	}
}

func (f *FTL) writeAfterMerge(
	exec flash.Executor,
	lba uint64,
	d, p int,
) (flash.Address, error) {
	ev, err := f.gc.merge(exec, d, p)
	f.record(ev, err)

	if err != nil {
		return flash.Address{}, fmt.Errorf("write lba %d: %w", lba, err)
	}

	f.t.garbage.Delete(lba)

	return f.t.mapper.PageAddr(f.t.dataPhys(d), p), nil
}

func (f *FTL) reclaim(exec flash.Executor) error {
	ev, err := f.gc.reclaim(exec)
	f.record(ev, err)

	return err
}

// Trim marks an LBA as holding no data. The page is reclaimed the next time
// its data block is cleaned. Trimming an unwritten LBA does nothing.
func (f *FTL) Trim(lba uint64) error {
	if err := f.checkRange(lba); err != nil {
		return err
	}

	if f.t.written.Contains(lba) {
		f.t.garbage.Insert(lba)
	}

	return nil
}

func (f *FTL) record(ev MergeEvent, err error) {
	if err != nil {
		f.stats.Exhaustions++

		if f.NumHooks() > 0 {
			f.InvokeHook(hooking.HookCtx{
				Domain: f,
				Pos:    HookPosExhausted,
				Item:   ev,
				Detail: err,
			})
		}

		return
	}

	f.stats.count(ev)

	if f.NumHooks() > 0 {
		f.InvokeHook(hooking.HookCtx{
			Domain: f,
			Pos:    HookPosMerge,
			Item:   ev,
		})
	}
}
