// Package ssd simulates a flash device: a controller enforcing the flash
// rules, a page store, and a translation layer in front of them.
package ssd

import (
	"fmt"

	"github.com/sarchlab/ftlsim/flash"
	"github.com/sarchlab/ftlsim/ftl"
	"github.com/sarchlab/ftlsim/hooking"
	"github.com/sarchlab/ftlsim/idgen"
	"github.com/sarchlab/ftlsim/tracing"
)

// Hook positions of host requests. The hook item is a *HostRequest.
var (
	HookPosHostStart = &hooking.HookPos{Name: "Host Request Start"}
	HookPosHostEnd   = &hooking.HookPos{Name: "Host Request End"}
)

// HostOp is the kind of a host request.
type HostOp string

// All the host request kinds.
const (
	HostRead  HostOp = "read"
	HostWrite HostOp = "write"
	HostTrim  HostOp = "trim"
)

// HostRequest is a request the host sends to the device.
type HostRequest struct {
	ID   string
	Op   HostOp
	LBA  uint64
	Addr flash.Address
	Err  error
}

// Device is a flash device as the host sees it.
type Device struct {
	hooking.HookableBase

	name  string
	ftl   *ftl.FTL
	ctrl  *Controller
	ids   idgen.Generator
	stats Stats
}

// Name returns the name of the device.
func (d *Device) Name() string {
	return d.name
}

// FTL returns the translation layer of the device.
func (d *Device) FTL() *ftl.FTL {
	return d.ftl
}

// Controller returns the flash controller of the device.
func (d *Device) Controller() *Controller {
	return d.ctrl
}

// Capacity returns the number of host-visible LBAs.
func (d *Device) Capacity() uint64 {
	return d.ftl.Addressable()
}

// Now returns the logical time of the device.
func (d *Device) Now() float64 {
	return float64(d.ftl.Now())
}

// Task steps reported while serving a host request.
const (
	StepCleaning   = "cleaning"
	StepRelocation = "relocation"
	StepFailed     = "failed"
)

func (d *Device) start(op HostOp, lba uint64) *HostRequest {
	req := &HostRequest{ID: d.ids.Generate(), Op: op, LBA: lba}
	d.invoke(HookPosHostStart, req)
	tracing.StartTask(req.ID, "", d, "host", string(op), req)

	return req
}

func (d *Device) end(req *HostRequest, before ftl.Stats, err error) {
	req.Err = err

	after := d.ftl.Stats()
	if after.Merges > before.Merges {
		tracing.AddTaskStep(req.ID, d, StepCleaning)
	}

	if after.Relocations > before.Relocations {
		tracing.AddTaskStep(req.ID, d, StepRelocation)
	}

	if err != nil {
		tracing.AddTaskStep(req.ID, d, StepFailed)
	}

	tracing.EndTask(req.ID, d)
	d.invoke(HookPosHostEnd, req)
}

func (d *Device) invoke(pos *hooking.HookPos, req *HostRequest) {
	if d.NumHooks() == 0 {
		return
	}

	d.InvokeHook(hooking.HookCtx{Domain: d, Pos: pos, Item: req})
}

// WriteLBA stores up to one page of data at an LBA. Shorter data is padded
// with zeros.
func (d *Device) WriteLBA(lba uint64, data []byte) (err error) {
	d.stats.WritesRequested++
	before := d.ftl.Stats()
	req := d.start(HostWrite, lba)
	defer func() { d.end(req, before, err) }()

	if len(data) > d.ctrl.PageSize() {
		return fmt.Errorf("write lba %d: %d bytes exceed the %d-byte page",
			lba, len(data), d.ctrl.PageSize())
	}

	addr, err := d.ftl.WriteTranslate(lba, d.ctrl)
	if err != nil {
		return err
	}

	d.ctrl.mustBeDrained(flash.OpWrite, addr)

	page := make([]byte, d.ctrl.PageSize())
	copy(page, data)
	d.ctrl.hostWrite(addr, lba, page)

	req.Addr = addr
	d.stats.WritesDone++

	return nil
}

// ReadLBA returns the page stored at an LBA.
func (d *Device) ReadLBA(lba uint64) (data []byte, err error) {
	d.stats.ReadsRequested++
	before := d.ftl.Stats()
	req := d.start(HostRead, lba)
	defer func() { d.end(req, before, err) }()

	addr, err := d.ftl.ReadTranslate(lba)
	if err != nil {
		return nil, err
	}

	req.Addr = addr
	d.stats.ReadsDone++

	return d.ctrl.hostRead(addr), nil
}

// Trim tells the device an LBA no longer holds useful data.
func (d *Device) Trim(lba uint64) (err error) {
	d.stats.TrimsRequested++
	before := d.ftl.Stats()
	req := d.start(HostTrim, lba)
	defer func() { d.end(req, before, err) }()

	if err := d.ftl.Trim(lba); err != nil {
		return err
	}

	d.stats.TrimsDone++

	return nil
}

// Stats returns the request and flash counters.
func (d *Device) Stats() Stats {
	s := d.stats
	s.FlashReads = d.ctrl.reads
	s.FlashWrites = d.ctrl.writes
	s.FlashErases = d.ctrl.eraseOps

	return s
}
