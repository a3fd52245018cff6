package ssd

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ftlsim/flash"
	"github.com/sarchlab/ftlsim/hooking"
)

func expectViolation(f func(), reason string) {
	defer func() {
		r := recover()
		Expect(r).NotTo(BeNil())

		v, ok := r.(*ProtocolViolation)
		Expect(ok).To(BeTrue())
		Expect(v.Reason).To(ContainSubstring(reason))
		Expect(v.Error()).To(ContainSubstring("protocol violation"))
	}()

	f()
}

var _ = Describe("Controller", func() {
	var (
		ctrl *Controller
		g    flash.Geometry
	)

	page := func(block, p int) flash.Address {
		return flash.NewMapper(g).PageAddr(block, p)
	}

	BeforeEach(func() {
		g = flash.Geometry{
			Packages:       1,
			DiesPerPackage: 1,
			PlanesPerDie:   2,
			BlocksPerPlane: 4,
			PagesPerBlock:  4,
		}
		ctrl = NewController("Ctrl", g, 8, 2)
	})

	It("should move pages through the buffer", func() {
		ctrl.hostWrite(page(0, 0), 7, []byte("abcdefgh"))

		ctrl.Execute(flash.OpRead, page(0, 0))
		Expect(ctrl.Buffered()).To(Equal(1))

		ctrl.Execute(flash.OpWrite, page(5, 2))
		Expect(ctrl.Buffered()).To(Equal(0))

		Expect(ctrl.hostRead(page(5, 2))).To(Equal([]byte("abcdefgh")))
		Expect(ctrl.IsDirty(page(5, 2))).To(BeTrue())
	})

	It("should erase a whole block", func() {
		ctrl.hostWrite(page(1, 0), 0, []byte("a"))
		ctrl.hostWrite(page(1, 3), 0, []byte("b"))

		ctrl.Execute(flash.OpErase, page(1, 2))

		Expect(ctrl.IsDirty(page(1, 0))).To(BeFalse())
		Expect(ctrl.IsDirty(page(1, 3))).To(BeFalse())
		Expect(ctrl.EraseCount(1)).To(Equal(1))
		Expect(ctrl.storage.AllocatedUnits()).To(BeZero())
	})

	It("should report operations to hooks", func() {
		var ops []FlashOp
		ctrl.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			ops = append(ops, ctx.Item.(FlashOp))
		}))

		ctrl.hostWrite(page(2, 1), 9, []byte("a"))
		ctrl.Execute(flash.OpRead, page(2, 1))
		ctrl.Execute(flash.OpWrite, page(3, 1))

		Expect(ops).To(HaveLen(3))
		Expect(ops[2]).To(Equal(FlashOp{
			Op: flash.OpWrite, Addr: page(3, 1), Block: 3, LBA: 9,
		}))
	})

	It("should refuse to write a dirty page", func() {
		ctrl.hostWrite(page(0, 0), 0, []byte("a"))

		expectViolation(func() {
			ctrl.hostWrite(page(0, 0), 0, []byte("b"))
		}, "twice")
	})

	It("should refuse to write with an empty buffer", func() {
		expectViolation(func() {
			ctrl.Execute(flash.OpWrite, page(0, 0))
		}, "buffer empty")
	})

	It("should refuse to read a clean page", func() {
		expectViolation(func() {
			ctrl.Execute(flash.OpRead, page(0, 0))
		}, "not written")
	})

	It("should refuse to erase with buffered pages", func() {
		ctrl.hostWrite(page(0, 0), 0, []byte("a"))
		ctrl.Execute(flash.OpRead, page(0, 0))

		expectViolation(func() {
			ctrl.Execute(flash.OpErase, page(0, 0))
		}, "buffered")
	})

	It("should refuse to erase a clean block", func() {
		expectViolation(func() {
			ctrl.Execute(flash.OpErase, page(0, 0))
		}, "already erased")
	})

	It("should refuse to erase a worn out block", func() {
		for i := 0; i < 2; i++ {
			ctrl.hostWrite(page(0, 0), 0, []byte("a"))
			ctrl.Execute(flash.OpErase, page(0, 0))
		}

		ctrl.hostWrite(page(0, 0), 0, []byte("a"))

		expectViolation(func() {
			ctrl.Execute(flash.OpErase, page(0, 0))
		}, "worn out")
	})
})
