package ssd

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ftlsim/flash"
	"github.com/sarchlab/ftlsim/ftl"
	"github.com/sarchlab/ftlsim/hooking"
	"github.com/sarchlab/ftlsim/tracing"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var _ = Describe("Device", func() {
	var dev *Device

	BeforeEach(func() {
		dev = MakeBuilder().
			WithGeometry(flash.Geometry{
				Packages:       1,
				DiesPerPackage: 1,
				PlanesPerDie:   1,
				BlocksPerPlane: 16,
				PagesPerBlock:  4,
			}).
			WithEraseLimit(100).
			WithOverprovisioning(25).
			WithPolicy(ftl.LRU).
			WithPageSize(16).
			Build("SSD")
	})

	It("should be named", func() {
		Expect(dev.Name()).To(Equal("SSD"))
		Expect(dev.FTL().Name()).To(Equal("SSD.FTL"))
		Expect(dev.Controller().Name()).To(Equal("SSD.Controller"))
		Expect(dev.Capacity()).To(Equal(uint64(48)))
	})

	It("should read back what was written", func() {
		Expect(dev.WriteLBA(3, []byte("hello"))).To(Succeed())

		data, err := dev.ReadLBA(3)

		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(HaveLen(16))
		Expect(string(data[:5])).To(Equal("hello"))
	})

	It("should survive many overwrites", func() {
		for i := 0; i < 200; i++ {
			lba := uint64(i % 10)
			Expect(dev.WriteLBA(lba, []byte(fmt.Sprintf("v%d", i)))).
				To(Succeed())
		}

		for lba := uint64(0); lba < 10; lba++ {
			data, err := dev.ReadLBA(lba)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data[:4])).To(Equal(fmt.Sprintf("v%d", 190+lba)))
		}

		for b := 0; b < 16; b++ {
			Expect(dev.Controller().EraseCount(b)).
				To(Equal(dev.FTL().EraseCount(b)))
		}

		stats := dev.Stats()
		Expect(stats.WritesDone).To(Equal(uint64(200)))
		Expect(stats.FlashErases).To(BeNumerically(">", 0))
		Expect(stats.WriteAmplification()).To(BeNumerically(">", 1))
	})

	It("should reject oversized data", func() {
		err := dev.WriteLBA(0, make([]byte, 17))

		Expect(err).To(HaveOccurred())
		Expect(dev.Stats().WritesDone).To(BeZero())
	})

	It("should count requests", func() {
		Expect(dev.WriteLBA(1, []byte("a"))).To(Succeed())
		Expect(dev.WriteLBA(100, []byte("a"))).To(MatchError(ftl.ErrInvalidLBA))
		Expect(dev.Trim(1)).To(Succeed())
		Expect(dev.Trim(100)).To(MatchError(ftl.ErrInvalidLBA))
		_, err := dev.ReadLBA(1)
		Expect(err).To(MatchError(ftl.ErrNotWritten))

		stats := dev.Stats()
		Expect(stats).To(Equal(Stats{
			WritesRequested: 2,
			WritesDone:      1,
			ReadsRequested:  1,
			TrimsRequested:  2,
			TrimsDone:       1,
			FlashWrites:     1,
		}))
		Expect(stats.WriteAmplification()).To(Equal(1.0))
		Expect(Stats{}.WriteAmplification()).To(BeZero())
	})

	It("should report host requests to hooks", func() {
		var reqs []HostRequest
		dev.AcceptHook(hooking.HookFunc(func(ctx hooking.HookCtx) {
			if ctx.Pos == HookPosHostEnd {
				reqs = append(reqs, *ctx.Item.(*HostRequest))
			}
		}))

		Expect(dev.WriteLBA(5, []byte("a"))).To(Succeed())
		_, _ = dev.ReadLBA(6)

		Expect(reqs).To(HaveLen(2))
		Expect(reqs[0].ID).To(Equal("1"))
		Expect(reqs[0].Op).To(Equal(HostWrite))
		Expect(reqs[0].Addr).To(Equal(flash.Address{Block: 1, Page: 1}))
		Expect(reqs[0].Err).NotTo(HaveOccurred())
		Expect(reqs[1].Op).To(Equal(HostRead))
		Expect(reqs[1].Err).To(MatchError(ftl.ErrNotWritten))
	})

	It("should log operations", func() {
		core, logs := observer.New(zapcore.DebugLevel)
		opLogger := NewOpLogger(zap.New(core))
		dev.AcceptHook(opLogger)
		dev.Controller().AcceptHook(opLogger)
		dev.FTL().AcceptHook(opLogger)

		for i := 0; i < 6; i++ {
			Expect(dev.WriteLBA(0, []byte("a"))).To(Succeed())
		}

		Expect(logs.FilterMessage("host request").Len()).To(Equal(6))
		Expect(logs.FilterMessage("flash op").Len()).To(BeNumerically(">=", 6))
		Expect(logs.FilterMessage("cleaning").Len()).To(Equal(1))
	})

	It("should trace cleaning steps of host requests", func() {
		steps := tracing.NewStepCountTracer(tracing.KindIs("host"))
		timer := tracing.NewTotalTimeTracer(dev, tracing.AllTasks)
		tracing.CollectTrace(dev, steps)
		tracing.CollectTrace(dev, timer)

		for i := 0; i < 6; i++ {
			Expect(dev.WriteLBA(0, []byte("a"))).To(Succeed())
		}
		_, _ = dev.ReadLBA(9)

		Expect(steps.GetTaskCount(StepCleaning)).To(Equal(uint64(1)))
		Expect(steps.GetTaskCount(StepFailed)).To(Equal(uint64(1)))
		Expect(steps.GetTaskCount(StepRelocation)).To(BeZero())
		Expect(timer.TaskCount()).To(Equal(uint64(7)))
		Expect(timer.TotalTime()).To(BeNumerically("~", 6.0))
	})
})
