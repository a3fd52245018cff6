package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ftlsim/hooking"
	"go.uber.org/mock/gomock"
)

type tracedDomain struct {
	hooking.HookableBase
}

func (d *tracedDomain) Name() string {
	return "Domain"
}

var _ = Describe("CollectTrace", func() {
	var (
		mockCtrl *gomock.Controller
		tracer   *MockTracer
		domain   *tracedDomain
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		tracer = NewMockTracer(mockCtrl)
		domain = &tracedDomain{}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should forward tasks to the tracer in order", func() {
		CollectTrace(domain, tracer)

		gomock.InOrder(
			tracer.EXPECT().StartTask(gomock.Any()).Do(func(task Task) {
				Expect(task.ID).To(Equal("1"))
				Expect(task.Where).To(Equal("Domain"))
			}),
			tracer.EXPECT().StepTask(gomock.Any()),
			tracer.EXPECT().EndTask(Task{ID: "1"}),
		)

		StartTask("1", "", domain, "host", "read", nil)
		AddTaskStep("1", domain, "relocation")
		EndTask("1", domain)
	})

	It("should ignore other hook positions", func() {
		CollectTrace(domain, tracer)

		domain.InvokeHook(hooking.HookCtx{
			Domain: domain,
			Pos:    &hooking.HookPos{Name: "Other"},
			Item:   "anything",
		})
	})

	It("should refuse the same tracer twice", func() {
		CollectTrace(domain, tracer)

		Expect(func() { CollectTrace(domain, tracer) }).To(Panic())
	})
})
