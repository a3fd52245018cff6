package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("TotalTimeTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		domain     *tracedDomain
		tracer     *TotalTimeTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		domain = &tracedDomain{}
		tracer = NewTotalTimeTracer(timeTeller, KindIs("host"))
		CollectTrace(domain, tracer)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should add up overlapping tasks", func() {
		gomock.InOrder(
			timeTeller.EXPECT().Now().Return(1.0),
			timeTeller.EXPECT().Now().Return(2.0),
			timeTeller.EXPECT().Now().Return(4.0),
			timeTeller.EXPECT().Now().Return(5.0),
		)

		StartTask("1", "", domain, "host", "write", nil)
		StartTask("2", "", domain, "host", "write", nil)
		EndTask("1", domain)
		EndTask("2", domain)

		Expect(tracer.TotalTime()).To(BeNumerically("~", 6.0))
		Expect(tracer.TaskCount()).To(Equal(uint64(2)))
	})

	It("should skip filtered tasks", func() {
		timeTeller.EXPECT().Now().Return(1.0).Times(2)

		StartTask("1", "", domain, "merge", "full", nil)
		EndTask("1", domain)

		Expect(tracer.TotalTime()).To(BeZero())
		Expect(tracer.TaskCount()).To(BeZero())
	})
})
