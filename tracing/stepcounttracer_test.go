package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("StepCountTracer", func() {
	var (
		domain *tracedDomain
		tracer *StepCountTracer
	)

	BeforeEach(func() {
		domain = &tracedDomain{}
		tracer = NewStepCountTracer(KindIs("host"))
		CollectTrace(domain, tracer)
	})

	It("should count steps and the tasks reaching them", func() {
		StartTask("1", "", domain, "host", "write", nil)
		AddTaskStep("1", domain, "cleaning")
		AddTaskStep("1", domain, "cleaning")
		AddTaskStep("1", domain, "relocation")
		EndTask("1", domain)

		StartTask("2", "", domain, "host", "write", nil)
		AddTaskStep("2", domain, "cleaning")
		EndTask("2", domain)

		Expect(tracer.GetStepNames()).To(Equal([]string{"cleaning", "relocation"}))
		Expect(tracer.GetStepCount("cleaning")).To(Equal(uint64(3)))
		Expect(tracer.GetTaskCount("cleaning")).To(Equal(uint64(2)))
		Expect(tracer.GetTaskCount("relocation")).To(Equal(uint64(1)))
	})

	It("should ignore filtered tasks", func() {
		StartTask("1", "", domain, "internal", "merge", nil)
		AddTaskStep("1", domain, "cleaning")
		EndTask("1", domain)

		Expect(tracer.GetStepNames()).To(BeEmpty())
		Expect(tracer.GetStepCount("cleaning")).To(BeZero())
	})

	It("should ignore steps after the task ends", func() {
		StartTask("1", "", domain, "host", "write", nil)
		EndTask("1", domain)
		AddTaskStep("1", domain, "cleaning")

		Expect(tracer.GetTaskCount("cleaning")).To(BeZero())
	})
})
