package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ftlsim/hooking"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Api", func() {
	var (
		mockCtrl *gomock.Controller
		domain   *MockNamedHookable
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		domain = NewMockNamedHookable(mockCtrl)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("with hooks", func() {
		BeforeEach(func() {
			domain.EXPECT().NumHooks().Return(1).AnyTimes()
		})

		It("should panic if ID is not given", func() {
			domain.EXPECT().Name().Return("domain").AnyTimes()
			Expect(func() {
				StartTask("", "123", domain, "kind", "what", nil)
			}).Should(Panic())
		})

		It("should be panic if domain is nil.", func() {
			Expect(func() {
				StartTask("id", "123", nil, "kind", "what", nil)
			}).Should(Panic())
		})

		It("should be panic if domain's name is empty.", func() {
			domain.EXPECT().Name().Return("").AnyTimes()
			Expect(func() {
				StartTask("id", "123", domain, "kind", "what", nil)
			}).Should(Panic())
		})

		It("should be panic if kind is empty.", func() {
			domain.EXPECT().Name().Return("domain").AnyTimes()
			Expect(func() {
				StartTask("id", "123", domain, "", "what", nil)
			}).Should(Panic())
		})

		It("should be panic if what is empty.", func() {
			domain.EXPECT().Name().Return("domain").AnyTimes()
			Expect(func() {
				StartTask("id", "123", domain, "kind", "", nil)
			}).Should(Panic())
		})

		It("should report the task start with the domain as location", func() {
			domain.EXPECT().Name().Return("SSD").AnyTimes()
			domain.EXPECT().InvokeHook(gomock.Any()).
				Do(func(ctx hooking.HookCtx) {
					Expect(ctx.Pos).To(BeIdenticalTo(HookPosTaskStart))
					task := ctx.Item.(Task)
					Expect(task.ID).To(Equal("7"))
					Expect(task.ParentID).To(Equal("3"))
					Expect(task.Kind).To(Equal("host"))
					Expect(task.What).To(Equal("write"))
					Expect(task.Where).To(Equal("SSD"))
				})

			StartTask("7", "3", domain, "host", "write", nil)
		})

		It("should report steps", func() {
			domain.EXPECT().InvokeHook(gomock.Any()).
				Do(func(ctx hooking.HookCtx) {
					Expect(ctx.Pos).To(BeIdenticalTo(HookPosTaskStep))
					task := ctx.Item.(Task)
					Expect(task.ID).To(Equal("7"))
					Expect(task.Steps).To(Equal([]TaskStep{{What: "cleaning"}}))
				})

			AddTaskStep("7", domain, "cleaning")
		})

		It("should report the task end", func() {
			domain.EXPECT().InvokeHook(gomock.Any()).
				Do(func(ctx hooking.HookCtx) {
					Expect(ctx.Pos).To(BeIdenticalTo(HookPosTaskEnd))
					Expect(ctx.Item.(Task).ID).To(Equal("7"))
				})

			EndTask("7", domain)
		})
	})

	It("should not invoke hooks when nothing listens", func() {
		domain.EXPECT().NumHooks().Return(0).AnyTimes()

		StartTask("7", "", domain, "host", "write", nil)
		AddTaskStep("7", domain, "cleaning")
		EndTask("7", domain)
	})
})
