package tracing

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ftlsim/datarecording"
	"go.uber.org/mock/gomock"
)

var _ = Describe("DBTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		domain     *tracedDomain
		recorder   datarecording.DataRecorder
		path       string
		tracer     *DBTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		domain = &tracedDomain{}

		path = filepath.Join(GinkgoT().TempDir(), "trace")
		recorder = datarecording.New(path)
		tracer = NewDBTracer(timeTeller, recorder)
		CollectTrace(domain, tracer)
	})

	AfterEach(func() {
		mockCtrl.Finish()
		Expect(recorder.Close()).To(Succeed())
	})

	It("should write finished tasks with their steps", func() {
		gomock.InOrder(
			timeTeller.EXPECT().Now().Return(3.0),
			timeTeller.EXPECT().Now().Return(3.0),
			timeTeller.EXPECT().Now().Return(4.0),
			timeTeller.EXPECT().Now().Return(5.0),
		)

		StartTask("9", "", domain, "host", "write", nil)
		AddTaskStep("9", domain, "cleaning")
		EndTask("9", domain)
		StartTask("10", "", domain, "host", "read", nil)
		tracer.Terminate()

		reader, err := datarecording.NewReader(path + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		reader.MapTable("trace", taskTableEntry{})
		rows, total, err := reader.Query(context.Background(), "trace",
			datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(1))
		Expect(rows[0]).To(Equal(&taskTableEntry{
			ID:        "9",
			Kind:      "host",
			What:      "write",
			Location:  "Domain",
			StartTime: 3,
			EndTime:   4,
			Steps:     "cleaning",
		}))
	})
})
