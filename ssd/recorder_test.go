package ssd

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ftlsim/datarecording"
	"github.com/sarchlab/ftlsim/flash"
)

var _ = Describe("Recorder", func() {
	It("should record merges, block wear, and counters", func() {
		dev := MakeBuilder().
			WithGeometry(flash.Geometry{
				Packages:       1,
				DiesPerPackage: 1,
				PlanesPerDie:   1,
				BlocksPerPlane: 16,
				PagesPerBlock:  4,
			}).
			WithOverprovisioning(25).
			WithPageSize(8).
			Build("SSD")

		path := filepath.Join(GinkgoT().TempDir(), "rec")
		backend := datarecording.New(path)
		defer backend.Close()

		rec := NewRecorder(dev, backend)

		for i := 0; i < 6; i++ {
			Expect(dev.WriteLBA(0, []byte("a"))).To(Succeed())
		}

		rec.Finish()

		reader, err := datarecording.NewReader(path + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		reader.MapTable(MergeTable, MergeEntry{})
		reader.MapTable(BlockTable, BlockEntry{})
		reader.MapTable(StatsTable, StatsEntry{})

		merges, total, err := reader.Query(context.Background(), MergeTable,
			datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(1))
		Expect(merges[0].(*MergeEntry).Result).To(Equal("merged"))
		Expect(merges[0].(*MergeEntry).DataBlock).To(Equal(0))

		_, total, err = reader.Query(context.Background(), BlockTable,
			datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(16))

		rows, _, err := reader.Query(context.Background(), StatsTable,
			datarecording.QueryParams{
				Where: "Name = ?",
				Args:  []any{"writes_done"},
			})
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].(*StatsEntry).Value).To(Equal(6.0))
	})
})
