package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/ftlsim/config"
	"github.com/sarchlab/ftlsim/ftl"
	"github.com/sarchlab/ftlsim/workload"
)

const smallDevice = `# 16 blocks of 4 pages
SSD_SIZE 1
PACKAGE_SIZE 1
DIE_SIZE 1
PLANE_SIZE 16
BLOCK_SIZE 4
BLOCK_ERASES 100
OVERPROVISIONING 25
SELECTED_GC_POLICY greedy
PAGE_SIZE 16
`

func execute(stdin string, args ...string) (string, error) {
	root := newRootCmd()
	out := bytes.NewBuffer(nil)

	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(out)
	root.SetErr(out)

	err := root.Execute()

	return out.String(), err
}

var _ = Describe("CLI", func() {
	var (
		dir     string
		cfgPath string
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		cfgPath = filepath.Join(dir, "ssd.conf")
		Expect(os.WriteFile(cfgPath, []byte(smallDevice), 0o644)).To(Succeed())
	})

	Context("inspect", func() {
		It("should print the layout", func() {
			out, err := execute("", "inspect", "--config", cfgPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(MatchRegexp(`addressable_lbas[\s:]+48`))
			Expect(out).To(MatchRegexp(`policy[\s:]+greedy`))
			Expect(out).To(ContainSubstring("STATE"))
			Expect(out).To(MatchRegexp(`data\s+12`))
		})

		It("should print the state as JSON", func() {
			out, err := execute("", "inspect", "--config", cfgPath, "--json")
			Expect(err).NotTo(HaveOccurred())

			var snap ftl.Snapshot
			Expect(json.Unmarshal([]byte(out), &snap)).To(Succeed())
			Expect(snap.Addressable).To(Equal(uint64(48)))
			Expect(snap.Policy).To(Equal("greedy"))
		})

		It("should save the effective configuration", func() {
			saved := filepath.Join(dir, "saved.env")

			_, err := execute("", "inspect", "--config", cfgPath,
				"--save", saved)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := config.Load(saved)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Geometry.BlocksPerPlane).To(Equal(16))
			Expect(cfg.Policy).To(Equal(ftl.Greedy))
		})

		It("should report a broken configuration", func() {
			_, err := execute("", "inspect", "--config",
				filepath.Join(dir, "missing.conf"))

			Expect(err).To(HaveOccurred())
		})
	})

	Context("gen", func() {
		It("should write a trace sized for the device", func() {
			out, err := execute("", "gen", "--config", cfgPath, "-n", "200",
				"--read-ratio", "0.3", "--hot-fraction", "0.25")
			Expect(err).NotTo(HaveOccurred())

			reqs, err := workload.Parse(strings.NewReader(out))
			Expect(err).NotTo(HaveOccurred())
			Expect(reqs).To(HaveLen(200))

			for _, r := range reqs {
				Expect(r.LBA).To(BeNumerically("<", 48))
			}
		})

		It("should write to a file", func() {
			path := filepath.Join(dir, "trace.txt")

			_, err := execute("", "gen", "--config", cfgPath, "-n", "10",
				"-o", path)
			Expect(err).NotTo(HaveOccurred())

			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Count(string(data), "\n")).To(Equal(10))
		})

		It("should reject bad ratios", func() {
			_, err := execute("", "gen", "--read-ratio", "2")

			Expect(err).To(HaveOccurred())
		})
	})

	Context("run", func() {
		It("should replay a trace from stdin", func() {
			trace := strings.Repeat("W 0\nW 1\n", 10) + "R 0\nT 1\n"

			out, err := execute(trace, "run", "--config", cfgPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(MatchRegexp(`writes_done[\s:]+20`))
			Expect(out).To(MatchRegexp(`mismatches[\s:]+0`))
			Expect(out).To(MatchRegexp(`policy[\s:]+greedy`))
		})

		It("should report request time per operation", func() {
			trace := strings.Repeat("W 0\nW 1\n", 10) + "R 0\nT 1\n"

			out, err := execute(trace, "run", "--config", cfgPath)

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(MatchRegexp(`write_requests[\s:]+20`))
			Expect(out).To(MatchRegexp(`write_time[\s:]+20`))
			Expect(out).To(MatchRegexp(`read_requests[\s:]+1`))
			Expect(out).To(MatchRegexp(`read_time[\s:]+0`))
			Expect(out).To(MatchRegexp(`trim_requests[\s:]+1`))
		})

		It("should override the policy", func() {
			out, err := execute("W 0\n", "run", "--config", cfgPath,
				"--policy", "lru")

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(MatchRegexp(`policy[\s:]+lru`))
		})

		It("should reject an unknown policy", func() {
			_, err := execute("W 0\n", "run", "--config", cfgPath,
				"--policy", "random")

			Expect(err).To(HaveOccurred())
		})

		It("should fail on unexpected read data", func() {
			_, err := execute("W 0 a\nR 0 b\n", "run", "--config", cfgPath)

			Expect(err).To(MatchError(ContainSubstring("unexpected data")))
		})

		It("should read a trace file and record the run", func() {
			tracePath := filepath.Join(dir, "trace.txt")
			Expect(os.WriteFile(tracePath,
				[]byte(strings.Repeat("W 5\n", 12)), 0o644)).To(Succeed())
			record := filepath.Join(dir, "run")

			_, err := execute("", "run", tracePath, "--config", cfgPath,
				"--record", record)

			Expect(err).NotTo(HaveOccurred())
			Expect(record + ".sqlite3").To(BeAnExistingFile())

			out, err := execute("", "inspect", "--recording", record)

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(MatchRegexp(`writes_done[\s:]+12`))
			Expect(out).To(ContainSubstring("2 merges, latest 2"))
			Expect(out).To(ContainSubstring("optimized"))
			Expect(out).To(ContainSubstring("ERASES"))

			out, err = execute("", "inspect", "--recording",
				record+".sqlite3", "--limit", "1")

			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("2 merges, latest 1"))
		})

		It("should report a missing recording", func() {
			_, err := execute("", "inspect", "--recording",
				filepath.Join(dir, "missing"))

			Expect(err).To(HaveOccurred())
			Expect(filepath.Join(dir, "missing.sqlite3")).
				NotTo(BeAnExistingFile())
		})

		It("should reject a bad log level", func() {
			_, err := execute("W 0\n", "run", "--log-level", "loud")

			Expect(err).To(HaveOccurred())
		})
	})
})
