package tiercfg

import (
	"errors"
	"reflect"
	"testing"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/hpcio/tierctl/pkg/bench"
	"github.com/hpcio/tierctl/pkg/device"
)

func TestTierCfg(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Tier Configuration Suite")
}

func testPolicy() Policy {
	return Policy{
		StalenessSec:    1,
		BorgMinCap:      0.25,
		ScanPeriodSec:   5,
		PlacementPolicy: "MinimizeIoTime",
		PageSize:        "1m",
	}
}

var _ = Describe("Tier config builder", func() {

	Context("build", func() {
		It("emits one entry per device with memory handled specially", func() {
			avail := uint64(1 << 30)
			devices := device.Assemble([]device.Candidate{
				{Mount: "/mnt/ssd", AvailableBytes: avail, Type: device.Filesystem},
			}, 4<<30)
			scores := bench.ScoreTable{"fs_0": 0.9, "ram": 1.0}
			cfg := BuildTierConfig(devices, scores, testPolicy())

			Expect(cfg.Devices).To(HaveLen(2))

			ram := cfg.Devices["ram"]
			Expect(ram.MountPoint).To(Equal(RamMountPoint))
			Expect(ram.Capacity).To(Equal(uint64(4 << 30)))
			Expect(ram.SlabSizes).To(HaveLen(7))
			Expect(ram.ReorgThresh).To(Equal([2]float64{0.25, 1.0}))
			Expect(*ram.Score).To(Equal(1.0))

			fs := cfg.Devices["fs_0"]
			Expect(fs.MountPoint).To(Equal("fs:///mnt/ssd/" + device.DataDir))
			Expect(fs.Capacity).To(Equal(uint64(0.9 * float64(avail))))
			Expect(fs.SlabSizes).To(HaveLen(4))
			Expect(fs.ReorgThresh).To(Equal([2]float64{0.0, 1.0}))
			Expect(*fs.Score).To(Equal(0.9))
		})
		It("keeps every slab ladder strictly ascending and non-empty", func() {
			devices := device.Assemble([]device.Candidate{
				{Mount: "/mnt/a", AvailableBytes: 1 << 30, Type: device.Filesystem},
				{Mount: "/mnt/b", AvailableBytes: 1 << 30, Type: device.Custom},
			}, 1<<30)
			cfg := BuildTierConfig(devices, nil, testPolicy())
			for name, entry := range cfg.Devices {
				Expect(entry.SlabSizes).NotTo(BeEmpty(), name)
				for i := 1; i < len(entry.SlabSizes); i++ {
					Expect(entry.SlabSizes[i]).To(BeNumerically(">", entry.SlabSizes[i-1]), name)
				}
				Expect(entry.ReorgThresh[0]).To(BeNumerically("<=", entry.ReorgThresh[1]), name)
			}
		})
		It("omits the score for devices that never received one", func() {
			devices := device.Assemble([]device.Candidate{
				{Mount: "/mnt/a", AvailableBytes: 1 << 30, Type: device.Filesystem},
			}, 0)
			cfg := BuildTierConfig(devices, nil, testPolicy())
			Expect(cfg.Devices["fs_0"].Score).To(BeNil())
		})
		It("is idempotent for a frozen score table", func() {
			devices := device.Assemble([]device.Candidate{
				{Mount: "/mnt/a", AvailableBytes: 1 << 30, Type: device.Filesystem},
				{Mount: "/mnt/b", AvailableBytes: 2 << 30, Type: device.Custom},
			}, 1<<30)
			scores := bench.ScoreTable{"fs_0": 0.9, "custom_1": 0.45, "ram": 1.0}
			first := BuildTierConfig(devices, scores, testPolicy())
			second := BuildTierConfig(devices, scores, testPolicy())
			Expect(reflect.DeepEqual(first, second)).To(BeTrue())
		})
		It("passes the policy scalars through verbatim", func() {
			devices := device.Assemble([]device.Candidate{
				{Mount: "/mnt/a", AvailableBytes: 1 << 30, Type: device.Filesystem},
			}, 0)
			cfg := BuildTierConfig(devices, nil, testPolicy())
			Expect(cfg.Organizer.StalenessSec).To(Equal(1.0))
			Expect(cfg.Organizer.ScanPeriodSec).To(Equal(5))
			Expect(cfg.PlacementPolicy).To(Equal("MinimizeIoTime"))
		})
	})

	Context("policy validation", func() {
		It("accepts the full capacity-fraction range", func() {
			for _, frac := range []float64{0, 0.5, 1} {
				pol := testPolicy()
				pol.BorgMinCap = frac
				Expect(pol.Validate()).To(Succeed())
			}
		})
		It("rejects fractions that would unorder the reorg threshold", func() {
			for _, frac := range []float64{-0.1, 1.5} {
				pol := testPolicy()
				pol.BorgMinCap = frac
				Expect(pol.Validate()).NotTo(Succeed())
			}
		})
	})

	Context("client config", func() {
		It("prepends the baseline path lists and resolves the flush tag", func() {
			client := BuildClientConfig([]string{"/data"}, []string{"/tmp"}, "1m", FlushSync)
			Expect(client.PathInclusions).To(Equal([]string{"", "/data"}))
			Expect(client.PathExclusions).To(Equal([]string{"/", "/tmp"}))
			Expect(client.PageSize).To(Equal("1m"))
			Expect(client.FlushingMode).To(Equal("kSync"))
		})
	})
})

var _ = Describe("Modes", func() {

	Context("adapter mode", func() {
		It("parses the closed set", func() {
			for s, tag := range map[string]string{"default": "kDefault", "scratch": "kScratch", "bypass": "kBypass"} {
				mode, err := ParseAdapterMode(s)
				Expect(err).NotTo(HaveOccurred())
				Expect(mode.Tag()).To(Equal(tag))
				Expect(mode.String()).To(Equal(s))
			}
		})
		It("rejects unknown values instead of defaulting", func() {
			_, err := ParseAdapterMode("passthrough")
			Expect(err).To(HaveOccurred())
		})
	})

	Context("flush mode", func() {
		It("parses the closed set", func() {
			for s, tag := range map[string]string{"sync": "kSync", "async": "kAsync"} {
				mode, err := ParseFlushMode(s)
				Expect(err).NotTo(HaveOccurred())
				Expect(mode.Tag()).To(Equal(tag))
			}
		})
		It("rejects unknown values instead of defaulting", func() {
			_, err := ParseFlushMode("eventually")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("Engine", func() {

	var benchRuns int

	newTestEngine := func(candidates []device.Candidate) *Engine {
		benchRuns = 0
		engine := NewEngine()
		engine.Discover = func() ([]device.Candidate, error) {
			return candidates, nil
		}
		engine.Bench = func(devices []*device.Descriptor, probe *bench.Probe) bench.ScoreTable {
			benchRuns++
			scores := make(bench.ScoreTable, len(devices))
			for _, dev := range devices {
				if dev.IsRam() {
					scores[dev.Name] = bench.MemoryScore
				} else {
					scores[dev.Name] = 0.5
				}
			}
			return scores
		}
		return engine
	}

	settings := func() Settings {
		return Settings{
			Ram:           "0",
			Benchmark:     true,
			ProbeDuration: 10 * time.Millisecond,
			ProbeBlock:    4096,
			AdapterMode:   "default",
			FlushMode:     "async",
			Policy:        testPolicy(),
		}
	}

	Context("run", func() {
		It("fails hard when no storage device is available", func() {
			engine := newTestEngine(nil)
			result, err := engine.Run(settings())
			Expect(errors.Is(err, ErrNoStorageDevices)).To(BeTrue())
			Expect(result).To(BeNil())
		})
		It("benchmarks once and reuses recorded scores afterwards", func() {
			engine := newTestEngine([]device.Candidate{
				{Mount: "/mnt/a", AvailableBytes: 1 << 30, Type: device.Filesystem},
			})
			first, err := engine.Run(settings())
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.State()).To(Equal(bench.Completed))
			Expect(benchRuns).To(Equal(1))

			second, err := engine.Run(settings())
			Expect(err).NotTo(HaveOccurred())
			Expect(benchRuns).To(Equal(1))
			Expect(*second.Server.Devices["fs_0"].Score).To(Equal(*first.Server.Devices["fs_0"].Score))
		})
		It("benchmarks again after an explicit reset", func() {
			engine := newTestEngine([]device.Candidate{
				{Mount: "/mnt/a", AvailableBytes: 1 << 30, Type: device.Filesystem},
			})
			_, err := engine.Run(settings())
			Expect(err).NotTo(HaveOccurred())
			engine.Reset()
			Expect(engine.State()).To(Equal(bench.Pending))
			_, err = engine.Run(settings())
			Expect(err).NotTo(HaveOccurred())
			Expect(benchRuns).To(Equal(2))
		})
		It("rejects bad mode strings before touching any device", func() {
			engine := newTestEngine(nil)
			badMode := settings()
			badMode.AdapterMode = "weird"
			_, err := engine.Run(badMode)
			Expect(err).To(HaveOccurred())
			Expect(benchRuns).To(BeZero())
		})
		It("rejects an out-of-range reorganization floor at the boundary", func() {
			engine := newTestEngine([]device.Candidate{
				{Mount: "/mnt/a", AvailableBytes: 1 << 30, Type: device.Filesystem},
			})
			badPolicy := settings()
			badPolicy.Policy.BorgMinCap = 1.5
			result, err := engine.Run(badPolicy)
			Expect(err).To(HaveOccurred())
			Expect(result).To(BeNil())
			Expect(benchRuns).To(BeZero())
		})
		It("prefers declared devices over discovery", func() {
			engine := newTestEngine(nil)
			declared := settings()
			declared.Devices = []string{"/mnt/fast:9GB"}
			result, err := engine.Run(declared)
			Expect(err).NotTo(HaveOccurred())
			entry := result.Server.Devices["custom_0"]
			// the declared size is grossed up so the headroom deduction
			// lands back on the requested capacity
			Expect(entry.Capacity).To(BeNumerically("~", 9e9, 2))
		})
	})
})
