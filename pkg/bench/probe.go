package bench

import (
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hpcio/tierctl/pkg/device"
)

const (
	// FailedProbeScore is the raw score assigned when a probe cannot
	// complete, so one bad device never aborts the configuration pass.
	FailedProbeScore = 0.1

	// MemoryScore is assigned to memory devices without probing.
	MemoryScore = 1.0

	DefaultProbeDuration = 10 * time.Second
	DefaultProbeBlock    = 1 << 20
)

// Sample is the result of probing one device. RawScore is the mean of
// write and read throughput, or the failure sentinel.
type Sample struct {
	Device    string
	WriteMBps float64
	ReadMBps  float64
	RawScore  float64
}

// Probe measures sustained sequential write+read throughput of one
// device by streaming fixed-size blocks against a temporary file.
type Probe struct {
	Duration  time.Duration
	BlockSize int
}

func NewProbe(duration time.Duration, blockSize int) *Probe {
	if duration <= 0 {
		duration = DefaultProbeDuration
	}
	if blockSize <= 0 {
		blockSize = DefaultProbeBlock
	}
	return &Probe{Duration: duration, BlockSize: blockSize}
}

// Run benchmarks a single device. Failures are logged and resolved to
// the sentinel score, never propagated.
func (p *Probe) Run(dev *device.Descriptor) *Sample {
	log.Infof("benchmarking device %s at %s", dev.Name, dev.MountURI)

	sample, err := p.run(dev)
	if err != nil {
		log.Errorf("benchmark failed for %s, err: %s", dev.Name, err)
		return &Sample{Device: dev.Name, RawScore: FailedProbeScore}
	}
	log.Infof("device %s: write=%.2f MB/s, read=%.2f MB/s, avg=%.2f MB/s",
		dev.Name, sample.WriteMBps, sample.ReadMBps, sample.RawScore)
	return sample
}

func (p *Probe) run(dev *device.Descriptor) (*Sample, error) {
	dir := dev.MountPath()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	testFile := filepath.Join(dir, "benchmark_"+dev.Name+".tmp")
	defer os.Remove(testFile)

	writeMBps, err := p.writePass(testFile)
	if err != nil {
		return nil, err
	}
	readMBps, err := p.readPass(testFile)
	if err != nil {
		return nil, err
	}
	return &Sample{
		Device:    dev.Name,
		WriteMBps: writeMBps,
		ReadMBps:  readMBps,
		RawScore:  (writeMBps + readMBps) / 2,
	}, nil
}

// writePass streams blocks for the probe duration, forcing every block
// to durable storage so the filesystem cache earns no credit.
func (p *Probe) writePass(testFile string) (float64, error) {
	f, err := os.OpenFile(testFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	block := make([]byte, p.BlockSize)
	var written int
	start := time.Now()
	for time.Since(start) < p.Duration {
		if _, err := f.Write(block); err != nil {
			return 0, err
		}
		if err := f.Sync(); err != nil {
			return 0, err
		}
		written += p.BlockSize
	}
	return throughputMBps(written, time.Since(start)), nil
}

// readPass reads blocks sequentially for the probe duration, rewinding
// on EOF: the probe measures sustained throughput, not file size.
func (p *Probe) readPass(testFile string) (float64, error) {
	f, err := os.Open(testFile)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	block := make([]byte, p.BlockSize)
	var read int
	start := time.Now()
	for time.Since(start) < p.Duration {
		n, err := f.Read(block)
		read += n
		if err == io.EOF {
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return 0, err
			}
			continue
		}
		if err != nil {
			return 0, err
		}
	}
	return throughputMBps(read, time.Since(start)), nil
}

func throughputMBps(bytes int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(bytes) / elapsed.Seconds() / (1 << 20)
}
