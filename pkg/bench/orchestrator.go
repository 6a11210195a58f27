package bench

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/hpcio/tierctl/pkg/device"
)

// Orchestrator fans one probe out per probeable device and joins the
// results into a score table.
type Orchestrator struct {
	probe *Probe
}

func NewOrchestrator(probe *Probe) *Orchestrator {
	return &Orchestrator{probe: probe}
}

// Run benchmarks every device in parallel and returns the normalized
// score table. Memory devices are never probed: they are pinned at the
// maximum score, and the (0.9, 1.0] band stays reserved for them so
// memory always outranks any filesystem-backed tier.
func (o *Orchestrator) Run(devices []*device.Descriptor) ScoreTable {
	scores := make(ScoreTable, len(devices))
	samples := make(chan *Sample, len(devices))

	log.Info("starting parallel device benchmarks")
	var wg sync.WaitGroup
	for _, dev := range devices {
		if !probeable(dev) {
			scores[dev.Name] = MemoryScore
			continue
		}
		wg.Add(1)
		go func(dev *device.Descriptor) {
			defer wg.Done()
			samples <- o.probe.Run(dev)
		}(dev)
	}
	// full join before any score is read, no partial result sets
	wg.Wait()
	close(samples)

	raw := make(map[string]float64, len(devices))
	for s := range samples {
		raw[s.Device] = s.RawScore
	}
	for name, score := range Normalize(raw) {
		scores[name] = score
	}
	log.Info("benchmarks completed")
	return scores
}

// probeable excludes devices without a real mount: memory sentinels and
// empty URIs are scored directly.
func probeable(dev *device.Descriptor) bool {
	return !dev.IsRam() && dev.MountURI != ""
}
