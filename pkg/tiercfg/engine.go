package tiercfg

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"

	"github.com/hpcio/tierctl/pkg/bench"
	"github.com/hpcio/tierctl/pkg/device"
	"github.com/hpcio/tierctl/pkg/discovery"
)

// ErrNoStorageDevices aborts the pass: the configuration cannot be
// built without at least one storage device.
var ErrNoStorageDevices = errors.New("at least one storage device is required")

// Settings are the raw configuration inputs of one pass, as read from
// flags, environment or config file.
type Settings struct {
	// Devices are user declarations (mount:size pairs), overriding
	// discovery when non-empty.
	Devices []string
	// Ram is the requested memory-tier capacity, a human-readable byte
	// quantity. "0" disables the memory tier.
	Ram string
	// Benchmark toggles the throughput probe pass.
	Benchmark bool

	ProbeDuration time.Duration
	ProbeBlock    int

	AdapterMode string
	FlushMode   string
	Include     []string
	Exclude     []string

	Policy Policy
}

// Result is the output of one configuration pass, handed off to the
// persistence sink.
type Result struct {
	Server      *TierConfiguration
	Client      *ClientConfig
	AdapterMode AdapterMode
}

// Engine runs configuration passes. The benchmark pass is one-shot:
// once completed, later runs reuse the recorded scores until Reset.
type Engine struct {
	Discover func() ([]device.Candidate, error)
	Bench    func(devices []*device.Descriptor, probe *bench.Probe) bench.ScoreTable

	state  bench.PassState
	scores bench.ScoreTable
}

func NewEngine() *Engine {
	return &Engine{
		Discover: discovery.FindStorage,
		Bench: func(devices []*device.Descriptor, probe *bench.Probe) bench.ScoreTable {
			return bench.NewOrchestrator(probe).Run(devices)
		},
	}
}

// State exposes the benchmark pass lifecycle.
func (e *Engine) State() bench.PassState {
	return e.state
}

// Reset discards recorded scores so the next pass benchmarks again.
func (e *Engine) Reset() {
	e.state = bench.Pending
	e.scores = nil
}

// Run executes a full configuration pass: enumerate devices, benchmark
// (unless disabled or already completed), and assemble the tier and
// client configurations.
func (e *Engine) Run(settings Settings) (*Result, error) {
	adapterMode, err := ParseAdapterMode(settings.AdapterMode)
	if err != nil {
		return nil, err
	}
	flushMode, err := ParseFlushMode(settings.FlushMode)
	if err != nil {
		return nil, err
	}
	if err := settings.Policy.Validate(); err != nil {
		return nil, err
	}

	devices, err := e.enumerate(settings)
	if err != nil {
		return nil, err
	}
	if err := device.Validate(devices); err != nil {
		return nil, err
	}

	if settings.Benchmark && e.state == bench.Pending {
		probe := bench.NewProbe(settings.ProbeDuration, settings.ProbeBlock)
		e.scores = e.Bench(devices, probe)
		e.state = e.state.Advance()
	} else if e.state == bench.Completed {
		log.Infof("benchmark pass already %s, reusing recorded scores", e.state)
	}

	return &Result{
		Server:      BuildTierConfig(devices, e.scores, settings.Policy),
		Client:      BuildClientConfig(settings.Include, settings.Exclude, settings.Policy.PageSize, flushMode),
		AdapterMode: adapterMode,
	}, nil
}

// enumerate resolves the device set: user declarations win over
// discovery, and the memory device is appended when requested.
func (e *Engine) enumerate(settings Settings) ([]*device.Descriptor, error) {
	var candidates []device.Candidate
	var err error
	if len(settings.Devices) > 0 {
		candidates, err = device.ParseDeclared(settings.Devices)
	} else {
		candidates, err = e.Discover()
	}
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoStorageDevices
	}

	ramBytes, err := ramCapacity(settings.Ram)
	if err != nil {
		return nil, err
	}
	return device.Assemble(candidates, ramBytes), nil
}

// ramCapacity parses the requested memory-tier size and caps it at the
// physical memory available on this host.
func ramCapacity(ram string) (uint64, error) {
	if ram == "" || ram == "0" {
		return 0, nil
	}
	requested, err := humanize.ParseBytes(ram)
	if err != nil {
		return 0, fmt.Errorf("bad ram quantity %s, err: %s", ram, err)
	}
	available, err := discovery.AvailableMemory()
	if err != nil {
		log.Warnf("unable to detect available memory, err: %s", err)
		return requested, nil
	}
	if requested > available {
		log.Warnf("requested ram %s exceeds available %s, capping",
			humanize.IBytes(requested), humanize.IBytes(available))
		return available, nil
	}
	return requested, nil
}
