package tiercfg

import (
	"fmt"

	"github.com/hpcio/tierctl/pkg/bench"
	"github.com/hpcio/tierctl/pkg/device"
)

const (
	// RamMountPoint is the mount sentinel of the memory tier.
	RamMountPoint = "ram://"

	// headroomFactor reserves 10% of a filesystem device for metadata
	// and filesystem overhead. Memory gets no deduction.
	headroomFactor = 0.9

	defaultBlockSize = 4 << 10
)

// slab ladders: memory allocation is cheap enough to justify small
// granularities, filesystem block allocation is not
var (
	fsSlabSizes  = []uint64{4 << 10, 16 << 10, 64 << 10, 1 << 20}
	ramSlabSizes = []uint64{256, 512, 1 << 10, 4 << 10, 16 << 10, 64 << 10, 1 << 20}
)

// Policy holds the pass-through organizer and placement scalars.
type Policy struct {
	StalenessSec    float64
	BorgMinCap      float64
	ScanPeriodSec   int
	PlacementPolicy string
	PageSize        string
}

// Validate rejects policy scalars outside their domain. BorgMinCap is a
// capacity fraction: anything outside [0, 1] would leave the memory
// tier with an unordered reorganization threshold pair.
func (p Policy) Validate() error {
	if p.BorgMinCap < 0 || p.BorgMinCap > 1 {
		return fmt.Errorf("borg min cap %v outside [0, 1]", p.BorgMinCap)
	}
	return nil
}

// TierEntry is the final per-device configuration record.
type TierEntry struct {
	MountPoint  string     `yaml:"mount_point"`
	Capacity    uint64     `yaml:"capacity"`
	BlockSize   uint64     `yaml:"block_size"`
	Shared      bool       `yaml:"is_shared_device"`
	ReorgThresh [2]float64 `yaml:"borg_capacity_thresh,flow"`
	SlabSizes   []uint64   `yaml:"slab_sizes,flow"`
	Score       *float64   `yaml:"score,omitempty"`
}

// Organizer holds the background reorganizer scalars.
type Organizer struct {
	StalenessSec  float64 `yaml:"recency_max"`
	ScanPeriodSec int     `yaml:"flush_period"`
}

// TierConfiguration is the server-side configuration consumed by the
// downstream placement engine. Built once per pass, immutable after.
type TierConfiguration struct {
	Devices         map[string]TierEntry `yaml:"devices"`
	Organizer       Organizer            `yaml:"buffer_organizer"`
	PlacementPolicy string               `yaml:"default_placement_policy"`
}

// ClientConfig is the client-side configuration for the interposition
// layer.
type ClientConfig struct {
	PathInclusions []string `yaml:"path_inclusions"`
	PathExclusions []string `yaml:"path_exclusions"`
	PageSize       string   `yaml:"file_page_size"`
	FlushingMode   string   `yaml:"flushing_mode"`
}

// BuildTierConfig assembles the multi-tier configuration from device
// descriptors, benchmark scores and policy scalars. Devices that never
// received a score omit the field instead of defaulting it.
func BuildTierConfig(devices []*device.Descriptor, scores bench.ScoreTable, pol Policy) *TierConfiguration {
	cfg := &TierConfiguration{
		Devices: make(map[string]TierEntry, len(devices)),
		Organizer: Organizer{
			StalenessSec:  pol.StalenessSec,
			ScanPeriodSec: pol.ScanPeriodSec,
		},
		PlacementPolicy: pol.PlacementPolicy,
	}
	for _, dev := range devices {
		entry := TierEntry{
			MountPoint:  dev.MountURI,
			Capacity:    uint64(headroomFactor * float64(dev.AvailableBytes)),
			BlockSize:   defaultBlockSize,
			Shared:      dev.Shared,
			ReorgThresh: [2]float64{0.0, 1.0},
			SlabSizes:   append([]uint64(nil), fsSlabSizes...),
		}
		if dev.IsRam() {
			entry.MountPoint = RamMountPoint
			entry.Capacity = dev.AvailableBytes
			entry.ReorgThresh = [2]float64{pol.BorgMinCap, 1.0}
			entry.SlabSizes = append([]uint64(nil), ramSlabSizes...)
		}
		if score, ok := scores[dev.Name]; ok {
			s := score
			entry.Score = &s
		}
		cfg.Devices[dev.Name] = entry
	}
	return cfg
}

// BuildClientConfig assembles the client-side configuration. The
// baseline includes everything and excludes the filesystem root, with
// user-declared paths appended.
func BuildClientConfig(include, exclude []string, pageSize string, flush FlushMode) *ClientConfig {
	return &ClientConfig{
		PathInclusions: append([]string{""}, include...),
		PathExclusions: append([]string{"/"}, exclude...),
		PageSize:       pageSize,
		FlushingMode:   flush.Tag(),
	}
}
