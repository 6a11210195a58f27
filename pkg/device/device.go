package device

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Kind classifies a storage candidate.
type Kind string

const (
	Ram        Kind = "ram"
	Filesystem Kind = "fs"
	Custom     Kind = "custom"
)

const (
	// RamName is the fixed descriptor name of the memory device.
	RamName = "ram"

	// DataDir is appended to every mount to keep benchmark and buffer
	// data out of the mount root.
	DataDir = "tierctl_data"

	fsScheme  = "fs://"
	ramScheme = "ram://"
)

// ParseKind validates a dev_type string coming from discovery rows.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Ram, Filesystem, Custom:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown device type: %s", s)
}

// Candidate is one storage row as reported by discovery or declared by
// the user, before naming and URI assignment.
type Candidate struct {
	Mount          string
	AvailableBytes uint64
	Shared         bool
	Type           Kind
}

// Descriptor is one named storage candidate of a configuration pass.
type Descriptor struct {
	Name           string
	Kind           Kind
	MountURI       string
	AvailableBytes uint64
	Shared         bool
}

// IsRam reports whether the descriptor is the memory device.
func (d *Descriptor) IsRam() bool {
	return d.Kind == Ram
}

// MountPath strips the URI scheme and returns the filesystem path of
// the mount. Empty for the memory device.
func (d *Descriptor) MountPath() string {
	return strings.TrimPrefix(d.MountURI, fsScheme)
}

// ParseDeclared converts user-declared "mount:size" pairs into storage
// candidates. The size is a human-readable byte quantity and is grossed
// up by 1/0.9 so that the headroom deduction applied later lands back
// on the requested size.
func ParseDeclared(specs []string) ([]Candidate, error) {
	var candidates []Candidate
	for _, spec := range specs {
		idx := strings.LastIndex(spec, ":")
		if idx <= 0 || idx == len(spec)-1 {
			return nil, fmt.Errorf("bad device declaration: %s, expected mount:size", spec)
		}
		mount, size := spec[:idx], spec[idx+1:]
		bytes, err := humanize.ParseBytes(size)
		if err != nil {
			return nil, fmt.Errorf("bad size in device declaration %s, err: %s", spec, err)
		}
		candidates = append(candidates, Candidate{
			Mount:          mount,
			AvailableBytes: uint64(float64(bytes) / 0.9),
			Type:           Custom,
		})
	}
	return candidates, nil
}

// Assemble names the candidates and assigns mount URIs, appending the
// memory device when ramBytes is non-zero. Non-memory devices get a
// dedicated data directory under their mount.
func Assemble(candidates []Candidate, ramBytes uint64) []*Descriptor {
	// work on a copy, appending the memory device must never spill
	// into the caller's backing array
	all := append([]Candidate(nil), candidates...)
	if ramBytes > 0 {
		all = append(all, Candidate{AvailableBytes: ramBytes, Type: Ram})
	}
	var devices []*Descriptor
	for i, c := range all {
		if c.Type == Ram {
			devices = append(devices, &Descriptor{
				Name:           RamName,
				Kind:           Ram,
				AvailableBytes: c.AvailableBytes,
			})
			continue
		}
		devices = append(devices, &Descriptor{
			Name:           fmt.Sprintf("%s_%d", c.Type, i),
			Kind:           c.Type,
			MountURI:       fsScheme + strings.TrimSuffix(c.Mount, "/") + "/" + DataDir,
			AvailableBytes: c.AvailableBytes,
			Shared:         c.Shared,
		})
	}
	return devices
}

// Validate enforces the descriptor set invariants: at most one memory
// device and a non-empty mount URI on everything else.
func Validate(devices []*Descriptor) error {
	ramSeen := false
	for _, d := range devices {
		if d.IsRam() {
			if ramSeen {
				return fmt.Errorf("more than one memory device in configuration pass")
			}
			ramSeen = true
			continue
		}
		if d.MountURI == "" {
			return fmt.Errorf("device %s has no mount point", d.Name)
		}
	}
	return nil
}
