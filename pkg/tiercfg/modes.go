package tiercfg

import "fmt"

// AdapterMode controls how the interposition layer treats intercepted
// I/O. Unrecognized mode strings are rejected at the boundary, never
// silently defaulted.
type AdapterMode int

const (
	AdapterDefault AdapterMode = iota
	AdapterScratch
	AdapterBypass
)

func ParseAdapterMode(s string) (AdapterMode, error) {
	switch s {
	case "default":
		return AdapterDefault, nil
	case "scratch":
		return AdapterScratch, nil
	case "bypass":
		return AdapterBypass, nil
	}
	return 0, fmt.Errorf("unknown adapter mode: %s, expected default|scratch|bypass", s)
}

// Tag returns the mode value consumed by downstream collaborators.
func (m AdapterMode) Tag() string {
	switch m {
	case AdapterScratch:
		return "kScratch"
	case AdapterBypass:
		return "kBypass"
	default:
		return "kDefault"
	}
}

func (m AdapterMode) String() string {
	switch m {
	case AdapterScratch:
		return "scratch"
	case AdapterBypass:
		return "bypass"
	default:
		return "default"
	}
}

// FlushMode controls whether adapters flush buffered data synchronously.
type FlushMode int

const (
	FlushAsync FlushMode = iota
	FlushSync
)

func ParseFlushMode(s string) (FlushMode, error) {
	switch s {
	case "async":
		return FlushAsync, nil
	case "sync":
		return FlushSync, nil
	}
	return 0, fmt.Errorf("unknown flush mode: %s, expected sync|async", s)
}

// Tag returns the mode value consumed by downstream collaborators.
func (m FlushMode) Tag() string {
	if m == FlushSync {
		return "kSync"
	}
	return "kAsync"
}

func (m FlushMode) String() string {
	if m == FlushSync {
		return "sync"
	}
	return "async"
}
