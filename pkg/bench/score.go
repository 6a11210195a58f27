package bench

// normalized probeable scores top out here, reserving (0.9, 1.0] for memory
const normalizedCeiling = 0.9

// ScoreTable maps device names to placement-priority scores. Memory
// devices hold exactly 1.0; everything else lies in [0, 0.9].
type ScoreTable map[string]float64

// Normalize rescales raw throughput scores of probeable devices onto
// [0, 0.9] against the fastest device of the pass. A degenerate pass
// where every probe failed with zero throughput normalizes to zeros.
func Normalize(raw map[string]float64) map[string]float64 {
	var max float64
	for _, score := range raw {
		if score > max {
			max = score
		}
	}
	normalized := make(map[string]float64, len(raw))
	for name, score := range raw {
		if max > 0 {
			normalized[name] = normalizedCeiling * score / max
		} else {
			normalized[name] = 0
		}
	}
	return normalized
}

// PassState is the lifecycle of the one-shot benchmark pass.
type PassState int

const (
	// Pending means no benchmark pass has run yet.
	Pending PassState = iota
	// Completed means scores have been recorded; later configuration
	// runs reuse them instead of re-benchmarking.
	Completed
)

// Advance moves the pass state forward. The transition is one-way:
// Completed never reverts within a process lifetime.
func (s PassState) Advance() PassState {
	return Completed
}

func (s PassState) String() string {
	if s == Completed {
		return "completed"
	}
	return "pending"
}
