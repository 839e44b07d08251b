package scoring

import "strings"

// Signal names as used in configuration.
const (
	SignalSkills       = "skills"
	SignalHours        = "hours"
	SignalTemporal     = "temporal"
	SignalCategory     = "category"
	SignalCompensation = "compensation"
	SignalReputation   = "reputation"
)

// Weights are the relative weights of the six signals. They need not sum to 1.
type Weights struct {
	Skills       float64
	Hours        float64
	Temporal     float64
	Category     float64
	Compensation float64
	Reputation   float64
}

// DefaultWeights gives hours fit a quarter of the total.
func DefaultWeights() Weights {
	return Weights{
		Skills:       0.30,
		Hours:        0.25,
		Temporal:     0.15,
		Category:     0.10,
		Compensation: 0.10,
		Reputation:   0.10,
	}
}

// WeightsFromMap overlays m on the defaults. Unknown names and negative
// values are ignored; zero disables a signal.
func WeightsFromMap(m map[string]float64) Weights {
	w := DefaultWeights()
	for name, v := range m {
		if v < 0 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case SignalSkills:
			w.Skills = v
		case SignalHours:
			w.Hours = v
		case SignalTemporal:
			w.Temporal = v
		case SignalCategory:
			w.Category = v
		case SignalCompensation:
			w.Compensation = v
		case SignalReputation:
			w.Reputation = v
		}
	}
	if w.total() == 0 {
		return DefaultWeights()
	}
	return w
}

func (w Weights) total() float64 {
	return w.Skills + w.Hours + w.Temporal + w.Category + w.Compensation + w.Reputation
}

// Map renders the weights keyed by signal name.
func (w Weights) Map() map[string]float64 {
	return map[string]float64{
		SignalSkills:       w.Skills,
		SignalHours:        w.Hours,
		SignalTemporal:     w.Temporal,
		SignalCategory:     w.Category,
		SignalCompensation: w.Compensation,
		SignalReputation:   w.Reputation,
	}
}
