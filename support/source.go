package support

import "math/rand"

// InteractionSource feeds chat-interaction events into the scoring engine.
// The engine polls once per tick; each observed event is worth a fixed point
// bonus. Implementations range from the simulated Bernoulli draw used by the
// dashboard demo to a real Twitch chat feed (see the chat package).
type InteractionSource interface {
	// Poll reports whether an interaction event occurred since the last call.
	// It must never block.
	Poll() bool
}

// SimulatedSource draws an interaction with fixed probability per poll.
// It stands in for real chat-activity detection.
type SimulatedSource struct {
	Probability float64
	rng         *rand.Rand
}

// NewSimulatedSource returns a source drawing with probability p per tick.
// A non-positive p disables events; seed fixes the draw sequence for tests.
func NewSimulatedSource(p float64, seed int64) *SimulatedSource {
	//nolint:gosec // G404: simulation draw, not security sensitive
	return &SimulatedSource{Probability: p, rng: rand.New(rand.NewSource(seed))}
}

func (s *SimulatedSource) Poll() bool {
	if s.Probability <= 0 {
		return false
	}
	return s.rng.Float64() < s.Probability
}

// sourceFunc adapts a plain function to an InteractionSource.
type sourceFunc func() bool

func (f sourceFunc) Poll() bool { return f() }

// SourceFunc wraps fn as an InteractionSource.
func SourceFunc(fn func() bool) InteractionSource { return sourceFunc(fn) }
