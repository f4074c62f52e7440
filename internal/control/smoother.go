package control

// Smoother is a first-order exponential moving average over peak magnitudes.
// The zero value starts from silence.
type Smoother struct {
	state float64
}

// Apply folds in into the running average with coefficient alpha and returns
// the new average truncated toward zero. alpha 0 freezes the average, alpha 1
// passes input straight through.
func (s *Smoother) Apply(alpha float64, in uint32) uint32 {
	// explicit conversions keep the two products unfused
	s.state = float64((1-alpha)*s.state) + float64(alpha*float64(in))
	if s.state <= 0 {
		return 0
	}
	return uint32(s.state)
}

// State returns the unrounded average.
func (s *Smoother) State() float64 {
	return s.state
}
