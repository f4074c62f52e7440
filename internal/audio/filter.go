package audio

// BlockFilter rewrites a block of S16_LE frames in place.
type BlockFilter interface {
	Process(block []byte)
	// Reset drops history carried between blocks.
	Reset()
}

// filtered runs every successful read through a BlockFilter.
type filtered struct {
	Stream
	filter BlockFilter
}

// Filter returns s with f applied to each block it reads. The filter is reset
// after a recovery, since the frames either side of the gap are unrelated.
func Filter(s Stream, f BlockFilter) Stream {
	return &filtered{Stream: s, filter: f}
}

func (s *filtered) Read(block []byte) error {
	if err := s.Stream.Read(block); err != nil {
		return err
	}
	s.filter.Process(block)
	return nil
}

func (s *filtered) Recover(err error) error {
	if rerr := s.Stream.Recover(err); rerr != nil {
		return rerr
	}
	s.filter.Reset()
	return nil
}
