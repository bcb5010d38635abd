package sstv

// sendLinePair transmits rows 2k and 2k+1: sync, porch, Y of the first
// row, the averaged R-Y and B-Y of both rows, then Y of the second row.
// Receivers depend on exactly this order.
func (t *Transmitter) sendLinePair(k int) error {
	odd := 2 * k
	even := odd + 1

	t.pulse(Pulse{FreqSync, t.mode.SyncDuration})
	t.pulse(Pulse{FreqBlack, t.mode.PorchDuration})

	steps := [...]struct {
		kind SegmentType
		run  func() error
	}{
		{SegmentLuminance, func() error { return t.seg.runLuminance(odd) }},
		{SegmentRedDifference, func() error { return t.seg.runDifference(SegmentRedDifference, odd, even) }},
		{SegmentBlueDifference, func() error { return t.seg.runDifference(SegmentBlueDifference, odd, even) }},
		{SegmentLuminance, func() error { return t.seg.runLuminance(even) }},
	}
	for _, s := range steps {
		start := t.clock.Now()
		if err := s.run(); err != nil {
			return err
		}
		if t.observer != nil {
			t.observer.SegmentDone(s.kind, t.clock.Now()-start)
		}
	}

	if t.observer != nil {
		t.observer.LinePairDone(k)
	}
	return nil
}
