package tone

import "sstvlive/sstv"

// Tee sends every tone to all of its emitters, in order.
type Tee []sstv.Emitter

func (t Tee) SetFrequency(hz uint32) {
	for _, e := range t {
		e.SetFrequency(hz)
	}
}

func (t Tee) Silence() {
	for _, e := range t {
		e.Silence()
	}
}
