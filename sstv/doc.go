// Package sstv encodes RGB565 pictures as PD120 slow-scan television.
//
// A Transmitter sends the calibration header and then each line pair of
// the picture as a sync pulse, a porch, and four scan segments (Y of the
// first row, averaged R-Y and B-Y, Y of the second row). Fixed pulses are
// held against a Clock; scan segment pixels are paced by a periodic Timer
// whose tick handler is the only writer of the segment state.
//
// Tones go to an Emitter, which may be a sound card, a WAV file, an SDR or
// a recorder used by tests and the decoder.
package sstv
