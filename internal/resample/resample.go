// Package resample implements the linear-interpolation sample rate converter
// used by the capture pipeline.
//
// The carry-buffer/fractional-position recurrence here is SPEC_FULL.md's own
// §4.4 contract, not a borrowed third-party algorithm: no example in this
// codebase's lineage implements this exact interpolation, so it is written
// directly from the spec rather than grounded on an external resampling
// library (see DESIGN.md).
package resample

// LinearResampler converts an unbounded stream of input samples at rate In
// to an output stream at rate Out using linear interpolation. A zero value
// is not usable; construct with New.
type LinearResampler struct {
	ratio    float64 // In / Out
	carry    []float32
	position float64
}

// New builds a resampler converting from inputRate to outputRate. Both rates
// must be positive.
func New(inputRate, outputRate int) *LinearResampler {
	return &LinearResampler{ratio: float64(inputRate) / float64(outputRate)}
}

// Passthrough reports whether this resampler degenerates to a straight copy.
func (r *LinearResampler) Passthrough() bool {
	return r.ratio == 1
}

// Push appends input samples and returns as many output samples as can be
// produced from the carry buffer without running past its end. Samples are
// never emitted twice, and the carry retains only what a future call needs.
func (r *LinearResampler) Push(input []float32) []float32 {
	if r.Passthrough() {
		out := make([]float32, len(input))
		copy(out, input)
		return out
	}

	r.carry = append(r.carry, input...)

	var out []float32
	for r.position+1 < float64(len(r.carry)) {
		idx := int(r.position)
		frac := float32(r.position - float64(idx))
		sample := r.carry[idx] + frac*(r.carry[idx+1]-r.carry[idx])
		out = append(out, sample)
		r.position += r.ratio
	}

	drop := int(r.position)
	if drop > 0 {
		if drop > len(r.carry) {
			drop = len(r.carry)
		}
		r.carry = append([]float32(nil), r.carry[drop:]...)
		r.position -= float64(drop)
	}

	return out
}
