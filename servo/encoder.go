package servo

import "math"

// Encoder is an absolute rotary encoder with 2^Bits discrete positions per
// revolution. It carries a fractional-step accumulator so slow motion is
// not lost to per-tick rounding, and wraps PositionSteps into [0, MaxSteps)
// since an absolute encoder's reading is only meaningful modulo one
// revolution.
type Encoder struct {
	positionSteps   int64
	fractionalSteps float64

	bits               uint
	directionInverted  bool
	maxSteps           int64
	stepsPerRadian     float64
	radiansPerStep     float64
}

// EncoderBuilder configures an Encoder with factory defaults.
type EncoderBuilder struct {
	bits              uint
	directionInverted bool
}

func NewEncoderBuilder() *EncoderBuilder {
	return &EncoderBuilder{bits: 18, directionInverted: false}
}

func (b *EncoderBuilder) BitResolution(bits uint) *EncoderBuilder {
	b.bits = bits
	return b
}

func (b *EncoderBuilder) DirectionInverted(inverted bool) *EncoderBuilder {
	b.directionInverted = inverted
	return b
}

func (b *EncoderBuilder) Build() *Encoder {
	maxSteps := int64(1) << b.bits
	return &Encoder{
		bits:              b.bits,
		directionInverted: b.directionInverted,
		maxSteps:          maxSteps,
		stepsPerRadian:    float64(maxSteps) / (2.0 * math.Pi),
		radiansPerStep:    (2.0 * math.Pi) / float64(maxSteps),
	}
}

// Step advances the encoder by one tick: angularVelocity*dt radians of
// rotation (negated first if DirectionInverted), accumulated into the
// fractional-step remainder and flushed into PositionSteps whenever a
// whole step has accrued.
func (e *Encoder) Step(angularVelocity, dt float64) {
	deltaRad := angularVelocity * dt
	if e.directionInverted {
		deltaRad = -deltaRad
	}

	e.fractionalSteps += deltaRad * e.stepsPerRadian

	whole := math.Trunc(e.fractionalSteps)
	if whole != 0 {
		e.positionSteps += int64(whole)
		e.fractionalSteps -= whole

		e.positionSteps %= e.maxSteps
		if e.positionSteps < 0 {
			e.positionSteps += e.maxSteps
		}
	}
}

func (e *Encoder) PositionSteps() int64 { return e.positionSteps }

func (e *Encoder) PositionRadians() float64 {
	return float64(e.positionSteps) * e.radiansPerStep
}

func (e *Encoder) FractionalSteps() float64 { return e.fractionalSteps }
func (e *Encoder) Bits() uint               { return e.bits }
func (e *Encoder) MaxSteps() int64          { return e.maxSteps }
func (e *Encoder) DirectionInverted() bool  { return e.directionInverted }
func (e *Encoder) StepsPerRadian() float64  { return e.stepsPerRadian }
func (e *Encoder) RadiansPerStep() float64  { return e.radiansPerStep }

// Reset restores the encoder to its power-on state.
func (e *Encoder) Reset() {
	e.positionSteps = 0
	e.fractionalSteps = 0
}
