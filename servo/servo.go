package servo

// Servo composes one Motor and one Encoder, owning both exclusively. It is
// not safe for unsynchronized concurrent use: the simulation stepper is the
// only goroutine that calls Step, and control signal updates reach the
// Motor through its own atomic field rather than through the Servo.
type Servo struct {
	name   string
	motor  *Motor
	encoder *Encoder
}

// ServoBuilder assembles a Servo from a MotorBuilder and EncoderBuilder.
type ServoBuilder struct {
	name    string
	motor   *MotorBuilder
	encoder *EncoderBuilder
}

func NewServoBuilder(name string) *ServoBuilder {
	return &ServoBuilder{
		name:    name,
		motor:   NewMotorBuilder(),
		encoder: NewEncoderBuilder(),
	}
}

func (b *ServoBuilder) MaxVelocityRPM(rpm float64) *ServoBuilder {
	b.motor.MaxVelocityRPM(rpm)
	return b
}

func (b *ServoBuilder) MaxControlSignal(signal int32) *ServoBuilder {
	b.motor.MaxControlSignal(signal)
	return b
}

func (b *ServoBuilder) TimeConstant(tau float64) *ServoBuilder {
	b.motor.TimeConstant(tau)
	return b
}

func (b *ServoBuilder) EncoderBitResolution(bits uint) *ServoBuilder {
	b.encoder.BitResolution(bits)
	return b
}

func (b *ServoBuilder) EncoderDirectionInverted(inverted bool) *ServoBuilder {
	b.encoder.DirectionInverted(inverted)
	return b
}

func (b *ServoBuilder) Build() *Servo {
	return &Servo{
		name:    b.name,
		motor:   b.motor.Build(),
		encoder: b.encoder.Build(),
	}
}

func (s *Servo) Name() string       { return s.name }
func (s *Servo) Motor() *Motor      { return s.motor }
func (s *Servo) Encoder() *Encoder  { return s.encoder }

// SetControlSignal forwards to the owned Motor.
func (s *Servo) SetControlSignal(signal int32) {
	s.motor.SetControlSignal(signal)
}

// Step advances the motor first, then the encoder using the motor's
// post-step velocity, so the encoder always integrates the velocity that
// was actually reached this tick.
func (s *Servo) Step(dt float64) {
	s.motor.Step(dt)
	s.encoder.Step(s.motor.AngularVelocity(), dt)
}

// Reset restores both the motor and the encoder to their power-on state.
func (s *Servo) Reset() {
	s.motor.Reset()
	s.encoder.Reset()
}
