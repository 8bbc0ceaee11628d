// Package servo implements the physics model for a single simulated DC
// servo: a first-order-lag motor driving an absolute rotary encoder.
package servo

import (
	"math"
	"sync/atomic"
)

// Motor is an idealized DC servo with first-order velocity dynamics. A
// control signal in [-MaxControlSignal, +MaxControlSignal] maps linearly to
// a target angular velocity; angular velocity chases that target with time
// constant Tau.
//
// ControlSignal is written from board control-latch goroutines and read by
// the stepper goroutine every tick, so it lives behind atomic load/store
// rather than a mutex: publishing a new value is a release, reading it in
// Step is an acquire.
type Motor struct {
	controlSignal int32 // atomic

	angularVelocity float64
	angularPosition float64

	maxAngularVelocity float64 // rad/s, derived from configured RPM
	maxControlSignal   int32
	tau                float64 // time constant, seconds
}

// MotorBuilder configures a Motor with factory defaults.
type MotorBuilder struct {
	maxVelocityRPM   float64
	maxControlSignal int32
	tau              float64
}

// NewMotorBuilder returns a builder pre-loaded with factory defaults.
func NewMotorBuilder() *MotorBuilder {
	return &MotorBuilder{
		maxVelocityRPM:   60.0,
		maxControlSignal: 100,
		tau:              0.15,
	}
}

func (b *MotorBuilder) MaxVelocityRPM(rpm float64) *MotorBuilder {
	b.maxVelocityRPM = rpm
	return b
}

func (b *MotorBuilder) MaxControlSignal(signal int32) *MotorBuilder {
	b.maxControlSignal = signal
	return b
}

func (b *MotorBuilder) TimeConstant(tau float64) *MotorBuilder {
	b.tau = tau
	return b
}

func (b *MotorBuilder) Build() *Motor {
	return &Motor{
		maxAngularVelocity: b.maxVelocityRPM * (2.0 * math.Pi / 60.0),
		maxControlSignal:   b.maxControlSignal,
		tau:                b.tau,
	}
}

// SetControlSignal stores clamp(s, ±MaxControlSignal). Never fails.
func (m *Motor) SetControlSignal(s int32) {
	if s > m.maxControlSignal {
		s = m.maxControlSignal
	} else if s < -m.maxControlSignal {
		s = -m.maxControlSignal
	}
	atomic.StoreInt32(&m.controlSignal, s)
}

// ControlSignal returns the currently latched control signal.
func (m *Motor) ControlSignal() int32 {
	return atomic.LoadInt32(&m.controlSignal)
}

// Step advances the motor's velocity and position by one tick of duration
// dt, using explicit Euler integration of dω/dt = (target - ω)/τ.
func (m *Motor) Step(dt float64) {
	control := atomic.LoadInt32(&m.controlSignal)

	targetVelocity := (float64(control) / float64(m.maxControlSignal)) * m.maxAngularVelocity

	errv := targetVelocity - m.angularVelocity
	m.angularVelocity += errv * dt / m.tau

	if m.angularVelocity > m.maxAngularVelocity {
		m.angularVelocity = m.maxAngularVelocity
	} else if m.angularVelocity < -m.maxAngularVelocity {
		m.angularVelocity = -m.maxAngularVelocity
	}

	m.angularPosition += m.angularVelocity * dt
}

func (m *Motor) AngularVelocity() float64 { return m.angularVelocity }
func (m *Motor) AngularPosition() float64 { return m.angularPosition }
func (m *Motor) MaxAngularVelocity() float64 { return m.maxAngularVelocity }
func (m *Motor) MaxControlSignal() int32     { return m.maxControlSignal }
func (m *Motor) TimeConstant() float64       { return m.tau }

// Reset restores the motor to its power-on state.
func (m *Motor) Reset() {
	atomic.StoreInt32(&m.controlSignal, 0)
	m.angularVelocity = 0
	m.angularPosition = 0
}
