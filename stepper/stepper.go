// Package stepper drives every registered servo's physics at a fixed,
// drift-free tick rate on a single goroutine.
package stepper

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cansim/fleetsim/periodic"
	"github.com/cansim/fleetsim/servo"
)

// DefaultFrequencyHz is the nominal simulation rate used when no explicit
// frequency is requested.
const DefaultFrequencyHz = 20000.0

// Stepper owns an ordered collection of servos and advances all of them
// once per tick on its own goroutine. Servos must be added before Start;
// after Start the collection is immutable.
type Stepper struct {
	servos    []*servo.Servo
	frequency float64

	running atomic.Bool
	wg      sync.WaitGroup
	started bool
}

// New returns a Stepper running at the given tick frequency. A frequency of
// 0 selects DefaultFrequencyHz.
func New(frequencyHz float64) *Stepper {
	if frequencyHz <= 0 {
		frequencyHz = DefaultFrequencyHz
	}
	return &Stepper{frequency: frequencyHz}
}

// Add registers a servo to be driven by the stepper. Must be called before
// Start.
func (s *Stepper) Add(sv *servo.Servo) {
	if s.started {
		panic("stepper: Add called after Start")
	}
	s.servos = append(s.servos, sv)
}

// Frequency returns the stepper's configured tick rate in Hz.
func (s *Stepper) Frequency() float64 { return s.frequency }

// Dt returns the tick duration, 1/Frequency.
func (s *Stepper) Dt() float64 { return 1.0 / s.frequency }

// Start spawns the fixed-rate stepping loop on its own goroutine.
func (s *Stepper) Start() {
	if s.running.Load() {
		return
	}
	s.started = true
	s.running.Store(true)

	period := time.Duration(float64(time.Second) / s.frequency)
	dt := s.Dt()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		periodic.Run(&s.running, period, func() {
			for _, sv := range s.servos {
				sv.Step(dt)
			}
		})
	}()
}

// Stop clears the running flag, zeroes every servo's control signal, and
// joins the stepping goroutine. Idempotent.
func (s *Stepper) Stop() {
	if !s.running.Load() {
		return
	}
	s.running.Store(false)
	for _, sv := range s.servos {
		sv.SetControlSignal(0)
	}
	s.wg.Wait()
}

// ServoCount returns the number of registered servos.
func (s *Stepper) ServoCount() int { return len(s.servos) }
