package fleet

import (
	"log"
	"os"

	"github.com/cansim/fleetsim/board"
	"github.com/cansim/fleetsim/servo"
	"github.com/cansim/fleetsim/stepper"
)

// EmptyFleetError is returned by New when a config carries zero servo
// definitions; the orchestrator refuses to start rather than run a
// no-op stepper.
type EmptyFleetError struct{}

func (EmptyFleetError) Error() string { return "fleet: refusing to start with zero servos configured" }

// Fleet owns one Stepper and one Board per configured servo, and
// sequences their lifetimes together.
type Fleet struct {
	stepper *stepper.Stepper
	boards  []*board.Board
	logger  *log.Logger
}

// New builds a Fleet from cfg: one Servo+Board per entry, all added to a
// single shared Stepper running at stepperFrequencyHz (or the env
// override in cfg.Env, if set and nonzero).
func New(cfg FleetConfig, stepperFrequencyHz float64) (*Fleet, error) {
	if len(cfg.Servos) == 0 {
		return nil, EmptyFleetError{}
	}

	freq := stepperFrequencyHz
	if cfg.Env.StepperFrequencyHz > 0 {
		freq = cfg.Env.StepperFrequencyHz
	}

	st := stepper.New(freq)
	boards := make([]*board.Board, 0, len(cfg.Servos))

	for _, sc := range cfg.Servos {
		sv := servo.NewServoBuilder(sc.Name).
			MaxVelocityRPM(sc.MaxVelocityRPM).
			MaxControlSignal(sc.MaxControlSignal).
			TimeConstant(sc.TimeConstant).
			EncoderBitResolution(sc.EncoderBitResolution).
			EncoderDirectionInverted(sc.EncoderDirectionInverted).
			Build()

		iface := sc.CanInterface
		if cfg.Env.DefaultCanInterface != "" && sc.CanInterface == DefaultServoConfig().CanInterface {
			iface = cfg.Env.DefaultCanInterface
		}

		st.Add(sv)
		boards = append(boards, board.New(sv, sc.CanID, iface))
	}

	return &Fleet{
		stepper: st,
		boards:  boards,
		logger:  log.New(os.Stdout, "fleet: ", log.LstdFlags),
	}, nil
}

// Start starts the stepper first so every servo is being integrated
// before any board's tasks can observe it, then starts each board in
// construction order.
func (f *Fleet) Start() {
	f.stepper.Start()
	for _, b := range f.boards {
		b.Start()
	}
	f.logger.Printf("fleet started: %d board(s) on stepper at %.1f Hz", len(f.boards), f.stepper.Frequency())
}

// Stop stops boards in reverse construction order, then the stepper, so
// no board outlives the servo it drives.
func (f *Fleet) Stop() {
	for i := len(f.boards) - 1; i >= 0; i-- {
		f.boards[i].Stop()
	}
	f.stepper.Stop()
	f.logger.Printf("fleet stopped")
}

// Boards returns the fleet's boards in construction order.
func (f *Fleet) Boards() []*board.Board { return f.boards }

// Stepper returns the fleet's shared physics stepper.
func (f *Fleet) Stepper() *stepper.Stepper { return f.stepper }
