// Package board emulates the per-servo microcontroller firmware: three
// cooperating periodic tasks (encoder sampling, control latching, CAN
// TX) plus a CAN RX dispatcher, all driven off one borrowed Servo.
package board

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cansim/fleetsim/canbus"
	"github.com/cansim/fleetsim/periodic"
	"github.com/cansim/fleetsim/servo"
)

// Default task periods.
const (
	EncoderReadFrequencyHz   = 300.0
	ControlUpdateFrequencyHz = 300.0
	CANTransmitFrequencyHz   = 100.0
)

// stopWithoutHold is the CAN-protocol sentinel for "stop without position
// hold"; ±1 carry this meaning rather than a literal effort of 1 or -1.
const stopWithoutHold = 1

// Board is a firmware emulator bound to exactly one Servo. Board does not
// own the Servo: it only borrows it, and the Board's lifetime must not
// outlive the Servo's.
type Board struct {
	servo *servo.Servo
	sock  canbus.Socket

	canID uint32

	running atomic.Bool
	taskWg  sync.WaitGroup

	cachedEncoderSteps atomic.Int64
	latchedControl     atomic.Int32

	unknownTypeLogged sync.Map // uint8 -> *sync.Once

	logger *log.Logger

	tasks []taskSpec
}

type taskSpec struct {
	name    string
	period  time.Duration
	fn      func()
	enabled bool
}

// New constructs a Board bound to sv, communicating on the given CAN
// interface using canID for both its filter and its outbound frames. The
// socket is not opened until Start.
func New(sv *servo.Servo, canID uint32, canInterface string) *Board {
	b := &Board{
		servo:  sv,
		sock:   canbus.New(canInterface),
		canID:  canID & canbus.CANSFFMask,
		logger: log.New(log.Default().Writer(), "", log.Default().Flags()),
	}
	// TODO: control == 0 coasts to zero rather than truly holding position.
	b.latchedControl.Store(0)

	b.tasks = []taskSpec{
		{name: "encoder_read", period: hzToPeriod(EncoderReadFrequencyHz), fn: b.encoderReadTask, enabled: true},
		{name: "control_update", period: hzToPeriod(ControlUpdateFrequencyHz), fn: b.controlUpdateTask, enabled: true},
		{name: "can_transmit", period: hzToPeriod(CANTransmitFrequencyHz), fn: b.canTransmitTask, enabled: true},
	}
	return b
}

func hzToPeriod(hz float64) time.Duration {
	return time.Duration(float64(time.Second) / hz)
}

// CanID returns the board's 11-bit CAN id.
func (b *Board) CanID() uint32 { return b.canID }

// Servo returns the board's borrowed Servo.
func (b *Board) Servo() *servo.Servo { return b.servo }

// IsRunning reports whether the board has been started and not yet
// stopped.
func (b *Board) IsRunning() bool { return b.running.Load() }

// EncoderSteps returns the last value sampled by the encoder_read task.
func (b *Board) EncoderSteps() int64 { return b.cachedEncoderSteps.Load() }

// ControlSignal returns the last value latched from an inbound CAN frame
// (not yet sentinel-resolved — see controlUpdateTask).
func (b *Board) ControlSignal() int32 { return b.latchedControl.Load() }

// InjectEffortCommand latches value as if it had arrived in a well-formed
// effort command frame, without requiring a real CAN peer. Used by the
// terminal CLI to drive a board directly.
func (b *Board) InjectEffortCommand(value int8) {
	b.latchedControl.Store(int32(value))
}

// SetTaskEnabled toggles an individual task by name before Start.
func (b *Board) SetTaskEnabled(name string, enabled bool) {
	for i := range b.tasks {
		if b.tasks[i].name == name {
			b.tasks[i].enabled = enabled
			return
		}
	}
}

// Start opens the CAN socket (continuing in degraded, no-CAN mode on
// failure), installs the board's filter, starts the RX dispatcher, and
// spawns one goroutine per enabled task. Calling Start twice is a no-op.
func (b *Board) Start() {
	if b.running.Load() {
		return
	}

	if err := b.sock.Open(); err != nil {
		b.logger.Printf("board[0x%03X]: failed to open CAN socket, continuing in degraded mode: %v", b.canID, err)
	} else {
		filter := []canbus.Filter{{ID: b.canID, Mask: canbus.CANSFFMask}}
		if err := b.sock.SetFilters(filter); err != nil {
			b.logger.Printf("board[0x%03X]: failed to set CAN filter: %v", b.canID, err)
		}

		if err := b.sock.StartReceiving(b.onFrame); err != nil {
			b.logger.Printf("board[0x%03X]: failed to start receiving: %v", b.canID, err)
		}
	}

	b.running.Store(true)

	for _, t := range b.tasks {
		if !t.enabled {
			continue
		}
		t := t
		b.taskWg.Add(1)
		go func() {
			defer b.taskWg.Done()
			periodic.Run(&b.running, t.period, t.fn)
		}()
	}
}

// Stop clears running, closes the CAN socket (which stops its own RX
// thread), and joins every task goroutine. Idempotent.
func (b *Board) Stop() {
	if !b.running.Load() {
		return
	}

	b.running.Store(false)
	b.sock.Close()
	b.taskWg.Wait()
}

// encoderReadTask snapshots the servo's encoder position into the cache
// shared with canTransmitTask. Written only here, read only by
// canTransmitTask.
func (b *Board) encoderReadTask() {
	b.cachedEncoderSteps.Store(b.servo.Encoder().PositionSteps())
}

// controlUpdateTask reads the latched control value and applies it to the
// servo, resolving the ±1 "stop without hold" sentinel to zero. Values
// other than the sentinel are applied directly.
func (b *Board) controlUpdateTask() {
	v := b.latchedControl.Load()
	if v == stopWithoutHold || v == -stopWithoutHold {
		b.servo.SetControlSignal(0)
		return
	}
	b.servo.SetControlSignal(v)
}

// canTransmitTask builds and sends the outbound telemetry frame. No-ops
// silently while the socket is closed.
func (b *Board) canTransmitTask() {
	if !b.sock.IsOpen() {
		return
	}

	frame := canbus.EncodeTelemetry(
		b.canID,
		b.cachedEncoderSteps.Load(),
		b.servo.Motor().AngularVelocity(), // TODO: derive from encoder finite differences instead of reading the motor directly.
		int8(b.latchedControl.Load()),
	)

	if err := b.sock.Send(frame); err != nil {
		b.logger.Printf("board[0x%03X]: telemetry send failed: %v", b.canID, err)
	}
}

// onFrame is the CAN RX dispatch callback: decode effort commands, drop
// anything malformed silently, and log unknown message types once per
// type per board.
func (b *Board) onFrame(f canbus.Frame) {
	if f.DLC < 1 {
		return
	}

	switch f.Data[0] {
	case canbus.MsgTypeEffortCommand:
		if v, ok := canbus.DecodeEffortCommand(f); ok {
			b.latchedControl.Store(int32(v))
		}

	default:
		b.warnUnknownOnce(f.Data[0])
	}
}

func (b *Board) warnUnknownOnce(msgType uint8) {
	onceIface, _ := b.unknownTypeLogged.LoadOrStore(msgType, &sync.Once{})
	onceIface.(*sync.Once).Do(func() {
		b.logger.Printf("board[0x%03X]: unknown message type 0x%02X", b.canID, msgType)
	})
}
