package board

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/cansim/fleetsim/canbus"
	"github.com/cansim/fleetsim/servo"
)

func newTestServo() *servo.Servo {
	return servo.NewServoBuilder("test").
		MaxVelocityRPM(60).
		MaxControlSignal(100).
		TimeConstant(0.15).
		EncoderBitResolution(12).
		Build()
}

func TestBoardLifecycle(t *testing.T) {
	Convey("A board with no CAN interface available starts in degraded mode", t, func() {
		sv := newTestServo()
		b := New(sv, 0x10, "does-not-exist0")

		b.Start()
		defer b.Stop()

		So(b.IsRunning(), ShouldBeTrue)
		time.Sleep(20 * time.Millisecond)

		Convey("its tasks still run and apply the latched control to the servo", func() {
			b.InjectEffortCommand(80)
			time.Sleep(20 * time.Millisecond)
			So(sv.Motor().ControlSignal(), ShouldEqual, int32(80))
		})
	})

	Convey("Starting a board twice is a no-op", t, func() {
		sv := newTestServo()
		b := New(sv, 0x10, "does-not-exist0")
		b.Start()
		defer b.Stop()
		b.Start()
		So(b.IsRunning(), ShouldBeTrue)
	})

	Convey("Stopping a board twice is a no-op and joins promptly", t, func() {
		sv := newTestServo()
		b := New(sv, 0x10, "does-not-exist0")
		b.Start()
		time.Sleep(10 * time.Millisecond)

		done := make(chan struct{})
		go func() {
			b.Stop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
			t.Fatal("Stop did not return promptly")
		}

		So(b.IsRunning(), ShouldBeFalse)
		b.Stop() // idempotent
	})

	Convey("Individual tasks can be disabled before Start", t, func() {
		sv := newTestServo()
		b := New(sv, 0x10, "does-not-exist0")
		b.SetTaskEnabled("encoder_read", false)

		b.Start()
		defer b.Stop()

		sv.SetControlSignal(100)
		time.Sleep(30 * time.Millisecond)

		So(b.EncoderSteps(), ShouldEqual, 0)
	})
}

func TestBoardControlUpdateSentinel(t *testing.T) {
	Convey("The ±1 sentinel resolves to a zero control signal at the next control_update tick", t, func() {
		sv := newTestServo()
		b := New(sv, 0x10, "does-not-exist0")

		sv.SetControlSignal(50)
		b.latchedControl.Store(1)
		b.controlUpdateTask()
		So(sv.Motor().ControlSignal(), ShouldEqual, 0)

		sv.SetControlSignal(50)
		b.latchedControl.Store(-1)
		b.controlUpdateTask()
		So(sv.Motor().ControlSignal(), ShouldEqual, 0)
	})

	Convey("A non-sentinel latched value passes through unchanged", t, func() {
		sv := newTestServo()
		b := New(sv, 0x10, "does-not-exist0")

		b.latchedControl.Store(42)
		b.controlUpdateTask()
		So(sv.Motor().ControlSignal(), ShouldEqual, 42)
	})
}

func TestBoardRXDispatch(t *testing.T) {
	Convey("An effort command frame latches its decoded value", t, func() {
		sv := newTestServo()
		b := New(sv, 0x10, "does-not-exist0")

		var effort int8 = -50
		f := canbus.Frame{ID: 0x10, DLC: 2}
		f.Data[0], f.Data[1] = canbus.MsgTypeEffortCommand, byte(effort)
		b.onFrame(f)

		So(b.ControlSignal(), ShouldEqual, int32(-50))
	})

	Convey("A malformed effort command frame is dropped without latching", t, func() {
		sv := newTestServo()
		b := New(sv, 0x10, "does-not-exist0")
		b.latchedControl.Store(7)

		f := canbus.Frame{ID: 0x10, DLC: 1}
		f.Data[0] = canbus.MsgTypeEffortCommand
		b.onFrame(f)

		So(b.ControlSignal(), ShouldEqual, int32(7))
	})

	Convey("An unknown message type does not panic and is logged only once", t, func() {
		sv := newTestServo()
		b := New(sv, 0x10, "does-not-exist0")
		var logged bytes.Buffer
		b.logger = log.New(&logged, "", 0)

		f := canbus.Frame{ID: 0x10, DLC: 1}
		f.Data[0] = 0xFF

		b.onFrame(f)
		b.onFrame(f)
		b.onFrame(f)

		So(strings.Count(logged.String(), "unknown message type"), ShouldEqual, 1)
	})

	Convey("An empty frame is ignored", t, func() {
		sv := newTestServo()
		b := New(sv, 0x10, "does-not-exist0")
		b.onFrame(canbus.Frame{ID: 0x10, DLC: 0})
		So(b.ControlSignal(), ShouldEqual, int32(0))
	})
}

func TestBoardInjectEffortCommand(t *testing.T) {
	Convey("InjectEffortCommand latches a value without a real CAN frame", t, func() {
		sv := newTestServo()
		b := New(sv, 0x10, "does-not-exist0")
		b.InjectEffortCommand(-77)
		So(b.ControlSignal(), ShouldEqual, int32(-77))
	})
}

func TestBoardCanID(t *testing.T) {
	Convey("CanID is masked to 11 bits", t, func() {
		sv := newTestServo()
		b := New(sv, 0x1800, "does-not-exist0")
		So(b.CanID(), ShouldEqual, uint32(0))

		b2 := New(sv, 0x1810, "does-not-exist0")
		So(b2.CanID(), ShouldEqual, uint32(0x10))
	})
}
