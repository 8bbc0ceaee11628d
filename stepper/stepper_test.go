package stepper

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/cansim/fleetsim/servo"
)

func TestStepper(t *testing.T) {
	Convey("A stepper advances every registered servo", t, func() {
		st := New(1000)
		s1 := servo.NewServoBuilder("a").Build()
		s2 := servo.NewServoBuilder("b").Build()
		st.Add(s1)
		st.Add(s2)

		s1.SetControlSignal(50)
		s2.SetControlSignal(-50)

		st.Start()
		time.Sleep(30 * time.Millisecond)
		st.Stop()

		So(s1.Motor().ControlSignal(), ShouldEqual, 0)
		So(s2.Motor().ControlSignal(), ShouldEqual, 0)

		// after Stop returns, Step is no longer invoked: velocity must be
		// stable even though it was not necessarily driven to zero.
		v1, v2 := s1.Motor().AngularVelocity(), s2.Motor().AngularVelocity()
		time.Sleep(10 * time.Millisecond)
		So(s1.Motor().AngularVelocity(), ShouldEqual, v1)
		So(s2.Motor().AngularVelocity(), ShouldEqual, v2)
	})

	Convey("Stop is idempotent and Add after Start panics", t, func() {
		st := New(1000)
		s1 := servo.NewServoBuilder("a").Build()
		st.Add(s1)
		st.Start()
		time.Sleep(5 * time.Millisecond)
		st.Stop()
		st.Stop()

		So(func() { st.Add(servo.NewServoBuilder("b").Build()) }, ShouldPanic)
	})

	Convey("Default frequency is used when none supplied", t, func() {
		st := New(0)
		So(st.Frequency(), ShouldEqual, DefaultFrequencyHz)
	})
}
