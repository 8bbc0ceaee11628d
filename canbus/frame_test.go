package canbus

import (
	"math"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEncodeTelemetry(t *testing.T) {
	Convey("CAN loopback telemetry scenario", t, func() {
		f := EncodeTelemetry(0x10, 1234, math.Pi/3.0, -42)

		So(f.ID, ShouldEqual, uint32(0x10))
		So(f.DLC, ShouldEqual, uint8(6))
		So(f.Data[:6], ShouldResemble, []byte{0x13, 0x04, 0xD2, 0x03, 0xE8, 0xD6})
	})
}

func TestDecodeEffortCommand(t *testing.T) {
	Convey("Command ingestion scenario", t, func() {
		f := Frame{ID: 0x10, DLC: 2}
		f.Data[0] = MsgTypeEffortCommand
		f.Data[1] = 0xCE // -50 as int8

		v, ok := DecodeEffortCommand(f)
		So(ok, ShouldBeTrue)
		So(v, ShouldEqual, int8(-50))
	})

	Convey("Wrong DLC is rejected", t, func() {
		f := Frame{ID: 0x10, DLC: 1}
		f.Data[0] = MsgTypeEffortCommand
		_, ok := DecodeEffortCommand(f)
		So(ok, ShouldBeFalse)
	})

	Convey("Unknown message type is rejected", t, func() {
		f := Frame{ID: 0x10, DLC: 2}
		f.Data[0] = 0x99
		_, ok := DecodeEffortCommand(f)
		So(ok, ShouldBeFalse)
	})
}

func TestFrameWireRoundTrip(t *testing.T) {
	Convey("A frame survives a wire round trip", t, func() {
		f := Frame{ID: 0x123, DLC: 5}
		copy(f.Data[:], []byte{1, 2, 3, 4, 5})

		raw := f.toWire()
		back, ok := frameFromWire(raw)

		So(ok, ShouldBeTrue)
		So(back.ID, ShouldEqual, f.ID)
		So(back.DLC, ShouldEqual, f.DLC)
		So(back.Data[:5], ShouldResemble, f.Data[:5])
	})

	Convey("Short buffers are rejected", t, func() {
		_, ok := frameFromWire(make([]byte, 4))
		So(ok, ShouldBeFalse)
	})
}
