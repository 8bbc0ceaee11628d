package canbus

import "encoding/binary"

// frameSize is sizeof(struct can_frame) on Linux: a 4-byte id, a 1-byte
// DLC, 3 bytes of kernel padding/reserved fields, then 8 bytes of data.
const frameSize = 16

const (
	dataOffset = 8
	maxDLC     = 8
)

// Frame is a fixed-layout CAN frame: an 11-bit standard id, a data length
// code in [0,8], and up to 8 bytes of payload.
type Frame struct {
	ID   uint32
	DLC  uint8
	Data [8]byte
}

// toWire packs Frame into the kernel's struct can_frame byte layout, little
// endian, matching onboard/canbus/msg_linux.go's toByteArray.
func (f Frame) toWire() []byte {
	raw := make([]byte, frameSize)
	binary.LittleEndian.PutUint32(raw[0:4], f.ID)
	raw[4] = f.DLC
	copy(raw[dataOffset:], f.Data[:f.DLC])
	return raw
}

// frameFromWire unpacks a kernel struct can_frame byte buffer into a Frame.
// Returns false if raw is shorter than one frame.
func frameFromWire(raw []byte) (Frame, bool) {
	if len(raw) < frameSize {
		return Frame{}, false
	}

	var f Frame
	f.ID = binary.LittleEndian.Uint32(raw[0:4]) & 0x7FF
	f.DLC = raw[4]
	if f.DLC > maxDLC {
		f.DLC = maxDLC
	}
	copy(f.Data[:], raw[dataOffset:dataOffset+maxDLC])
	return f, true
}

// Telemetry message types.
const (
	MsgTypeEffortCommand uint8 = 0x10
	MsgTypeTelemetry     uint8 = 0x13
)

// EncodeTelemetry builds the outbound DLC=6 telemetry frame: message type,
// encoder position (big-endian uint16, wrapped mod 2^16), speed in RPM*100
// (big-endian int16), and the latched effort (int8).
func EncodeTelemetry(canID uint32, encoderSteps int64, angularVelocityRadS float64, latchedControl int8) Frame {
	const radToRPM = 60.0 / (2.0 * 3.14159265358979323846)

	abs := encoderSteps
	if abs < 0 {
		abs = -abs
	}
	encoder16 := uint16(uint64(abs) & 0xFFFF)

	rpm := angularVelocityRadS * radToRPM
	speedScaled := int16(rpm * 100.0)

	f := Frame{ID: canID & 0x7FF, DLC: 6}
	f.Data[0] = MsgTypeTelemetry
	f.Data[1] = byte(encoder16 >> 8)
	f.Data[2] = byte(encoder16)
	f.Data[3] = byte(uint16(speedScaled) >> 8)
	f.Data[4] = byte(uint16(speedScaled))
	f.Data[5] = byte(latchedControl)
	return f
}

// DecodeEffortCommand extracts the signed effort from an inbound
// MsgTypeEffortCommand frame. ok is false if the frame is not a
// well-formed effort command (wrong DLC).
func DecodeEffortCommand(f Frame) (value int8, ok bool) {
	if f.DLC < 1 || f.Data[0] != MsgTypeEffortCommand {
		return 0, false
	}
	if f.DLC != 2 {
		return 0, false
	}
	return int8(f.Data[1]), true
}
