package canbus

import "time"

// Filter is an id+mask pair configuring which frames the kernel delivers
// to a socket.
type Filter struct {
	ID   uint32
	Mask uint32
}

// CANSFFMask is the standard-frame id mask, matching CAN_SFF_MASK in
// linux/can.h.
const CANSFFMask uint32 = 0x7FF

// ReceiveCallback is invoked for every frame accepted by the installed
// filters while receiving is active.
type ReceiveCallback func(Frame)

// Socket is the platform-independent contract a board depends on; New
// picks the Linux raw-SocketCAN implementation at build time.
type Socket interface {
	Open() error
	Close()
	IsOpen() bool
	InterfaceName() string

	Send(f Frame) error
	SetFilters(filters []Filter) error

	StartReceiving(cb ReceiveCallback) error
	StopReceiving()
	IsReceiving() bool

	ReceiveOne(timeout time.Duration) (Frame, bool)
}
