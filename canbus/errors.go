package canbus

import "fmt"

// InterfaceNotFoundError is returned by Open when the named network
// interface does not exist on the host.
type InterfaceNotFoundError struct {
	Interface string
	Cause     error
}

func (e InterfaceNotFoundError) Error() string {
	return fmt.Sprintf("canbus: interface %q not found: %v", e.Interface, e.Cause)
}

func (e InterfaceNotFoundError) Unwrap() error { return e.Cause }

// SocketCreateError is returned by Open when the kernel refuses to create
// the raw CAN socket.
type SocketCreateError struct {
	Cause error
}

func (e SocketCreateError) Error() string {
	return fmt.Sprintf("canbus: socket create failed: %v", e.Cause)
}

func (e SocketCreateError) Unwrap() error { return e.Cause }

// SocketClosedError is returned by Send, SetFilters and StartReceiving when
// the socket is not open.
type SocketClosedError struct {
	Interface string
}

func (e SocketClosedError) Error() string {
	return fmt.Sprintf("canbus: socket %q is closed", e.Interface)
}

// WriteShortError is returned by Send when the kernel accepts fewer than
// the full frame's bytes. Treated as a hard error; callers do not retry.
type WriteShortError struct {
	Wrote, Wanted int
}

func (e WriteShortError) Error() string {
	return fmt.Sprintf("canbus: short write: wrote %d of %d bytes", e.Wrote, e.Wanted)
}
