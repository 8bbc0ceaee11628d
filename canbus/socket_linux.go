//go:build linux

package canbus

import (
	"encoding/binary"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// pollTimeoutMs bounds how long the receive loop blocks in poll(2) before
// re-checking the receiving flag, and therefore bounds shutdown latency.
const pollTimeoutMs = 10

// linuxSocket is a raw AF_CAN/SOCK_RAW SocketCAN endpoint moving through a
// Closed->Open->Receiving state machine.
type linuxSocket struct {
	interfaceName string

	mu   sync.Mutex // guards fd/open transitions so the rx loop never observes a torn fd
	fd   int
	open bool

	receiving atomic.Bool
	rxWg      sync.WaitGroup
	callback  ReceiveCallback
}

// New returns a Socket bound to the given SocketCAN interface name (not yet
// open).
func New(interfaceName string) Socket {
	return &linuxSocket{interfaceName: interfaceName, fd: -1}
}

func (s *linuxSocket) InterfaceName() string { return s.interfaceName }

func (s *linuxSocket) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Open creates a raw CAN socket, resolves the interface name to an index,
// and binds to it. Idempotent: re-opening an already-open socket is a
// no-op.
func (s *linuxSocket) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return nil
	}

	iface, err := net.InterfaceByName(s.interfaceName)
	if err != nil {
		return InterfaceNotFoundError{Interface: s.interfaceName, Cause: err}
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return SocketCreateError{Cause: err}
	}

	addr := &unix.SockaddrCAN{Ifindex: iface.Index}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return SocketCreateError{Cause: err}
	}

	s.fd = fd
	s.open = true
	return nil
}

// Close stops the receive thread first, then closes the file descriptor.
// Idempotent.
func (s *linuxSocket) Close() {
	s.StopReceiving()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return
	}
	unix.Close(s.fd)
	s.fd = -1
	s.open = false
}

// Send writes exactly one frame.
func (s *linuxSocket) Send(f Frame) error {
	s.mu.Lock()
	fd, open := s.fd, s.open
	s.mu.Unlock()

	if !open {
		return SocketClosedError{Interface: s.interfaceName}
	}

	raw := f.toWire()
	n, err := unix.Write(fd, raw)
	if err != nil {
		return err
	}
	if n != len(raw) {
		return WriteShortError{Wrote: n, Wanted: len(raw)}
	}
	return nil
}

// SetFilters installs the kernel-side id+mask filter list. Must be called
// while open, normally before StartReceiving.
func (s *linuxSocket) SetFilters(filters []Filter) error {
	s.mu.Lock()
	fd, open := s.fd, s.open
	s.mu.Unlock()

	if !open {
		return SocketClosedError{Interface: s.interfaceName}
	}

	buf := make([]byte, 8*len(filters))
	for i, f := range filters {
		binary.LittleEndian.PutUint32(buf[i*8:i*8+4], f.ID)
		binary.LittleEndian.PutUint32(buf[i*8+4:i*8+8], f.Mask)
	}

	return unix.SetsockoptString(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, string(buf))
}

// StartReceiving spawns an RX thread looping poll+read, invoking cb for
// every frame received while receiving is still true.
func (s *linuxSocket) StartReceiving(cb ReceiveCallback) error {
	s.mu.Lock()
	open := s.open
	s.mu.Unlock()
	if !open {
		return SocketClosedError{Interface: s.interfaceName}
	}

	if s.receiving.Load() {
		return nil
	}

	s.callback = cb
	s.receiving.Store(true)

	s.rxWg.Add(1)
	go s.receiveLoop()
	return nil
}

func (s *linuxSocket) receiveLoop() {
	defer s.rxWg.Done()

	for s.receiving.Load() {
		s.mu.Lock()
		fd, open := s.fd, s.open
		s.mu.Unlock()
		if !open {
			return
		}

		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(pfd, pollTimeoutMs)
		if err != nil || n <= 0 {
			continue
		}

		raw := make([]byte, frameSize)
		rn, err := unix.Read(fd, raw)
		if err != nil || rn < frameSize {
			continue
		}

		// re-check after the blocking read: StopReceiving may have fired
		// while we were asleep in poll/read, and the ordering guarantee
		// requires the callback never fire again once it has returned.
		if !s.receiving.Load() {
			return
		}

		if f, ok := frameFromWire(raw); ok && s.callback != nil {
			s.callback(f)
		}
	}
}

// StopReceiving clears the receiving flag and joins the RX thread. Safe to
// call when not receiving.
func (s *linuxSocket) StopReceiving() {
	if !s.receiving.Load() {
		return
	}
	s.receiving.Store(false)
	s.rxWg.Wait()
}

func (s *linuxSocket) IsReceiving() bool { return s.receiving.Load() }

// ReceiveOne performs a blocking single-frame read with an optional poll
// timeout. Returns false on timeout or short read.
func (s *linuxSocket) ReceiveOne(timeout time.Duration) (Frame, bool) {
	s.mu.Lock()
	fd, open := s.fd, s.open
	s.mu.Unlock()
	if !open {
		return Frame{}, false
	}

	if timeout > 0 {
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(pfd, int(timeout.Milliseconds()))
		if err != nil || n <= 0 {
			return Frame{}, false
		}
	}

	raw := make([]byte, frameSize)
	rn, err := unix.Read(fd, raw)
	if err != nil || rn < frameSize {
		return Frame{}, false
	}

	return frameFromWire(raw)
}
