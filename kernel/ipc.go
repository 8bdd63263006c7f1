package kernel

import "github.com/rugo-os/rugo/amd64"

// Endpoint is a single-slot synchronous message channel (§3): an active
// flag, a bounded message buffer, and a waiter task-id or -1. Invariant:
// HasMsg and Waiter >= 0 are mutually exclusive - a buffered message and a
// blocked waiter cannot coexist, because send's direct-delivery path never
// touches the slot when a waiter is present (§4.7 invariant c).
type Endpoint struct {
	Active bool
	HasMsg bool
	Msg    [MaxMessageLength]byte
	MsgLen int
	Waiter int // task id, or -1
}

// NewEndpoint returns an active, empty endpoint ready for send/recv.
func NewEndpoint() Endpoint {
	return Endpoint{Active: true, Waiter: -1}
}

// Send implements syscall 8 (§4.7). buf/len name a user-memory region; up to
// MaxMessageLength bytes are copied into a kernel temp buffer before any
// delivery decision is made.
func (k *KernelState) Send(ep int, buf, length uint64) SysErr {
	if ep < 0 || ep >= MaxEndpoints || !k.Endpoints[ep].Active {
		return ErrBadArg
	}
	if length == 0 || length > MaxMessageLength {
		return ErrBadArg
	}

	var tmp [MaxMessageLength]byte
	n := int(length)
	if !amd64.CopyinUser(tmp[:n], buf) {
		return ErrBadUserPtr
	}

	e := &k.Endpoints[ep]

	if e.Waiter >= 0 {
		// Direct-delivery fast path (§4.7): the slot is never touched.
		waiter := &k.Tasks[e.Waiter]
		delivered := n
		if uint64(delivered) > waiter.RecvCap {
			delivered = int(waiter.RecvCap)
		}

		if delivered > 0 && !amd64.CopyoutUser(waiter.RecvBuf, tmp[:delivered]) {
			// the receiver's buffer went bad between recv and send;
			// deliver zero bytes rather than leaving it blocked forever.
			delivered = 0
		}

		waiter.Frame.SetRax(uint64(delivered))
		waiter.State = TaskReady
		e.Waiter = -1
		return ErrNone
	}

	if e.HasMsg {
		// back-pressure: the single slot is already occupied.
		return ErrBadCap
	}

	copy(e.Msg[:], tmp[:n])
	e.MsgLen = n
	e.HasMsg = true

	return ErrNone
}

// Recv implements syscall 9 (§4.7). If a message is already buffered it is
// delivered immediately; otherwise the caller blocks and f is overwritten
// with another Ready task's frame via Schedule - the caller's own return
// value is filled in later, by a matching Send, not by this call.
//
// blocked reports whether the call blocked (in which case the caller must
// not touch the frame again - it has already been redirected to another
// task); when it is false the call completed synchronously, with delivered
// and err valid.
func (k *KernelState) Recv(f *amd64.Frame, ep int, buf, cap uint64) (delivered uint64, err SysErr, blocked bool) {
	if ep < 0 || ep >= MaxEndpoints || !k.Endpoints[ep].Active {
		return 0, ErrBadArg, false
	}
	if cap > 0 && !amd64.UserRangeOK(buf, cap, true) {
		return 0, ErrBadUserPtr, false
	}

	e := &k.Endpoints[ep]

	if e.HasMsg {
		n := e.MsgLen
		if uint64(n) > cap {
			n = int(cap)
		}
		if n > 0 && !amd64.CopyoutUser(buf, e.Msg[:n]) {
			return 0, ErrBadUserPtr, false
		}
		e.HasMsg = false
		e.MsgLen = 0
		return uint64(n), ErrNone, false
	}

	// No message buffered: block. Save frame, set up the receive
	// descriptor, register as waiter, then hand the CPU to the scheduler.
	t := k.CurrentTask()
	t.RecvEndpoint = ep
	t.RecvBuf = buf
	t.RecvCap = cap
	t.State = TaskBlocked
	e.Waiter = t.ID

	k.Schedule(f)

	return 0, ErrNone, true
}
