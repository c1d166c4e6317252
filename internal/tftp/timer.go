package tftp

import (
	"time"

	"github.com/wjemai/tftpd/pkg/utils"
)

// Constants from spec.md §4.2.
const (
	InitialTimeout     = 50 * time.Millisecond
	TimeoutMin         = 50 * time.Millisecond
	TimeoutMax         = 10 * time.Second
	MaxRetransmissions = 8
)

func clampTimeout(d time.Duration) time.Duration {
	if d < TimeoutMin {
		return TimeoutMin
	}

	if d > TimeoutMax {
		return TimeoutMax
	}

	return d
}

// rttTimer is the adaptive retransmission timer and RTT estimator of
// spec.md §4.2. One rttTimer lives for the life of a read transaction
// (rtt_estimate carries across blocks, spec.md §3); OnBlockSent resets
// only the per-block bookkeeping ahead of each new outstanding block.
type rttTimer struct {
	rtt             time.Duration
	timeout         time.Duration
	retransmissions int
	ignoreTime      bool
	sendTime        time.Time
}

func newRTTTimer() *rttTimer {
	t := &rttTimer{rtt: InitialTimeout}
	t.timeout = clampTimeout(2 * t.rtt)

	return t
}

// OnBlockSent resets per-block bookkeeping for a freshly-sent (not
// retransmitted) block.
func (t *rttTimer) OnBlockSent(now time.Time) {
	t.sendTime = now
	t.retransmissions = 0
	t.ignoreTime = false
}

// OnTimeout accounts for a resend the caller has already performed and
// applies exponential back-off for the block's next wait. Callers must
// resend the block before calling OnTimeout, so the resend that brings
// retransmissions to MaxRetransmissions is still sent before the abort
// is reported (spec.md §8, original_source/src/TftpServer.cpp's
// resend-then-count-then-check order). It returns
// utils.ErrRetriesExhausted once the retransmission budget is spent.
func (t *rttTimer) OnTimeout(now time.Time) error {
	t.retransmissions++
	if t.retransmissions >= MaxRetransmissions {
		return utils.ErrRetriesExhausted
	}

	t.timeout = clampTimeout(2 * t.timeout)
	t.ignoreTime = true
	t.sendTime = now

	return nil
}

// OnAck samples the round-trip time for a first (non-duplicate,
// non-post-retransmission) acknowledgement. Karn's algorithm: samples
// following a retransmission of the current block are ignored.
func (t *rttTimer) OnAck(now time.Time) {
	if t.ignoreTime {
		return
	}

	sample := now.Sub(t.sendTime)
	t.rtt = time.Duration(0.9*float64(t.rtt) + 0.1*float64(sample))
	t.timeout = clampTimeout(2 * t.rtt)
}

// Remaining returns how long until the current block's timeout fires,
// floored at zero.
func (t *rttTimer) Remaining(now time.Time) time.Duration {
	d := t.sendTime.Add(t.timeout).Sub(now)
	if d < 0 {
		return 0
	}

	return d
}

func (t *rttTimer) Timeout() time.Duration {
	return t.timeout
}
