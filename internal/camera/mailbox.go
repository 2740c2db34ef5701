package camera

import "sync"

// frameMailbox is the depth-1 handoff between the driver's callback thread
// and the owner loop. A frame arriving before the previous one was taken
// replaces it; the newest frame always wins and the backlog never grows.
type frameMailbox struct {
	mu        sync.Mutex
	frame     *Frame
	scheduled bool
	dropped   uint64
}

// put stores f, replacing any undelivered frame. It returns true when the
// caller must schedule a delivery on the owner loop; while a delivery is
// already pending the stored frame is simply swapped.
func (m *frameMailbox) put(f *Frame) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frame != nil {
		m.dropped++
	}
	m.frame = f
	if m.scheduled {
		return false
	}
	m.scheduled = true
	return true
}

// take removes and returns the pending frame, or nil. The transfer happens
// exactly once per frame.
func (m *frameMailbox) take() *Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	f := m.frame
	m.frame = nil
	m.scheduled = false
	return f
}

// drain discards any undelivered frame. A delivery already posted to the
// owner loop will find the mailbox empty and do nothing.
func (m *frameMailbox) drain() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = nil
}

// reset prepares the mailbox for a new streaming run.
func (m *frameMailbox) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = nil
	m.scheduled = false
	m.dropped = 0
}

func (m *frameMailbox) drops() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}
