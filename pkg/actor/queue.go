package actor

import "sync"

// job is one queued operation. run executes it against the state and completes
// its future; discard fails the future without running.
type job struct {
	run     func()
	discard func(error)
}

// mailbox is a FIFO of jobs drained by a single worker.
//
// The queue is unbounded unless limit > 0. A buffered signal channel of size 1
// coalesces wake-ups so that Enqueue never blocks.
type mailbox struct {
	mu     sync.Mutex
	jobs   []job
	limit  int
	closed bool
	signal chan struct{}
}

func newMailbox(limit int) *mailbox {
	return &mailbox{
		jobs:   make([]job, 0, 16),
		limit:  limit,
		signal: make(chan struct{}, 1),
	}
}

// enqueue appends j. It fails with ErrActorClosed or ErrMailboxFull.
func (m *mailbox) enqueue(j job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrActorClosed
	}
	if m.limit > 0 && len(m.jobs) >= m.limit {
		return ErrMailboxFull
	}
	m.jobs = append(m.jobs, j)
	m.wake()
	return nil
}

// next blocks until a job is available or the mailbox is closed.
func (m *mailbox) next() (job, bool) {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return job{}, false
		}
		if len(m.jobs) > 0 {
			j := m.jobs[0]
			m.jobs[0] = job{}
			m.jobs = m.jobs[1:]
			m.mu.Unlock()
			return j, true
		}
		m.mu.Unlock()
		<-m.signal
	}
}

// drain removes every pending job and returns them. It does not touch the job in flight.
func (m *mailbox) drain() []job {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := m.jobs
	m.jobs = make([]job, 0, 16)
	return pending
}

// close stops further enqueues and dequeues and returns the jobs left behind.
func (m *mailbox) close() []job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	pending := m.jobs
	m.jobs = nil
	m.wake()
	return pending
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// wake must be called with mu held.
func (m *mailbox) wake() {
	select {
	case m.signal <- struct{}{}:
	default:
	}
}
