package backend

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"
)

// Memory management errors.
var (
	// ErrMemoryBudgetExceeded is returned when allocation would exceed budget.
	ErrMemoryBudgetExceeded = errors.New("backend: memory budget exceeded")

	// ErrMemoryManagerClosed is returned when operating on a closed manager.
	ErrMemoryManagerClosed = errors.New("backend: memory manager closed")
)

// MemoryStats contains buffer memory statistics.
type MemoryStats struct {
	// BudgetBytes is the memory budget in bytes. Zero means unlimited.
	BudgetBytes uint64

	// UsedBytes is the memory held by live buffers.
	UsedBytes uint64

	// PeakBytes is the highest UsedBytes seen.
	PeakBytes uint64

	// Buffers is the number of live buffers.
	Buffers int

	// Allocs and Frees count successful allocations and releases.
	Allocs uint64
	Frees  uint64
}

// String returns a human-readable summary.
func (s MemoryStats) String() string {
	budget := "unlimited"
	if s.BudgetBytes > 0 {
		budget = humanize.IBytes(s.BudgetBytes)
	}
	return fmt.Sprintf("Memory[%s used, %s peak, %s budget, %d buffers]",
		humanize.IBytes(s.UsedBytes), humanize.IBytes(s.PeakBytes), budget, s.Buffers)
}

// MemoryManager tracks the buffers of one device and enforces a budget.
//
// MemoryManager is safe for concurrent use.
type MemoryManager struct {
	mu sync.Mutex

	budget uint64
	used   uint64
	peak   uint64
	live   map[Buffer]uint64

	allocs uint64
	frees  uint64

	closed bool
}

// NewMemoryManager creates a manager with the given budget in bytes.
// A zero budget is unlimited.
func NewMemoryManager(budget uint64) *MemoryManager {
	return &MemoryManager{
		budget: budget,
		live:   make(map[Buffer]uint64),
	}
}

// Alloc checks the budget, calls create and tracks the resulting buffer.
// create runs under the manager lock.
func (m *MemoryManager) Alloc(size uint64, create func() (Buffer, error)) (Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrMemoryManagerClosed
	}
	if m.budget > 0 && m.used+size > m.budget {
		return nil, fmt.Errorf("%w: need %s, %s of %s in use",
			ErrMemoryBudgetExceeded, humanize.IBytes(size), humanize.IBytes(m.used), humanize.IBytes(m.budget))
	}

	b, err := create()
	if err != nil {
		return nil, err
	}
	m.live[b] = size
	m.used += size
	m.peak = max(m.peak, m.used)
	m.allocs++
	return b, nil
}

// Owns reports whether b is a live buffer of this manager.
func (m *MemoryManager) Owns(b Buffer) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.live[b]
	return ok
}

// Free untracks b and calls destroy. Unknown buffers return ErrUnknownBuffer.
func (m *MemoryManager) Free(b Buffer, destroy func(Buffer)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMemoryManagerClosed
	}
	size, ok := m.live[b]
	if !ok {
		return ErrUnknownBuffer
	}
	delete(m.live, b)
	m.used -= size
	m.frees++
	if destroy != nil {
		destroy(b)
	}
	return nil
}

// FreeAll releases every live buffer and returns how many were released.
func (m *MemoryManager) FreeAll(destroy func(Buffer)) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.live)
	for b := range m.live {
		if destroy != nil {
			destroy(b)
		}
		delete(m.live, b)
	}
	m.used = 0
	m.frees += uint64(n) //nolint:gosec // n is a map length
	return n
}

// Stats returns a snapshot of the statistics.
func (m *MemoryManager) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MemoryStats{
		BudgetBytes: m.budget,
		UsedBytes:   m.used,
		PeakBytes:   m.peak,
		Buffers:     len(m.live),
		Allocs:      m.allocs,
		Frees:       m.frees,
	}
}

// Close releases every live buffer and rejects further allocations.
// Close is idempotent.
func (m *MemoryManager) Close(destroy func(Buffer)) {
	m.FreeAll(destroy)
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}
