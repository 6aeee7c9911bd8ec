// Package portalloc implements the small critical section spec §5
// describes for instance port identities: a bounded range of integers,
// handed out and reclaimed under one mutex.
package portalloc

import (
	"fmt"
	"sync"
)

// Allocator hands out unique ports from [base, base+size) and reclaims
// them on Release. It implements internal/instance.PortAllocator.
type Allocator struct {
	mu   sync.Mutex
	base int
	free []int
	used map[int]bool
}

// New builds an Allocator over the half-open range [base, base+size).
func New(base, size int) *Allocator {
	free := make([]int, size)
	for i := range free {
		free[i] = base + i
	}
	return &Allocator{base: base, free: free, used: make(map[int]bool, size)}
}

// Acquire reserves and returns the next free port.
func (a *Allocator) Acquire() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.free) == 0 {
		return 0, fmt.Errorf("port pool exhausted")
	}
	port := a.free[len(a.free)-1]
	a.free = a.free[:len(a.free)-1]
	a.used[port] = true
	return port, nil
}

// Release returns port to the free list. Releasing a port not currently
// held, or one outside the configured range, is a no-op.
func (a *Allocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.used[port] {
		return
	}
	delete(a.used, port)
	a.free = append(a.free, port)
}

// InUse reports how many ports are currently allocated, used for metrics
// and tests.
func (a *Allocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.used)
}
