package db

import (
	"sync"
	"sync/atomic"
)

// Lease pairs a connection with its one-shot release handle.
type Lease struct {
	Conn Conn

	release   ReleaseFunc
	onRelease func()
	once      sync.Once
	released  atomic.Bool
}

// Release hands the connection back to the pool. Only the first call has any
// effect; the lease drops its connection afterwards.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.released.Store(true)
		l.Conn = nil
		if l.release != nil {
			l.release()
		}
		if l.onRelease != nil {
			l.onRelease()
		}
	})
}

// Released reports whether Release has run.
func (l *Lease) Released() bool {
	return l.released.Load()
}
