package sync

import (
	base "sync"
)

const replicasPerStripe = 200

// StripedLock maps an unbounded key space onto a fixed set of RWMutexes.
// Distinct keys may share a stripe, so callers must never hold two stripes
// at once.
type StripedLock struct {
	locks []base.RWMutex
	ring  *ring
}

func NewStripedLock(stripes uint) *StripedLock {
	if stripes == 0 {
		stripes = 1
	}

	return &StripedLock{
		locks: make([]base.RWMutex, stripes),
		ring:  newRing(int(stripes), replicasPerStripe),
	}
}

// Get returns the lock guarding key
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	return &l.locks[l.ring.slot(key)]
}
