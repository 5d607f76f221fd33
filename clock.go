package clnet

import "time"

// A Clock returns the client time in milliseconds.
type Clock func() int64

// NewClock returns a Clock counting from the moment it is created.
func NewClock() Clock {
	start := time.Now()
	return func() int64 {
		return time.Since(start).Milliseconds()
	}
}
