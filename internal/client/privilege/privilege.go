// Package privilege scopes the elevated rights of a setuid client binary to a single
// operation.
package privilege

import (
	"errors"
	"sync"
)

var ErrNotElevated = errors.New("privilege: binary is not setuid, elevated writes are unavailable")

// Capability remembers the effective user the process started with and hands it back
// for one operation at a time. A process that was not started setuid runs every
// operation as the real user.
type Capability struct {
	mu       sync.Mutex
	realUID  int
	savedUID int
}

// Drop lowers the effective user to the real user and returns the capability to raise
// it again. It must run once, early in main.
func Drop() (*Capability, error) {
	ruid, euid := ids()
	c := &Capability{realUID: ruid, savedUID: euid}
	if c.Elevated() {
		if err := setEffective(ruid); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Elevated reports whether the process started with a different effective user.
func (c *Capability) Elevated() bool {
	return c.savedUID != c.realUID
}

// Do runs fn with the saved effective user and restores the real user on every path.
// Without elevation fn runs as is.
func (c *Capability) Do(fn func() error) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Elevated() {
		return fn()
	}

	if err := setEffective(c.savedUID); err != nil {
		return err
	}
	defer func() {
		if rerr := setEffective(c.realUID); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn()
}
