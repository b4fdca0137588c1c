package service

import "time"

// cooldownTracker records, per user id, a moment before which that
// user must not be re-paired through the lobby. Entries past their
// expiry are treated as absent and removed on sight; a periodic sweep
// clears the rest.
type cooldownTracker struct {
	expiry map[string]time.Time
	now    func() time.Time
}

func newCooldownTracker(now func() time.Time) *cooldownTracker {
	return &cooldownTracker{
		expiry: make(map[string]time.Time),
		now:    now,
	}
}

func (c *cooldownTracker) start(userID string, d time.Duration) {
	c.expiry[userID] = c.now().Add(d)
}

// active reports whether userID is still inside its cooldown window.
func (c *cooldownTracker) active(userID string) bool {
	until, ok := c.expiry[userID]
	if !ok {
		return false
	}
	if !c.now().Before(until) {
		delete(c.expiry, userID)
		return false
	}
	return true
}

func (c *cooldownTracker) clear(userID string) {
	delete(c.expiry, userID)
}

func (c *cooldownTracker) sweep() {
	now := c.now()
	for id, until := range c.expiry {
		if !now.Before(until) {
			delete(c.expiry, id)
		}
	}
}

func (c *cooldownTracker) size() int {
	return len(c.expiry)
}
