package bounce

import "sort"

// pairKey identifies a contact pair with normalized ordering (a < b).
type pairKey struct {
	a, b BodyID
}

func makePairKey(a, b BodyID) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// contactEvents turns per-step contact pairs into added/persisted/removed
// notifications by diffing against the previous step, and sleep state changes
// into activation notifications.
type contactEvents struct {
	previousPairs map[pairKey]bool
	currentPairs  map[pairKey]bool

	sleepStates map[BodyID]bool
}

func newContactEvents() *contactEvents {
	return &contactEvents{
		previousPairs: make(map[pairKey]bool),
		currentPairs:  make(map[pairKey]bool),
		sleepStates:   make(map[BodyID]bool),
	}
}

// record marks a pair as active this step.
func (e *contactEvents) record(a, b BodyID) {
	e.currentPairs[makePairKey(a, b)] = true
}

// forget drops all tracking for a body that left the registry. Pairs already
// reported to the listener end here, so their removal is reported too; the
// contact lifecycle stays balanced even when a body is pulled mid-contact.
func (e *contactEvents) forget(id BodyID, listener *ContactListener) {
	delete(e.sleepStates, id)
	for _, pair := range sortedPairs(e.previousPairs) {
		if pair.a != id && pair.b != id {
			continue
		}
		delete(e.previousPairs, pair)
		if listener != nil && listener.OnRemoved != nil {
			listener.OnRemoved(pair.a, pair.b)
		}
	}
	for pair := range e.currentPairs {
		if pair.a == id || pair.b == id {
			delete(e.currentPairs, pair)
		}
	}
}

// dispatchContacts compares current and previous pairs and notifies the
// listener. Pairs are sorted before dispatch so notification order is
// deterministic.
func (e *contactEvents) dispatchContacts(listener *ContactListener) {
	if listener != nil {
		current := sortedPairs(e.currentPairs)
		for _, pair := range current {
			if e.previousPairs[pair] {
				if listener.OnPersisted != nil {
					listener.OnPersisted(pair.a, pair.b)
				}
			} else if listener.OnAdded != nil {
				listener.OnAdded(pair.a, pair.b)
			}
		}

		for _, pair := range sortedPairs(e.previousPairs) {
			if !e.currentPairs[pair] && listener.OnRemoved != nil {
				listener.OnRemoved(pair.a, pair.b)
			}
		}
	}

	// Swap for the next step and clear current
	e.previousPairs, e.currentPairs = e.currentPairs, e.previousPairs
	clear(e.currentPairs)
}

// observeSleepState tracks a body's activation state and notifies the
// listener on transitions.
func (e *contactEvents) observeSleepState(listener *BodyActivationListener, id BodyID, userData uint64, sleeping bool) {
	tracked, exists := e.sleepStates[id]
	if !exists {
		e.sleepStates[id] = sleeping
		return
	}
	if tracked == sleeping {
		return
	}
	e.sleepStates[id] = sleeping

	if listener == nil {
		return
	}
	if sleeping {
		if listener.OnDeactivated != nil {
			listener.OnDeactivated(id, userData)
		}
	} else if listener.OnActivated != nil {
		listener.OnActivated(id, userData)
	}
}

func sortedPairs(pairs map[pairKey]bool) []pairKey {
	out := make([]pairKey, 0, len(pairs))
	for pair := range pairs {
		out = append(out, pair)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].a != out[j].a {
			return out[i].a < out[j].a
		}
		return out[i].b < out[j].b
	})
	return out
}
