package session

import "time"

// Event describes the observable clipboard state at the moment a change was
// detected by the polling engine.
type Event struct {
	Time         time.Time
	HasText      bool
	HasImage     bool
	HasOwnership bool
}

// Observer receives change events. Observers are invoked synchronously from
// the polling run's goroutine, in registration order.
type Observer func(Event)

// Subscription identifies one registered observer.
type Subscription int

type subscriber struct {
	id Subscription
	fn Observer
}

// Subscribe registers fn for change events. Safe to call from within an
// observer callback.
func (s *Session) Subscribe(fn Observer) Subscription {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.nextSub++
	s.observers = append(s.observers, subscriber{id: s.nextSub, fn: fn})
	return s.nextSub
}

// Unsubscribe removes a previously registered observer. Unknown
// subscriptions are ignored. Safe to call from within an observer callback;
// a dispatch already in flight may still deliver to the removed observer.
func (s *Session) Unsubscribe(sub Subscription) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	for i, o := range s.observers {
		if o.id == sub {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// dispatch delivers ev to every observer registered at the time of the call.
// The subscriber list is snapshotted first so callbacks can subscribe or
// unsubscribe without deadlocking.
func (s *Session) dispatch(ev Event) {
	s.obsMu.RLock()
	snapshot := make([]Observer, len(s.observers))
	for i, o := range s.observers {
		snapshot[i] = o.fn
	}
	s.obsMu.RUnlock()

	for _, fn := range snapshot {
		fn(ev)
	}
}
