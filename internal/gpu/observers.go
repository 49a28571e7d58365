package gpu

import "sync"

// Observers is a subscriber list for change notifications. The zero value
// is ready to use. Callbacks run synchronously, in subscription order, on
// the goroutine that calls Notify.
type Observers struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber
}

type subscriber struct {
	id int
	fn func(Device)
}

// Subscribe adds fn and returns a function that removes it. Calling the
// returned function more than once is safe.
func (o *Observers) Subscribe(fn func(Device)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID++
	id := o.nextID
	o.subs = append(o.subs, subscriber{id: id, fn: fn})

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, s := range o.subs {
			if s.id == id {
				o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
				return
			}
		}
	}
}

// Notify calls every subscriber with d. Subscribers may unsubscribe from
// inside the callback.
func (o *Observers) Notify(d Device) {
	o.mu.Lock()
	subs := make([]subscriber, len(o.subs))
	copy(subs, o.subs)
	o.mu.Unlock()

	for _, s := range subs {
		s.fn(d)
	}
}

// Len returns the number of subscribers.
func (o *Observers) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}
