package snapshot

import (
	"sync"
)

type listenerCh = chan string // carries new ETags

var (
	mu        sync.Mutex
	listeners = make(map[listenerCh]struct{})
)

// Subscribe registers a listener for snapshot publishes and returns its
// channel and an unsubscribe func.
func Subscribe() (listenerCh, func()) {
	ch := make(listenerCh, 1)
	mu.Lock()
	listeners[ch] = struct{}{}
	mu.Unlock()

	unsub := func() {
		mu.Lock()
		delete(listeners, ch)
		close(ch)
		mu.Unlock()
	}
	return ch, unsub
}

// publishUpdate notifies all listeners (non-blocking).
func publishUpdate(etag string) {
	mu.Lock()
	for ch := range listeners {
		select {
		case ch <- etag:
		default: // if a listener is slow, skip instead of blocking
		}
	}
	mu.Unlock()
}
