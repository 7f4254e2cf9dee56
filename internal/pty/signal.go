package pty

import (
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// SIGCHLD handling follows the self-pipe discipline: the runtime's signal
// handler does nothing beyond a non-blocking send onto the channel registered
// with signal.Notify. The fanout below relays each delivery to every
// subscribed handle; handles then check their own pid with a non-blocking
// wait, so a coalesced SIGCHLD covering several children is still safe.

type subscription struct {
	ch chan struct{}
}

func (s *subscription) close() {
	chld.unsubscribe(s)
}

type chldNotifier struct {
	mu   sync.Mutex
	subs map[*subscription]struct{}
	once sync.Once
}

var chld = &chldNotifier{subs: make(map[*subscription]struct{})}

func (n *chldNotifier) start() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGCHLD)
	go func() {
		for range ch {
			n.mu.Lock()
			for s := range n.subs {
				select {
				case s.ch <- struct{}{}:
				default:
				}
			}
			n.mu.Unlock()
		}
	}()
}

// subscribe registers a fresh notification channel. Handles subscribe before
// their child is spawned so an immediate exit cannot beat the listener.
func (n *chldNotifier) subscribe() *subscription {
	n.once.Do(n.start)
	s := &subscription{ch: make(chan struct{}, 1)}
	n.mu.Lock()
	n.subs[s] = struct{}{}
	n.mu.Unlock()
	return s
}

func (n *chldNotifier) unsubscribe(s *subscription) {
	n.mu.Lock()
	delete(n.subs, s)
	n.mu.Unlock()
}
