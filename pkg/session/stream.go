package session

import "sync"

// subscriberBuffer is how many unread states a subscriber may fall behind
// before its oldest buffered states are dropped.
const subscriberBuffer = 16

// stream fans published states out to subscribers.
type stream struct {
	mu     sync.Mutex
	last   State
	nextID int
	subs   map[int]chan State
}

func newStream() *stream {
	return &stream{subs: make(map[int]chan State)}
}

func (s *stream) publish(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = state
	for _, ch := range s.subs {
		offer(ch, state)
	}
}

// offer sends state on ch, discarding the oldest buffered state while ch is
// full so the latest state is always the last one a subscriber reads.
// Callers hold s.mu, so no other sender competes for the freed slot.
func offer(ch chan State, state State) {
	for {
		select {
		case ch <- state:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (s *stream) subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan State, subscriberBuffer)
	ch <- s.last
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
		})
	}
}

func (s *stream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
