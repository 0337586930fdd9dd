package notify

// Hub fans out published values to subscribers synchronously, in subscription order.
//
// The hub is meant for the single-writer document model: it holds no locks and publishing
// from several goroutines at once is not supported.
type Hub[T any] struct {
	nextID      int
	subscribers []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// NewHub creates a Hub without subscribers.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{}
}

// Subscribe registers fn for every subsequent Publish. The returned function removes the
// subscription again and is safe to call more than once.
func (h *Hub[T]) Subscribe(fn func(T)) func() {
	h.nextID++
	id := h.nextID
	h.subscribers = append(h.subscribers, subscriber[T]{id: id, fn: fn})
	return func() {
		for i, s := range h.subscribers {
			if s.id == id {
				h.subscribers = append(h.subscribers[:i:i], h.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Publish calls every subscriber with v. Subscribers added or removed during Publish take effect
// from the next call.
func (h *Hub[T]) Publish(v T) {
	for _, s := range h.subscribers {
		s.fn(v)
	}
}

// Len returns the number of active subscriptions.
func (h *Hub[T]) Len() int {
	return len(h.subscribers)
}
