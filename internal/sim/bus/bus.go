// Package bus is the engine's typed publish/subscribe registry.
//
// Subscriptions are keyed by event kind and, optionally, by a target entity.
// Publish is synchronous: directed handlers for the target run first, then
// broadcast handlers for the kind, each list in registration order. A handler
// that sets Envelope.Handled stops delivery to the remaining handlers.
//
// The bus is not safe for concurrent use; it lives on the world loop goroutine.
package bus

type Kind string

// Envelope carries one published event through dispatch.
type Envelope struct {
	Kind    Kind
	Target  uint64 // 0 means broadcast only
	Payload any
	Handled bool
}

type Handler func(env *Envelope)

type key struct {
	kind   Kind
	target uint64
}

type entry struct {
	id uint64
	h  Handler
}

type Bus struct {
	directed  map[key][]entry
	broadcast map[Kind][]entry
	nextID    uint64
	published map[Kind]uint64
}

func New() *Bus {
	return &Bus{
		directed:  map[key][]entry{},
		broadcast: map[Kind][]entry{},
		published: map[Kind]uint64{},
	}
}

// Subscribe registers a broadcast handler for kind.
func (b *Bus) Subscribe(kind Kind, h Handler) (cancel func()) {
	b.nextID++
	id := b.nextID
	b.broadcast[kind] = append(b.broadcast[kind], entry{id: id, h: h})
	return func() { b.broadcast[kind] = without(b.broadcast[kind], id) }
}

// SubscribeTo registers a handler that only sees events of kind directed at target.
func (b *Bus) SubscribeTo(kind Kind, target uint64, h Handler) (cancel func()) {
	if target == 0 {
		return b.Subscribe(kind, h)
	}
	b.nextID++
	id := b.nextID
	k := key{kind: kind, target: target}
	b.directed[k] = append(b.directed[k], entry{id: id, h: h})
	return func() {
		rest := without(b.directed[k], id)
		if len(rest) == 0 {
			delete(b.directed, k)
			return
		}
		b.directed[k] = rest
	}
}

// Publish dispatches payload and returns the envelope so callers can inspect Handled.
func (b *Bus) Publish(kind Kind, target uint64, payload any) *Envelope {
	env := &Envelope{Kind: kind, Target: target, Payload: payload}
	b.published[kind]++

	if target != 0 {
		for _, e := range snapshot(b.directed[key{kind: kind, target: target}]) {
			e.h(env)
			if env.Handled {
				return env
			}
		}
	}
	for _, e := range snapshot(b.broadcast[kind]) {
		e.h(env)
		if env.Handled {
			return env
		}
	}
	return env
}

// ForgetTarget drops every directed subscription for target (entity deleted).
func (b *Bus) ForgetTarget(target uint64) {
	for k := range b.directed {
		if k.target == target {
			delete(b.directed, k)
		}
	}
}

func (b *Bus) HandlerCount(kind Kind) int {
	n := len(b.broadcast[kind])
	for k, es := range b.directed {
		if k.kind == kind {
			n += len(es)
		}
	}
	return n
}

// Published reports how many events of kind went through Publish.
func (b *Bus) Published(kind Kind) uint64 { return b.published[kind] }

// On subscribes a typed broadcast handler. Payloads of another type are ignored.
func On[T any](b *Bus, kind Kind, fn func(env *Envelope, ev T)) (cancel func()) {
	return b.Subscribe(kind, typed(fn))
}

// OnTarget subscribes a typed directed handler.
func OnTarget[T any](b *Bus, kind Kind, target uint64, fn func(env *Envelope, ev T)) (cancel func()) {
	return b.SubscribeTo(kind, target, typed(fn))
}

func typed[T any](fn func(env *Envelope, ev T)) Handler {
	return func(env *Envelope) {
		ev, ok := env.Payload.(T)
		if !ok {
			return
		}
		fn(env, ev)
	}
}

func snapshot(es []entry) []entry {
	if len(es) == 0 {
		return nil
	}
	out := make([]entry, len(es))
	copy(out, es)
	return out
}

func without(es []entry, id uint64) []entry {
	for i, e := range es {
		if e.id == id {
			out := make([]entry, 0, len(es)-1)
			out = append(out, es[:i]...)
			return append(out, es[i+1:]...)
		}
	}
	return es
}
