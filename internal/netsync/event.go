package netsync

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// EventKind identifies a reliable weapon event.
type EventKind uint8

const (
	// EventReload tells clients a reload started.
	EventReload EventKind = iota + 1
	// EventEndReload tells clients a reload finished.
	EventEndReload
	// EventChangeSkin carries a new skin name.
	EventChangeSkin
)

// String returns the event name used in logs.
func (k EventKind) String() string {
	switch k {
	case EventReload:
		return "reload"
	case EventEndReload:
		return "end_reload"
	case EventChangeSkin:
		return "change_skin"
	}
	return fmt.Sprintf("event(%d)", uint8(k))
}

// ErrShortEvent is returned when an event payload is truncated.
var ErrShortEvent = errors.New("netsync: short event payload")

// Event is a reliable weapon event. Time is the sender's game time.
type Event struct {
	Kind EventKind
	Time time.Duration
	Skin string
}

// Envelope addresses an event to the player whose weapon sent it.
type Envelope struct {
	Owner string
	Event Event
}

// Envelope message fields. Each envelope is field 1 of the stream.
const (
	envelopeField protowire.Number = 1

	ownerField protowire.Number = 1
	kindField  protowire.Number = 2
	timeField  protowire.Number = 3
	skinField  protowire.Number = 4
)

// AppendEnvelope appends env to a reliable stream as a length delimited
// protobuf message and returns the extended buffer.
func AppendEnvelope(b []byte, env Envelope) []byte {
	var msg []byte
	msg = protowire.AppendTag(msg, ownerField, protowire.BytesType)
	msg = protowire.AppendString(msg, env.Owner)
	msg = protowire.AppendTag(msg, kindField, protowire.VarintType)
	msg = protowire.AppendVarint(msg, uint64(env.Event.Kind))
	msg = protowire.AppendTag(msg, timeField, protowire.VarintType)
	msg = protowire.AppendVarint(msg, protowire.EncodeZigZag(int64(env.Event.Time)))
	if env.Event.Skin != "" {
		msg = protowire.AppendTag(msg, skinField, protowire.BytesType)
		msg = protowire.AppendString(msg, env.Event.Skin)
	}
	b = protowire.AppendTag(b, envelopeField, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// DecodeEnvelopes reads every envelope in a reliable stream, in send order.
// Unknown fields are skipped.
func DecodeEnvelopes(data []byte) ([]Envelope, error) {
	var out []Envelope
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, fmt.Errorf("%w: %v", ErrShortEvent, protowire.ParseError(n))
		}
		data = data[n:]
		if num != envelopeField || typ != protowire.BytesType {
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return out, fmt.Errorf("%w: %v", ErrShortEvent, protowire.ParseError(m))
			}
			data = data[m:]
			continue
		}
		msg, m := protowire.ConsumeBytes(data)
		if m < 0 {
			return out, fmt.Errorf("%w: %v", ErrShortEvent, protowire.ParseError(m))
		}
		data = data[m:]
		env, err := decodeEnvelope(msg)
		if err != nil {
			return out, err
		}
		out = append(out, env)
	}
	return out, nil
}

func decodeEnvelope(msg []byte) (Envelope, error) {
	var env Envelope
	for len(msg) > 0 {
		num, typ, n := protowire.ConsumeTag(msg)
		if n < 0 {
			return env, fmt.Errorf("%w: %v", ErrShortEvent, protowire.ParseError(n))
		}
		msg = msg[n:]
		switch {
		case num == ownerField && typ == protowire.BytesType:
			env.Owner, n = protowire.ConsumeString(msg)
		case num == skinField && typ == protowire.BytesType:
			env.Event.Skin, n = protowire.ConsumeString(msg)
		case num == kindField && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(msg)
			env.Event.Kind = EventKind(v)
		case num == timeField && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(msg)
			env.Event.Time = time.Duration(protowire.DecodeZigZag(v))
		default:
			n = protowire.ConsumeFieldValue(num, typ, msg)
		}
		if n < 0 {
			return env, fmt.Errorf("%w: field %d: %v", ErrShortEvent, num, protowire.ParseError(n))
		}
		msg = msg[n:]
	}
	return env, nil
}

// Queue buffers outgoing events until the transport drains them.
// It is safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	events []Event
}

// SendEvent appends ev to the queue.
func (q *Queue) SendEvent(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, ev)
}

// Drain returns and clears the queued events in send order.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.events
	q.events = nil
	return out
}
