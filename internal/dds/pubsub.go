package dds

import (
	"context"
	"sync"
	"sync/atomic"
)

// Publisher is a typed handle to a DDS DataWriter on a NoKey topic.
type Publisher[M any] struct {
	bus    *topicBus
	guid   GUID
	seq    int64
	closed atomic.Bool
}

func newPublisher[M any](bus *topicBus, guid GUID) *Publisher[M] {
	bus.registerWriter(guid)
	return &Publisher[M]{bus: bus, guid: guid}
}

// GUID returns the GUID of the underlying DataWriter.
func (p *Publisher[M]) GUID() GUID { return p.guid }

// Write publishes a sample with the default write options (no explicit
// source timestamp or related_sample_identity). Equivalent to the reference
// client's bare `publish`.
func (p *Publisher[M]) Write(msg M) error {
	_, err := p.WriteWithOptions(msg, WriteOptions{})
	return err
}

// WriteWithOptions publishes a sample, returning the SampleIdentity DDS
// assigned to it (writer GUID + the sequence number this writer just used).
func (p *Publisher[M]) WriteWithOptions(msg M, wo WriteOptions) (SampleIdentity, error) {
	if p.closed.Load() {
		return SampleIdentity{}, &WriteError{Reason: "publisher closed"}
	}
	sn := atomic.AddInt64(&p.seq, 1)
	id := SampleIdentity{WriterGUID: p.guid, SequenceNumber: sn}

	info := SampleInfo{
		WriterGUID:            p.guid,
		SequenceNumber:        sn,
		SourceTimestamp:       wo.SourceTimestamp,
		RelatedSampleIdentity: wo.RelatedSampleIdentity,
	}

	p.bus.mu.Lock()
	subs := make([]*subState, 0, len(p.bus.subs))
	for s := range p.bus.subs {
		subs = append(subs, s)
	}
	p.bus.mu.Unlock()

	for _, s := range subs {
		s.mu.Lock()
		s.entries = append(s.entries, entry[M]{value: msg, info: info})
		s.cond.Signal()
		s.mu.Unlock()
	}
	return id, nil
}

// Close removes this writer from the topic's discovery set. Equivalent to
// dropping a DataWriter in the reference implementation.
func (p *Publisher[M]) Close() {
	if p.closed.CompareAndSwap(false, true) {
		p.bus.unregisterWriter(p.guid)
	}
}

// Subscription is a typed handle to a DDS DataReader on a NoKey topic.
type Subscription[M any] struct {
	bus    *topicBus
	guid   GUID
	state  *subState
	closed atomic.Bool
}

func newSubscription[M any](bus *topicBus, guid GUID) *Subscription[M] {
	st := newSubState()
	bus.mu.Lock()
	bus.subs[st] = struct{}{}
	bus.mu.Unlock()
	bus.registerReader(guid)
	return &Subscription[M]{bus: bus, guid: guid, state: st}
}

// GUID returns the GUID of the underlying DataReader.
func (s *Subscription[M]) GUID() GUID { return s.guid }

// Take performs a non-blocking read of the oldest undelivered sample. It
// returns ok=false if the queue is empty, mirroring take_next_sample
// returning None.
func (s *Subscription[M]) Take() (msg M, info SampleInfo, ok bool) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if len(s.state.entries) == 0 {
		return msg, info, false
	}
	e := s.state.entries[0].(entry[M])
	s.state.entries = s.state.entries[1:]
	return e.value, e.info, true
}

// Wait blocks until a sample is available or ctx is done. It is
// cancellation-safe: if ctx is cancelled before a sample arrives, no sample
// is consumed.
func (s *Subscription[M]) Wait(ctx context.Context) error {
	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		s.state.mu.Lock()
		s.state.cond.Broadcast()
		s.state.mu.Unlock()
		close(done)
	})
	defer stop()

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	for len(s.state.entries) == 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.state.cond.Wait()
	}
	return nil
}

// Close removes this reader from the topic's discovery set.
func (s *Subscription[M]) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.bus.mu.Lock()
		delete(s.bus.subs, s.state)
		s.bus.mu.Unlock()
		s.bus.unregisterReader(s.guid)
	}
}

// Participant is a stand-in for a DDS DomainParticipant: it owns a set of
// named topics and mints GUIDs for the writers/readers created on them. One
// Participant corresponds to one ROS_DOMAIN_ID-scoped process identity.
type Participant struct {
	mu       sync.Mutex
	prefix   [12]byte
	guid     GUID
	domainID uint16
	topics   map[TopicKey]*topicBus
	nextID   uint32
}

// NewParticipant creates a Participant for the given DDS domain id.
func NewParticipant(domainID uint16) *Participant {
	prefix := randomPrefix()
	return &Participant{
		prefix:   prefix,
		guid:     newGUID(prefix, 0x000001c1), // entity kind: participant, per RTPS builtin convention
		domainID: domainID,
		topics:   map[TopicKey]*topicBus{},
	}
}

func (p *Participant) GUID() GUID      { return p.guid }
func (p *Participant) DomainID() uint16 { return p.domainID }

func (p *Participant) nextEntityID() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	return p.nextID
}

func (p *Participant) bus(key TopicKey) *topicBus {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.topics[key]
	if !ok {
		b = newTopicBus()
		p.topics[key] = b
	}
	return b
}

// CreateTopic returns a Topic handle for the given name/type, creating the
// underlying bus on first use.
func (p *Participant) CreateTopic(name, typ string, qos QosPolicies) Topic {
	key := TopicKey{Name: name, Type: typ}
	p.bus(key) // ensure it exists
	return Topic{Key: key, Qos: qos}
}

// CreatePublisher creates a typed DataWriter on the given topic.
func CreatePublisher[M any](p *Participant, t Topic) *Publisher[M] {
	guid := newGUID(p.prefix, p.nextEntityID())
	return newPublisher[M](p.bus(t.Key), guid)
}

// CreateSubscription creates a typed DataReader on the given topic.
func CreateSubscription[M any](p *Participant, t Topic) *Subscription[M] {
	guid := newGUID(p.prefix, p.nextEntityID())
	return newSubscription[M](p.bus(t.Key), guid)
}

// HasMatchedReader reports whether any reader has been created on the topic
// (locally; this in-process bus has no remote discovery to speak of).
func (p *Participant) HasMatchedReader(t Topic) bool {
	return p.bus(t.Key).hasReader()
}

// HasMatchedWriter reports whether any writer has been created on the topic.
func (p *Participant) HasMatchedWriter(t Topic) bool {
	return p.bus(t.Key).hasWriter()
}

// WaitForMatch blocks until pred(topic) is true or ctx is done. Used to
// implement wait_for_service: wait for a reader on the request topic and a
// writer on the response topic. It registers for the topic's discovery-change
// notifications before its first check of pred, so a match that lands
// between registration and the check is still observed on the next wake
// rather than lost.
func WaitForMatch(ctx context.Context, p *Participant, t Topic, pred func(*Participant, Topic) bool) error {
	bus := p.bus(t.Key)
	ch := make(chan int, 1)
	bus.Register(ch)
	defer bus.Unregister(ch)
	for {
		if pred(p, t) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}
