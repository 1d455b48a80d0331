package pipeline

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("transition table", func() {
	run := func(events ...Event) (*machine, error) {
		m := newMachine()
		for _, e := range events {
			if err := m.fire(e); err != nil {
				return m, err
			}
		}
		return m, nil
	}

	DescribeTable("terminal states and layers",
		func(events []Event, state State, layer Layer) {
			m, err := run(events...)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.state).To(Equal(state))
			Expect(m.layer).To(Equal(layer))
			Expect(m.terminal()).To(BeTrue())
		},
		Entry("cache hit", []Event{EventCacheHit}, StateDone, LayerCache),
		Entry("grounded generation",
			[]Event{EventCacheMiss, EventDocumentsFound, EventGeneratedGrounded}, StateDone, LayerGrounded),
		Entry("ungrounded generation",
			[]Event{EventCacheMiss, EventNoDocuments, EventGeneratedUngrounded}, StateDone, LayerGenerated),
		Entry("retrieval failure still generates",
			[]Event{EventCacheMiss, EventRetrievalFailed, EventGeneratedUngrounded}, StateDone, LayerGenerated),
		Entry("generation failure",
			[]Event{EventCacheMiss, EventNoDocuments, EventGenerationFailed}, StateError, LayerNone),
	)

	It("assigns a layer only on entering done", func() {
		for key, t := range transitions {
			if t.to != StateDone {
				Expect(t.layer).To(Equal(LayerNone), "%s on %s", key.from, key.event)
			} else {
				Expect(t.layer).NotTo(Equal(LayerNone), "%s on %s", key.from, key.event)
			}
		}
	})

	It("rejects events the current state does not accept", func() {
		_, err := run(EventGeneratedGrounded)
		Expect(err).To(MatchError(ErrInvalidTransition))

		_, err = run(EventCacheHit, EventCacheMiss)
		Expect(err).To(MatchError(ErrInvalidTransition))
	})

	It("never reaches the grounded layer without documents", func() {
		for key, t := range transitions {
			if t.layer == LayerGrounded {
				Expect(key.event).To(Equal(EventGeneratedGrounded))
			}
		}
	})
})
