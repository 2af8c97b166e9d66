package alert

import "testing"

func TestRingBufferDrainEmpty(t *testing.T) {
	rb := newRingBuffer(8)
	if got := rb.drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestRingBufferFIFOOrder(t *testing.T) {
	rb := newRingBuffer(8)
	for i := 0; i < 5; i++ {
		rb.push(bufferedMsg{topic: Topic, payload: []byte{byte(i)}})
	}

	got := rb.drainAll()
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := range got {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: expected payload %d, got %d", i, i, got[i].payload[0])
		}
	}

	if again := rb.drainAll(); again != nil {
		t.Errorf("expected nil from second drain, got %d items", len(again))
	}
}

func TestRingBufferOverflowKeepsNewest(t *testing.T) {
	rb := newRingBuffer(4)

	// Push 4+2 items (0..5); the oldest 2 are dropped.
	for i := 0; i < 6; i++ {
		rb.push(bufferedMsg{topic: Topic, payload: []byte{byte(i)}})
	}

	got := rb.drainAll()
	if len(got) != 4 {
		t.Fatalf("expected 4 items, got %d", len(got))
	}
	for i := range got {
		if want := byte(i + 2); got[i].payload[0] != want {
			t.Errorf("item %d: expected payload %d, got %d", i, want, got[i].payload[0])
		}
	}
}

func TestRingBufferReusableAfterDrain(t *testing.T) {
	rb := newRingBuffer(4)

	rb.push(bufferedMsg{topic: Topic, payload: []byte{1}})
	if got := rb.drainAll(); len(got) != 1 {
		t.Fatalf("first cycle: expected 1 item, got %d", len(got))
	}

	for i := 0; i < 3; i++ {
		rb.push(bufferedMsg{topic: Topic, payload: []byte{byte(10 + i)}})
	}
	if rb.len() != 3 {
		t.Errorf("expected len 3, got %d", rb.len())
	}
	got := rb.drainAll()
	if len(got) != 3 || got[0].payload[0] != 10 {
		t.Errorf("second cycle: got %d items starting %v", len(got), got[0].payload)
	}
	if rb.len() != 0 {
		t.Errorf("expected len 0 after drain, got %d", rb.len())
	}
}

func TestRingBufferPreservesMessageFields(t *testing.T) {
	rb := newRingBuffer(4)
	rb.push(bufferedMsg{
		topic:    Topic,
		payload:  []byte(`{"alert":{}}`),
		qos:      1,
		retained: false,
	})

	got := rb.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].topic != Topic {
		t.Errorf("topic: got %s, want %s", got[0].topic, Topic)
	}
	if string(got[0].payload) != `{"alert":{}}` {
		t.Errorf("payload: got %s", got[0].payload)
	}
	if got[0].qos != 1 || got[0].retained {
		t.Errorf("qos/retained: got %d/%v, want 1/false", got[0].qos, got[0].retained)
	}
}
