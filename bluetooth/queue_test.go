package bluetooth

import (
	"bytes"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := NewCommandQueue()
	a := []byte{1}
	b := []byte{2}
	c := []byte{3}
	q.Enqueue(a)
	q.Enqueue(b)
	q.Enqueue(c)

	for i, want := range [][]byte{a, b, c} {
		got, ok := q.Dequeue(100 * time.Millisecond)
		if !ok {
			t.Fatalf("dequeue %d: queue empty", i)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("dequeue %d = %v, want %v", i, got, want)
		}
	}
}

func TestQueueDequeueTimeout(t *testing.T) {
	q := NewCommandQueue()
	start := time.Now()
	cmd, ok := q.Dequeue(20 * time.Millisecond)
	if ok || cmd != nil {
		t.Errorf("empty queue returned a command: %v", cmd)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("dequeue returned after %v, before the timeout", elapsed)
	}
}

func TestQueueOverflowDropsOldest(t *testing.T) {
	q := &CommandQueue{ch: make(chan []byte, 2)}
	q.Enqueue([]byte{1})
	q.Enqueue([]byte{2})
	q.Enqueue([]byte{3}) // must not block; {1} goes

	got, ok := q.Dequeue(time.Millisecond)
	if !ok || !bytes.Equal(got, []byte{2}) {
		t.Errorf("first dequeue = %v, want [2]", got)
	}
	got, ok = q.Dequeue(time.Millisecond)
	if !ok || !bytes.Equal(got, []byte{3}) {
		t.Errorf("second dequeue = %v, want [3]", got)
	}
	if q.Len() != 0 {
		t.Errorf("queue depth = %d, want 0", q.Len())
	}
}
