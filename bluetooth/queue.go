package bluetooth

import (
	"log"
	"time"
)

const defaultQueueCapacity = 100

// CommandQueue is the hand-off point between the HTTP handlers and the
// link loop: many producers, one consumer, strict FIFO. Enqueue never
// blocks the caller; when the buffer is full the oldest pending command is
// discarded and logged, since the newest state wins visually on the strip.
type CommandQueue struct {
	ch chan []byte
}

func NewCommandQueue() *CommandQueue {
	return &CommandQueue{ch: make(chan []byte, defaultQueueCapacity)}
}

// Enqueue adds cmd without blocking the caller.
func (q *CommandQueue) Enqueue(cmd []byte) {
	for {
		select {
		case q.ch <- cmd:
			return
		default:
		}
		select {
		case <-q.ch:
			log.Printf("QUEUE: full, dropped oldest pending command")
		default:
		}
	}
}

// Dequeue returns the next command in FIFO order, or ok=false once the
// timeout elapses with nothing pending.
func (q *CommandQueue) Dequeue(timeout time.Duration) ([]byte, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case cmd := <-q.ch:
		return cmd, true
	case <-timer.C:
		return nil, false
	}
}

// Len reports the number of pending commands.
func (q *CommandQueue) Len() int {
	return len(q.ch)
}
