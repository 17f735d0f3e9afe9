package bluetooth

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/niks-yad/BLE-HomeKit-Bridge/utils"
)

// Transport is the wireless-stack capability the link manager drives. The
// production implementation talks to BlueZ; tests substitute a fake.
type Transport interface {
	Connect(ctx context.Context, address string) (Connection, error)
}

// Connection is one live session with the strip.
type Connection interface {
	// Write delivers one encrypted frame to the control characteristic
	// without waiting for a device-level acknowledgment.
	Write(cmd []byte) error
	Connected() bool
	Disconnect() error
}

// LinkManager owns the single wireless session: it keeps the link alive,
// drains the command queue in order and reconnects with a fixed backoff
// after any failure. Exactly one goroutine (run) touches the connection.
type LinkManager struct {
	transport Transport
	queue     *CommandQueue
	hub       *utils.WebSocketHub

	mu        sync.Mutex
	target    string
	connected bool

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}

	// Loop timings, shortened in tests.
	backoff     time.Duration
	idlePoll    time.Duration
	dequeueWait time.Duration
	connectWait time.Duration
}

func NewLinkManager(transport Transport, queue *CommandQueue, hub *utils.WebSocketHub) *LinkManager {
	return &LinkManager{
		transport:   transport,
		queue:       queue,
		hub:         hub,
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
		backoff:     reconnectBackoff,
		idlePoll:    idlePollInterval,
		dequeueWait: dequeueTimeout,
		connectWait: connectTimeout,
	}
}

// SetTarget changes the device address. An empty address idles the loop; a
// change is observed at the top of the next loop iteration and tears down
// any live session before reconnecting. An in-flight write to the old
// address is never interrupted.
func (m *LinkManager) SetTarget(address string) {
	m.mu.Lock()
	m.target = address
	m.mu.Unlock()
	log.Printf("LINK: target set to %q", address)
}

// Target returns the configured device address.
func (m *LinkManager) Target() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.target
}

// IsConnected reports the last-known state of the physical link.
func (m *LinkManager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Start launches the background link loop.
func (m *LinkManager) Start() {
	go m.run()
}

// Stop terminates the loop after at most one in-flight operation completes
// or times out, then waits for it to exit.
func (m *LinkManager) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
	<-m.done
}

func (m *LinkManager) run() {
	defer close(m.done)

	var (
		conn    Connection
		current string // address conn was dialed to
	)
	teardown := func() {
		if conn == nil {
			return
		}
		if err := conn.Disconnect(); err != nil {
			log.Printf("LINK: disconnect from %s: %v", current, err)
		}
		conn = nil
		m.setConnected(false, current)
	}
	defer teardown()

	for {
		select {
		case <-m.stopChan:
			return
		default:
		}

		target := m.Target()

		// No device configured: idle at low frequency.
		if target == "" {
			teardown()
			if !m.sleep(m.idlePoll) {
				return
			}
			continue
		}

		// Target changed: the old session goes before dialing the new
		// address.
		if conn != nil && current != target {
			log.Printf("LINK: target changed from %s to %s, disconnecting", current, target)
			teardown()
		}

		if conn == nil {
			log.Printf("LINK: connecting to %s...", target)
			ctx, cancel := context.WithTimeout(context.Background(), m.connectWait)
			c, err := m.transport.Connect(ctx, target)
			cancel()
			if err != nil {
				log.Printf("LINK: connect to %s failed: %v", target, err)
				if !m.sleep(m.backoff) {
					return
				}
				continue
			}
			conn = c
			current = target
			m.setConnected(true, current)
			log.Printf("LINK: connected to %s", current)
		}

		cmd, ok := m.queue.Dequeue(m.dequeueWait)
		if !ok {
			// Nothing pending: verify the session is still alive before
			// the next wait.
			if !conn.Connected() {
				log.Printf("LINK: connection to %s lost", current)
				teardown()
				if !m.sleep(m.backoff) {
					return
				}
			}
			continue
		}

		// At-most-once delivery: a failed command is logged, not requeued.
		// Resending stale light commands after a reconnect could be
		// visually wrong; the HTTP layer reissues from desired state when
		// it wants to.
		start := time.Now()
		if err := conn.Write(cmd); err != nil {
			log.Printf("LINK: write to %s failed: %v", current, err)
			teardown()
			if !m.sleep(m.backoff) {
				return
			}
			continue
		}
		log.Printf("LINK: command sent in %s", time.Since(start).Round(time.Millisecond))
	}
}

func (m *LinkManager) setConnected(v bool, address string) {
	m.mu.Lock()
	changed := m.connected != v
	m.connected = v
	m.mu.Unlock()

	if !changed || m.hub == nil {
		return
	}
	event := "bluetooth/disconnected"
	if v {
		event = "bluetooth/connected"
	}
	m.hub.Broadcast(utils.WebSocketEvent{
		Type: event,
		Payload: map[string]interface{}{
			"address":   address,
			"timestamp": time.Now().Unix(),
		},
	})
}

// sleep waits for d, returning false if the stop signal arrived first.
func (m *LinkManager) sleep(d time.Duration) bool {
	select {
	case <-m.stopChan:
		return false
	case <-time.After(d):
		return true
	}
}
