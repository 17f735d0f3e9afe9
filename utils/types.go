package utils

// WebSocketEvent is the envelope for events pushed to /ws subscribers.
type WebSocketEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// DiscoveredDevice describes one radio seen during a discovery scan.
type DiscoveredDevice struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	RSSI    int16  `json:"rssi"`
}
