package bluetooth

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/niks-yad/BLE-HomeKit-Bridge/utils"
)

// Scan performs a one-shot discovery of nearby strips: it starts discovery
// on the adapter, waits for the window to elapse and reports devices whose
// names look like iStrip+ strips. Stateless; each call is independent of
// the managed link.
func (t *BluezTransport) Scan(window time.Duration) ([]utils.DiscoveredDevice, error) {
	adapterPath, err := t.findAdapter()
	if err != nil {
		return nil, err
	}
	adapter := t.conn.Object(bluezBusName, adapterPath)

	if err := adapter.Call(adapterInterface+".StartDiscovery", 0).Store(); err != nil {
		return nil, fmt.Errorf("start discovery: %w", err)
	}
	defer func() {
		if err := adapter.Call(adapterInterface+".StopDiscovery", 0).Store(); err != nil {
			log.Printf("SCAN: stop discovery: %v", err)
		}
	}()

	time.Sleep(window)

	objects, err := t.getManagedObjects()
	if err != nil {
		return nil, err
	}

	var devices []utils.DiscoveredDevice
	for _, ifaces := range objects {
		dev, ok := ifaces[deviceInterface]
		if !ok {
			continue
		}
		name, _ := dev["Name"].Value().(string)
		if !isStripName(name) {
			continue
		}
		address, _ := dev["Address"].Value().(string)
		rssi, _ := dev["RSSI"].Value().(int16)
		devices = append(devices, utils.DiscoveredDevice{
			Name:    name,
			Address: address,
			RSSI:    rssi,
		})
	}
	log.Printf("SCAN: found %d strip(s)", len(devices))
	return devices, nil
}

func isStripName(name string) bool {
	for _, marker := range stripNameMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
