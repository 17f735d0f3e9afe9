package bluetooth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

// BluezTransport dials strips through the BlueZ daemon on the system bus.
// It implements Transport.
type BluezTransport struct {
	conn               *dbus.Conn
	characteristicUUID string
}

// NewBluezTransport connects to the system bus and verifies that BlueZ is
// present.
func NewBluezTransport() (*BluezTransport, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}
	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	found := false
	for _, n := range names {
		if n == bluezBusName {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%s not found on system bus, is bluetooth.service running?", bluezBusName)
	}
	return &BluezTransport{
		conn:               conn,
		characteristicUUID: ControlCharacteristicUUID,
	}, nil
}

// Connect dials the device at address and resolves its control
// characteristic. The context bounds the whole attempt. BlueZ performs
// service discovery as part of connection setup, so the characteristic may
// take a moment to appear after Connect returns.
func (t *BluezTransport) Connect(ctx context.Context, address string) (Connection, error) {
	adapterPath, err := t.findAdapter()
	if err != nil {
		return nil, err
	}
	devicePath := deviceObjectPath(adapterPath, address)
	device := t.conn.Object(bluezBusName, devicePath)

	if err := device.CallWithContext(ctx, deviceInterface+".Connect", 0).Store(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", address, err)
	}

	char, err := t.resolveCharacteristic(ctx, devicePath)
	if err != nil {
		device.Call(deviceInterface+".Disconnect", 0)
		return nil, err
	}

	return &bluezConnection{device: device, characteristic: char}, nil
}

// deviceObjectPath maps "AA:BB:CC:DD:EE:FF" to the BlueZ object path under
// the adapter, e.g. /org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF.
func deviceObjectPath(adapter dbus.ObjectPath, address string) dbus.ObjectPath {
	escaped := strings.ReplaceAll(strings.ToUpper(address), ":", "_")
	return dbus.ObjectPath(string(adapter) + "/dev_" + escaped)
}

func (t *BluezTransport) getManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	obj := t.conn.Object(bluezBusName, "/")
	if err := obj.Call(objectManagerInterface+".GetManagedObjects", 0).Store(&objects); err != nil {
		return nil, fmt.Errorf("get managed objects: %w", err)
	}
	return objects, nil
}

func (t *BluezTransport) findAdapter() (dbus.ObjectPath, error) {
	objects, err := t.getManagedObjects()
	if err != nil {
		return "", err
	}
	for path, ifaces := range objects {
		if _, ok := ifaces[adapterInterface]; ok {
			return path, nil
		}
	}
	return "", fmt.Errorf("bluetooth adapter not found")
}

// resolveCharacteristic polls the object tree until the control
// characteristic under the device shows up or the context expires.
func (t *BluezTransport) resolveCharacteristic(ctx context.Context, device dbus.ObjectPath) (dbus.BusObject, error) {
	want := strings.ToLower(t.characteristicUUID)
	for {
		objects, err := t.getManagedObjects()
		if err != nil {
			return nil, err
		}
		for path, ifaces := range objects {
			char, ok := ifaces[characteristicInterface]
			if !ok || !strings.HasPrefix(string(path), string(device)) {
				continue
			}
			uuid, _ := char["UUID"].Value().(string)
			if strings.ToLower(uuid) == want {
				return t.conn.Object(bluezBusName, path), nil
			}
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("characteristic %s not found on %s: %w", t.characteristicUUID, device, ctx.Err())
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// bluezConnection is one live GATT session, exclusively held by the link
// manager.
type bluezConnection struct {
	device         dbus.BusObject
	characteristic dbus.BusObject
}

// Write delivers one frame as a write-without-response; the strip protocol
// defines no acknowledgment channel.
func (c *bluezConnection) Write(cmd []byte) error {
	options := map[string]interface{}{"type": "command"}
	if err := c.characteristic.Call(characteristicInterface+".WriteValue", 0, cmd, options).Store(); err != nil {
		return fmt.Errorf("write characteristic: %w", err)
	}
	return nil
}

func (c *bluezConnection) Connected() bool {
	var v dbus.Variant
	if err := c.device.Call(propertiesInterface+".Get", 0, deviceInterface, "Connected").Store(&v); err != nil {
		return false
	}
	connected, _ := v.Value().(bool)
	return connected
}

func (c *bluezConnection) Disconnect() error {
	if err := c.device.Call(deviceInterface+".Disconnect", 0).Store(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}
