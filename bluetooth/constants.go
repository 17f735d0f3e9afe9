package bluetooth

import "time"

// BlueZ bus and interface names.
const (
	bluezBusName            = "org.bluez"
	adapterInterface        = "org.bluez.Adapter1"
	deviceInterface         = "org.bluez.Device1"
	characteristicInterface = "org.bluez.GattCharacteristic1"
	objectManagerInterface  = "org.freedesktop.DBus.ObjectManager"
	propertiesInterface     = "org.freedesktop.DBus.Properties"
)

// ControlCharacteristicUUID is the writable GATT attribute on iStrip+
// strips that accepts encrypted command frames.
const ControlCharacteristicUUID = "0000ac52-1212-efde-1523-785fedbeda25"

// Command frame layout. The plaintext is exactly one AES block.
const (
	frameSize      = 16
	commandTypeRGB = 0x02
	groupID        = 0x01
)

// DefaultSpeed is the transition speed byte sent when the caller has no
// preference. The firmware default is full speed.
const DefaultSpeed = 100

// frameHeader is the fixed protocol identifier at the start of every frame.
var frameHeader = [4]byte{0x54, 0x52, 0x00, 0x57}

// cipherKey is the pre-shared AES key baked into the strip firmware. All
// iStrip+ strips use the same key.
var cipherKey = []byte{
	0x34, 0x52, 0x2A, 0x5B,
	0x7A, 0x6E, 0x49, 0x2C,
	0x08, 0x09, 0x0A, 0x9D,
	0x8D, 0x2A, 0x23, 0xF8,
}

// Link loop timings.
const (
	connectTimeout   = 10 * time.Second
	dequeueTimeout   = time.Second
	idlePollInterval = time.Second
	reconnectBackoff = 2 * time.Second
)

// stripNameMarkers identify iStrip+ strips among scan results.
var stripNameMarkers = []string{"SSL-", "YH-", "iStrip"}
