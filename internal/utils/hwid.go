package utils

import (
	"github.com/denisbrodbeck/machineid"
)

// HWID identifies this device to the origin: an app-scoped hash of the machine id.
var HWID = deviceID()

func deviceID() string {
	id, err := machineid.ProtectedID("scriptsync")
	if err != nil || id == "" {
		return "unknown"
	}
	if len(id) > 16 {
		id = id[:16]
	}
	return id
}
