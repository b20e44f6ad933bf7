package utils

import (
	"github.com/denisbrodbeck/machineid"
	"github.com/google/uuid"
)

// HWID identifies this machine to the server without exposing the raw machine id.
// Hosts without a readable machine id get a random id per process.
var HWID = hardwareID()

func hardwareID() string {
	id, err := machineid.ProtectedID("simlog")
	if err != nil || id == "" {
		return uuid.NewString()
	}
	return id
}
