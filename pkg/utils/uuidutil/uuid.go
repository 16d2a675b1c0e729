package uuidutil

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

var escaper = strings.NewReplacer("9", "99", "-", "90", "_", "91")

// UUID returns a dash-less hex id used for devices and the gateway.
func UUID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// ShortUUID is used for MQTT client ids, which brokers may cap at 23 bytes.
// Refer to https://stackoverflow.com/questions/37934162/output-uuid-in-go-as-a-short-string
func ShortUUID() string {
	id := uuid.New()
	return escaper.Replace(base64.RawURLEncoding.EncodeToString(id[:]))
}
