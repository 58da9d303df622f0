package core

import (
	"crypto/rand"
	"encoding/hex"

	"pkt.systems/mavdeck/schema"
)

func newID() schema.SessionID {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "session-unknown"
	}
	return schema.SessionID(hex.EncodeToString(buf[:]))
}
