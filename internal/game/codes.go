package game

import (
	"crypto/rand"
	"math/big"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeLength   = 6
	roomCodeAttempts = 32
)

func newRoomCode() string {
	buf := make([]byte, roomCodeLength)
	limit := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "AAAAAA"
		}
		buf[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(buf)
}

func validRoomCode(code string) bool {
	if len(code) != roomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
