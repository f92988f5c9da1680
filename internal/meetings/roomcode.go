package meetings

import (
	"math/rand"
	"strconv"
)

const roomCodeLength = 8

// NewRoomCode validates an explicit room code or generates a random one.
// Room codes are exactly 8 digits; they are shareable identifiers, not
// secrets. Uniqueness is not checked here — the meetings unique index
// surfaces duplicates as a conflict.
func NewRoomCode(code string) (string, error) {
	if code != "" {
		if len(code) != roomCodeLength {
			return "", Errf(KindValidation, "room code must be exactly %d digits", roomCodeLength)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				return "", Errf(KindValidation, "room code must be exactly %d digits", roomCodeLength)
			}
		}
		return code, nil
	}
	return strconv.Itoa(10000000 + rand.Intn(90000000)), nil
}
