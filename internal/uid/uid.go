/*
Package uid – random identifiers for stored records.

Ids use a Crockford-style base-32 alphabet from crypto/rand.
*/
package uid

import (
	"crypto/rand"
	"math"
)

// Crockford base-32 alphabet (excludes I, L, O, U).
// The last character 'Z' is repeated so that rand==0xFF maps cleanly.
const letters = "0123456789ABCDEFGHJKMNPQRSTVWXYZZ"

const lettersLen = len(letters) - 1 // 32

// RecordIDLen is the length of the random part of a record id.
const RecordIDLen = 14

// RecordPrefix starts every record id.
const RecordPrefix = "rec"

// UID generates a crypto-random string of the given length using base-32 encoding.
// Size >= 10 is suitably unique for most use-cases.
func UID(size int) string {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		panic("uid: crypto/rand read failed: " + err.Error())
	}
	out := make([]byte, size)
	for i := 0; i < size; i++ {
		idx := int(math.Floor(float64(buf[i]) / 0xff * float64(lettersLen)))
		out[i] = letters[idx]
	}
	return string(out)
}

// RecordID returns a new record id: "rec" followed by 14 random characters.
func RecordID() string {
	return RecordPrefix + UID(RecordIDLen)
}

// IsRecordID reports whether s has the shape of a record id.
func IsRecordID(s string) bool {
	if len(s) != len(RecordPrefix)+RecordIDLen || s[:len(RecordPrefix)] != RecordPrefix {
		return false
	}
	for i := len(RecordPrefix); i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z') || c == 'I' || c == 'L' || c == 'O' || c == 'U' {
			return false
		}
	}
	return true
}
