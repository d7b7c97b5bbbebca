// Package id generates request identifiers.
package id

import (
	"crypto/rand"
	"encoding/binary"
	"strings"
	"time"
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// ULIDLen is the length of an encoded ULID.
const ULIDLen = 26

// NewULID returns a 26-character ULID: 48 bits of millisecond time followed
// by 80 random bits, Crockford base32 encoded. IDs sort by creation time.
func NewULID() string {
	return newULID(time.Now())
}

func newULID(t time.Time) string {
	var raw [16]byte
	binary.BigEndian.PutUint64(raw[:8], uint64(t.UnixMilli())<<16)
	if _, err := rand.Read(raw[6:]); err != nil {
		binary.BigEndian.PutUint64(raw[8:], uint64(t.UnixNano()))
	}

	// 128 bits packed into 26 five-bit groups; the first group carries 3 bits.
	hi := binary.BigEndian.Uint64(raw[:8])
	lo := binary.BigEndian.Uint64(raw[8:])

	var out [ULIDLen]byte
	for i := ULIDLen - 1; i >= 0; i-- {
		out[i] = crockford[lo&0x1F]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}

// ULIDTime returns the timestamp encoded in a ULID.
func ULIDTime(s string) (time.Time, bool) {
	if !IsULID(s) {
		return time.Time{}, false
	}
	var ms uint64
	for i := range 10 {
		ms = ms<<5 | uint64(strings.IndexByte(crockford, s[i]))
	}
	return time.UnixMilli(int64(ms)), true
}

// IsULID reports whether s is a well-formed upper-case ULID.
func IsULID(s string) bool {
	if len(s) != ULIDLen || s[0] > '7' {
		return false
	}
	for i := range len(s) {
		if strings.IndexByte(crockford, s[i]) < 0 {
			return false
		}
	}
	return true
}
