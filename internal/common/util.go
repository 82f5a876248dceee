package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString generates a random hexadecimal string of the given size.
// The size parameter is the number of random bytes, so the resulting string
// is twice as long. It returns an error if the random number generator fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray overwrites the contents of b with zeros. It is used to drop
// passwords read from the terminal as soon as they have been sent.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
