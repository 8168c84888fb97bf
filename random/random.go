package random

import (
	crand "crypto/rand"
	mrand "math/rand"
)

const charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// maxByte is the largest multiple of len(charset) that fits in a byte; bytes
// at or above it are rejected so every character stays equally likely.
const maxByte = 256 - 256%len(charset)

// String is fast and predictable; use it for identifiers, never for secrets.
func String(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[mrand.Intn(len(charset))]
	}
	return string(b)
}

// StringSecure draws from crypto/rand. Used for lock tokens and oauth state.
func StringSecure(length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)
	for len(out) < length {
		if _, err := crand.Read(buf); err != nil {
			return "", err
		}
		for _, c := range buf {
			if int(c) >= maxByte {
				continue
			}
			out = append(out, charset[int(c)%len(charset)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
