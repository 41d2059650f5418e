package ldappasswd

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

const (
	// SSHA512Prefix is the RFC 2307 scheme tag for salted SHA-512 values.
	SSHA512Prefix = "{SSHA512}"

	// SaltSize is the number of random salt bytes appended to the digest.
	SaltSize = 8
)

// saltReader is the entropy source for salts.
var saltReader io.Reader = rand.Reader

// HashPassword returns the value sent to the directory for password under
// the given algorithm. Cleartext returns the password unchanged.
func HashPassword(algorithm Algorithm, password string) (string, error) {
	switch algorithm {
	case AlgorithmCleartext, "":
		return password, nil
	case AlgorithmSHA512:
		salt := make([]byte, SaltSize)
		if _, err := io.ReadFull(saltReader, salt); err != nil {
			return "", fmt.Errorf("failed to generate salt: %w", err)
		}
		return hashSSHA512(password, salt), nil
	default:
		return "", validationError("algorithm", algorithm, fmt.Sprintf("unsupported algorithm %q", algorithm))
	}
}

// hashSSHA512 computes {SSHA512}base64(sha512(password || salt) || salt).
func hashSSHA512(password string, salt []byte) string {
	h := sha512.New()
	h.Write([]byte(password))
	h.Write(salt)
	digest := h.Sum(nil)

	return SSHA512Prefix + base64.StdEncoding.EncodeToString(append(digest, salt...))
}

// VerifySSHA512 reports whether hashed is the {SSHA512} value of password.
func VerifySSHA512(hashed, password string) bool {
	encoded, ok := strings.CutPrefix(hashed, SSHA512Prefix)
	if !ok {
		return false
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(raw) <= sha512.Size {
		return false
	}

	salt := raw[sha512.Size:]
	return subtle.ConstantTimeCompare([]byte(hashSSHA512(password, salt)), []byte(hashed)) == 1
}
