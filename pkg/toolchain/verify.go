package toolchain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"
)

// ErrDigestMismatch is returned by VerifySHA256 when the computed
// digest of the data does not match the pinned digest.
var ErrDigestMismatch = errors.New("digest mismatch")

// ErrMalformedDigest is returned by VerifySHA256 when the expected
// digest is not a valid hex string.
var ErrMalformedDigest = errors.New("malformed expected digest")

// VerifySHA256 computes the SHA-256 digest of data and compares it
// against expectedHex. It has no side effects. Downloaded archives
// must pass this gate before anything is extracted from them.
func VerifySHA256(data []byte, expectedHex string) error {
	expected, err := hex.DecodeString(expectedHex)
	if err != nil {
		return errors.Wrapf(ErrMalformedDigest, "decoding %q: %v", expectedHex, err)
	}

	sum := sha256.Sum256(data)
	if !bytes.Equal(sum[:], expected) {
		return errors.Wrapf(ErrDigestMismatch, "expected %s, got %s", expectedHex, hex.EncodeToString(sum[:]))
	}

	return nil
}
