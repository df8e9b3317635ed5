package toolchain

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifySHA256(t *testing.T) {
	t.Parallel()

	payload := []byte("the quick brown fox jumps over the lazy dog")
	sum := sha256.Sum256(payload)
	digest := hex.EncodeToString(sum[:])

	require.NoError(t, VerifySHA256(payload, digest))
}

func TestVerifySHA256Mismatch(t *testing.T) {
	t.Parallel()

	payload := []byte("the quick brown fox jumps over the lazy dog")
	sum := sha256.Sum256(payload)
	digest := hex.EncodeToString(sum[:])

	// Flipping any single bit must fail verification.
	for i := range payload {
		flipped := make([]byte, len(payload))
		copy(flipped, payload)
		flipped[i] ^= 0x01

		err := VerifySHA256(flipped, digest)
		require.ErrorIs(t, err, ErrDigestMismatch)
	}
}

func TestVerifySHA256MalformedDigest(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		digest string
	}{
		{digest: "zzzz"},
		{digest: "abc"},
		{digest: "0x1234"},
		{digest: "37f0a533b0978a454efb5dc3bd3598becf9660aaf4287e55bf68ca6b527d051"},
	}

	for _, tt := range tests {
		err := VerifySHA256([]byte("data"), tt.digest)
		require.ErrorIs(t, err, ErrMalformedDigest, "digest %q", tt.digest)
	}
}
