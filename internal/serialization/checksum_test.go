package serialization

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecksum(t *testing.T) {
	sum := ComputeChecksum([]byte("hello world"))
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", hex.EncodeToString(sum[:]))
	assert.NotEqual(t, sum, ComputeChecksum([]byte("hello world!")))

	assert.NoError(t, ValidateChecksum(sum, sum))
	assert.ErrorIs(t, ValidateChecksum(sum, [32]byte{1, 2, 3}), ErrChecksumMismatch)
}
