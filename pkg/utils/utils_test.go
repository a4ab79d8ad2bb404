package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressData(t *testing.T) {
	raw := []byte(`{"type":"CALL","from":"0x1","to":"0x2","calls":[]}`)
	compressed, err := CompressData(raw)
	require.NoError(t, err)

	decompressed, err := DecompressData(compressed)
	require.NoError(t, err)
	assert.Equal(t, raw, decompressed)

	_, err = DecompressData([]byte("not gzip"))
	assert.Error(t, err)
}

func TestGetHashBucket(t *testing.T) {
	assert.Equal(t, GetHashBucket("0xabc", 16), GetHashBucket("0xabc", 16))
	assert.Less(t, GetHashBucket("0xdef", 16), uint32(16))
	assert.Equal(t, uint32(0), GetHashBucket("0xabc", 0))
}
