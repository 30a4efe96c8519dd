package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func uniformPage(value uint32, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = value
	}
	return out
}

func TestRLERoundTrip(t *testing.T) {
	voxels := uniformPage(7, 4096)
	encoded := EncodeRLE(voxels)
	assert.Less(t, len(encoded), len(voxels)*4, "a uniform page should compress well under RLE")
	assert.Equal(t, voxels, DecodeRLE(encoded))
}

func TestBitPackedRoundTrip(t *testing.T) {
	voxels := make([]uint32, 64)
	voxels[3] = 9
	voxels[40] = 2

	encoded := EncodeBitPacked(voxels)
	decoded := DecodeBitPacked(encoded, len(voxels))
	assert.Equal(t, voxels, decoded)
}

func TestPalettizedRoundTrip(t *testing.T) {
	voxels := []uint32{0, 1, 2, 1, 0, 2, 2, 1, 0, 3}
	encoded := EncodePalettized(voxels)
	decoded := DecodePalettized(encoded, len(voxels))
	assert.Equal(t, voxels, decoded)
}

func TestChooseSmallestPicksRLEForUniformPages(t *testing.T) {
	voxels := uniformPage(1, 4096)
	ctype, data := ChooseSmallest(voxels)
	assert.Equal(t, CompressionRLE, ctype)
	assert.Equal(t, voxels, Decode(ctype, data, len(voxels)))
}

func TestCodecsImplementCodecInterface(t *testing.T) {
	var codecs []Codec = []Codec{RLECodec{}, BitPackedCodec{}, PalettizedCodec{}, HybridCodec{}}
	voxels := []uint32{0, 0, 5, 5, 5, 2}

	for _, c := range codecs {
		encoded, err := c.Encode(voxels)
		assert.NoError(t, err)
		assert.NotEmpty(t, encoded)
	}
}

func TestHybridCodecDecodeIsUnsupported(t *testing.T) {
	_, err := HybridCodec{}.Decode([]byte{1, 2, 3}, 3)
	assert.Error(t, err)
}
