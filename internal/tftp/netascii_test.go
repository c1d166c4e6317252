package tftp

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wjemai/tftpd/pkg/wire"
)

func TestNetascii_LoneLF(t *testing.T) {
	tr := &netasciiTranslator{}
	br := bufio.NewReader(bytes.NewReader([]byte{0x0A, 'B'}))

	block, err := tr.FillBlock(br)
	require.NoError(t, err)
	assert.Equal(t, []byte{'\r', '\n', 'B'}, block)
	assert.Less(t, len(block), wire.MaxPayloadSize)
}

func TestNetascii_LoneCR(t *testing.T) {
	tr := &netasciiTranslator{}
	br := bufio.NewReader(bytes.NewReader([]byte{0x0D, 'B'}))

	block, err := tr.FillBlock(br)
	require.NoError(t, err)
	assert.Equal(t, []byte{'\r', 0x00, 'B'}, block)
}

func TestNetascii_CRLFPair(t *testing.T) {
	tr := &netasciiTranslator{}
	br := bufio.NewReader(bytes.NewReader([]byte{0x0D, 0x0A, 'B'}))

	block, err := tr.FillBlock(br)
	require.NoError(t, err)
	assert.Equal(t, []byte{'\r', '\n', 'B'}, block)
}

func TestNetascii_ThreeByteScenario(t *testing.T) {
	tr := &netasciiTranslator{}
	br := bufio.NewReader(bytes.NewReader([]byte{0x0A, 0x0D, 0x42}))

	block, err := tr.FillBlock(br)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0D, 0x0A, 0x0D, 0x00, 0x42}, block)
}

func TestNetascii_PendingLFCarriesAcrossBlockBoundary(t *testing.T) {
	src := append(bytes.Repeat([]byte{'A'}, 511), '\n', 'X')
	tr := &netasciiTranslator{}
	br := bufio.NewReader(bytes.NewReader(src))

	first, err := tr.FillBlock(br)
	require.NoError(t, err)
	assert.Len(t, first, wire.MaxPayloadSize)
	assert.Equal(t, byte('\r'), first[wire.MaxPayloadSize-1])
	assert.True(t, tr.pendingLF)

	second, err := tr.FillBlock(br)
	require.NoError(t, err)
	assert.Equal(t, []byte{'\n', 'X'}, second)
	assert.False(t, tr.pendingLF)
}

func TestNetascii_PendingNULCarriesAcrossBlockBoundary(t *testing.T) {
	src := append(bytes.Repeat([]byte{'A'}, 511), '\r', 'X')
	tr := &netasciiTranslator{}
	br := bufio.NewReader(bytes.NewReader(src))

	first, err := tr.FillBlock(br)
	require.NoError(t, err)
	assert.Len(t, first, wire.MaxPayloadSize)
	assert.Equal(t, byte('\r'), first[wire.MaxPayloadSize-1])
	assert.True(t, tr.pendingNUL)

	second, err := tr.FillBlock(br)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 'X'}, second)
	assert.False(t, tr.pendingNUL)
}

func TestNetascii_SuppressCRNextCarriesAcrossBlockBoundary(t *testing.T) {
	src := append(bytes.Repeat([]byte{'A'}, 511), '\r', '\n', 'X')
	tr := &netasciiTranslator{}
	br := bufio.NewReader(bytes.NewReader(src))

	first, err := tr.FillBlock(br)
	require.NoError(t, err)
	assert.Len(t, first, wire.MaxPayloadSize)
	assert.Equal(t, byte('\r'), first[wire.MaxPayloadSize-1])
	assert.True(t, tr.suppressCRNext)

	second, err := tr.FillBlock(br)
	require.NoError(t, err)
	assert.Equal(t, []byte{'\n', 'X'}, second)
	assert.False(t, tr.suppressCRNext)
}

func TestNetascii_EOFYieldsShortFinalBlock(t *testing.T) {
	tr := &netasciiTranslator{}
	br := bufio.NewReader(bytes.NewReader([]byte{'h', 'i'}))

	block, err := tr.FillBlock(br)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), block)
	assert.Less(t, len(block), wire.MaxPayloadSize)
}
