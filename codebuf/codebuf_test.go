package codebuf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rv32emu/rv32emu/codebuf"
)

func TestBuffer_EmitAndSeal(t *testing.T) {
	buf, err := codebuf.New(4096)
	require.NoError(t, err)
	defer buf.Close()

	require.NoError(t, buf.EmitU32(0xD503201F)) // NOP
	require.NoError(t, buf.EmitU32(0xD65F03C0)) // RET
	assert.Equal(t, 8, buf.Len())

	require.NoError(t, buf.Seal())
	assert.True(t, buf.Sealed())

	bytes := buf.Bytes()
	assert.Equal(t, []byte{0x1F, 0x20, 0x03, 0xD5, 0xC0, 0x03, 0x5F, 0xD6}, bytes)
}

func TestBuffer_WriteAfterSealFails(t *testing.T) {
	buf, err := codebuf.New(64)
	require.NoError(t, err)
	defer buf.Close()

	require.NoError(t, buf.Seal())

	err = buf.EmitU8(0x00)
	require.Error(t, err)
	var sealed *codebuf.SealedBufferError
	require.ErrorAs(t, err, &sealed)
}

func TestBuffer_OverflowIsRejected(t *testing.T) {
	buf, err := codebuf.New(4)
	require.NoError(t, err)
	defer buf.Close()

	require.NoError(t, buf.EmitU32(0))
	err = buf.EmitU8(0)
	require.Error(t, err)
	var overflow *codebuf.OverflowError
	require.ErrorAs(t, err, &overflow)
}
