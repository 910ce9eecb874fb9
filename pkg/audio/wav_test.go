package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeHeader(t *testing.T) {
	pcm := make([]byte, 480) // 10ms of 24kHz mono s16
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, pcm, Speech))

	out := buf.Bytes()
	require.Len(t, out, headerSize+len(pcm))
	assert.Equal(t, "RIFF", string(out[0:4]))
	assert.Equal(t, uint32(36+480), binary.LittleEndian.Uint32(out[4:]))
	assert.Equal(t, "WAVE", string(out[8:12]))
	assert.Equal(t, "fmt ", string(out[12:16]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(out[22:]))
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(out[24:]))
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(out[28:]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(out[32:]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(out[34:]))
	assert.Equal(t, "data", string(out[36:40]))
	assert.Equal(t, uint32(480), binary.LittleEndian.Uint32(out[40:]))
}

func TestEncodeRejectsBadInput(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Encode(&buf, []byte{1, 2, 3}, Speech))
	assert.Error(t, Encode(&buf, nil, Format{SampleRate: 8000, Channels: 1, BitsPerSample: 12}))
	assert.Zero(t, buf.Len())
}

func TestDuration(t *testing.T) {
	assert.InDelta(t, 1.0, Speech.Duration(48000), 1e-9)
	assert.Zero(t, Format{}.Duration(100))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speech", "reply.wav")
	require.NoError(t, WriteFile(path, []byte{0, 0, 1, 0}, Speech))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, headerSize+4)
}
