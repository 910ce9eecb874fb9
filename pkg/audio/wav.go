// Package audio wraps synthesized speech in a WAV container so any
// player can open it.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Format of the PCM produced by the speech model.
const (
	SampleRate    = 24000
	Channels      = 1
	BitsPerSample = 16
)

const headerSize = 44

// Format describes interleaved little-endian PCM.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// Speech is the format returned by the speech model.
var Speech = Format{SampleRate: SampleRate, Channels: Channels, BitsPerSample: BitsPerSample}

func (f Format) blockAlign() int { return f.Channels * f.BitsPerSample / 8 }

// Duration returns the play time of n bytes of PCM, in seconds.
func (f Format) Duration(n int) float64 {
	if f.SampleRate == 0 || f.blockAlign() == 0 {
		return 0
	}
	return float64(n/f.blockAlign()) / float64(f.SampleRate)
}

// Encode writes a RIFF/WAVE header followed by pcm.
func Encode(w io.Writer, pcm []byte, f Format) error {
	if f.SampleRate <= 0 || f.Channels <= 0 || f.BitsPerSample <= 0 || f.BitsPerSample%8 != 0 {
		return fmt.Errorf("invalid pcm format %+v", f)
	}
	if len(pcm)%f.blockAlign() != 0 {
		return errors.New("pcm length is not a whole number of frames")
	}

	header := make([]byte, headerSize)
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], uint32(36+len(pcm)))
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:], uint16(f.Channels))
	binary.LittleEndian.PutUint32(header[24:], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(f.SampleRate*f.blockAlign()))
	binary.LittleEndian.PutUint16(header[32:], uint16(f.blockAlign()))
	binary.LittleEndian.PutUint16(header[34:], uint16(f.BitsPerSample))
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(len(pcm)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}

// WriteFile saves pcm as a WAV file at path.
func WriteFile(path string, pcm []byte, f Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(out, pcm, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
