package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
)

// PCMClip is decoded audio ready to push into a recognition session.
type PCMClip struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Data       []byte // little-endian PCM samples
}

func (c PCMClip) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 || c.BitDepth == 0 {
		return 0
	}
	bytesPerSecond := c.SampleRate * c.Channels * c.BitDepth / 8
	return time.Duration(len(c.Data)) * time.Second / time.Duration(bytesPerSecond)
}

// DecodeClip extracts raw PCM and its format descriptor from WAV bytes.
// The WAV decoder rejects some otherwise-valid files (nonstandard extra
// chunks ahead of the data chunk), so on rejection we walk the RIFF chunk
// table ourselves and assemble the clip by hand.
func DecodeClip(data []byte) (PCMClip, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if d.IsValidFile() {
		buf, err := d.FullPCMBuffer()
		if err == nil {
			return clipFromBuffer(buf, int(d.BitDepth))
		}
	}
	return decodeRIFFClip(data)
}

func clipFromBuffer(buf *gaudio.IntBuffer, bitDepth int) (PCMClip, error) {
	if bitDepth != 16 {
		return PCMClip{}, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
	pcm := make([]byte, len(buf.Data)*2)
	for i, sample := range buf.Data {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(sample)))
	}
	return PCMClip{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		BitDepth:   16,
		Data:       pcm,
	}, nil
}

func decodeRIFFClip(data []byte) (PCMClip, error) {
	parser := riff.New(bytes.NewReader(data))
	if err := parser.ParseHeaders(); err != nil {
		return PCMClip{}, fmt.Errorf("parse riff headers: %w", err)
	}

	var clip PCMClip
	var haveFmt, haveData bool
	for {
		chunk, err := parser.NextChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			return PCMClip{}, fmt.Errorf("walk riff chunks: %w", err)
		}
		switch chunk.ID {
		case riff.FmtID:
			if err := chunk.DecodeWavHeader(parser); err != nil {
				return PCMClip{}, fmt.Errorf("decode fmt chunk: %w", err)
			}
			clip.SampleRate = int(parser.SampleRate)
			clip.Channels = int(parser.NumChannels)
			clip.BitDepth = int(parser.BitsPerSample)
			haveFmt = true
		case riff.DataFormatID:
			pcm := make([]byte, chunk.Size)
			if _, err := io.ReadFull(chunk, pcm); err != nil {
				return PCMClip{}, fmt.Errorf("read data chunk: %w", err)
			}
			clip.Data = pcm
			haveData = true
		default:
			chunk.Drain()
		}
		if haveFmt && haveData {
			break
		}
	}

	if !haveFmt {
		return PCMClip{}, fmt.Errorf("riff stream has no fmt chunk")
	}
	if !haveData {
		return PCMClip{}, fmt.Errorf("riff stream has no data chunk")
	}
	return clip, nil
}

// EncodeWAV writes the clip as a RIFF/WAVE stream.
func EncodeWAV(ws io.WriteSeeker, clip PCMClip) error {
	if clip.BitDepth != 16 {
		return fmt.Errorf("unsupported bit depth %d", clip.BitDepth)
	}
	if len(clip.Data)%2 != 0 {
		return fmt.Errorf("pcm payload not aligned")
	}
	samples := make([]int, len(clip.Data)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(clip.Data[i*2:])))
	}
	buffer := &gaudio.IntBuffer{
		Format: &gaudio.Format{NumChannels: clip.Channels, SampleRate: clip.SampleRate},
		Data:   samples,
	}

	enc := wav.NewEncoder(ws, clip.SampleRate, clip.BitDepth, clip.Channels, 1)
	if err := enc.Write(buffer); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}
