package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Normalizer converts arbitrary uploaded audio into canonical mono 16 kHz
// 16-bit PCM WAV.
type Normalizer struct {
	tool Tool
	log  *slog.Logger
}

func NewNormalizer(tool Tool, log *slog.Logger) *Normalizer {
	return &Normalizer{
		tool: tool,
		log:  log.With(slog.String("component", "normalizer")),
	}
}

// IsWAV reports whether data carries the RIFF/WAVE signature.
func IsWAV(data []byte) bool {
	return len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

// IsMP3 reports whether data looks like an MP3 variant, either by declared
// mime type, an ID3 tag, or an MPEG frame sync at the start.
func IsMP3(data []byte, mimeType string) bool {
	mt := strings.ToLower(mimeType)
	if strings.Contains(mt, "mpeg") || strings.Contains(mt, "mp3") {
		return true
	}
	if len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")) {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

// Normalize returns bytes guaranteed to be valid RIFF/WAVE. Input that
// already passes the signature check and is not an MP3 variant is returned
// unchanged; everything else goes through the transcoding tool.
func (n *Normalizer) Normalize(ctx context.Context, data []byte, mimeType string) ([]byte, error) {
	if IsWAV(data) && !IsMP3(data, mimeType) {
		return data, nil
	}
	return n.transcode(ctx, data, mimeType)
}

func (n *Normalizer) transcode(ctx context.Context, data []byte, mimeType string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "lingua_transcode_*")
	if err != nil {
		return nil, fmt.Errorf("create transcode dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input"+extensionForMime(mimeType))
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, fmt.Errorf("write transcode input: %w", err)
	}
	out := filepath.Join(dir, "output.wav")

	cmd := exec.CommandContext(ctx, n.tool.Path,
		"-y", "-i", in,
		"-ac", "1", "-ar", "16000",
		"-acodec", "pcm_s16le",
		"-f", "wav",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("transcode failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	result, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("read transcode output: %w", err)
	}
	if !IsWAV(result) {
		return nil, fmt.Errorf("transcode output failed RIFF/WAVE validation (%d bytes)", len(result))
	}

	n.log.Debug("transcoded audio",
		slog.String("mime", mimeType),
		slog.Int("in_bytes", len(data)),
		slog.Int("out_bytes", len(result)))
	return result, nil
}

func extensionForMime(mimeType string) string {
	mt := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mt, "mpeg"), strings.Contains(mt, "mp3"):
		return ".mp3"
	case strings.Contains(mt, "ogg"):
		return ".ogg"
	case strings.Contains(mt, "webm"):
		return ".webm"
	case strings.Contains(mt, "mp4"), strings.Contains(mt, "m4a"), strings.Contains(mt, "aac"):
		return ".m4a"
	case strings.Contains(mt, "flac"):
		return ".flac"
	default:
		return ".bin"
	}
}
