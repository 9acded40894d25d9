package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/lingualabs/lingua-core/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func makeWAV(t *testing.T, sampleRate, channels int, sampleCount int) []byte {
	t.Helper()
	pcm := make([]byte, sampleCount*2*channels)
	for i := 0; i < len(pcm)/2; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(i%2000-1000)))
	}
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	clip := PCMClip{SampleRate: sampleRate, Channels: channels, BitDepth: 16, Data: pcm}
	if err := EncodeWAV(f, clip); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wav: %v", err)
	}
	return data
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-transcoder")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestResolveToolOverride(t *testing.T) {
	path := writeScript(t, "exit 0\n")
	tool, err := ResolveTool(config.TranscodeConfig{ToolPath: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tool.Path != path || tool.Source != "override" {
		t.Fatalf("unexpected tool %+v", tool)
	}
}

func TestResolveToolBundled(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "faketool"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write tool: %v", err)
	}
	tool, err := ResolveTool(config.TranscodeConfig{ToolName: "faketool", SearchDirs: []string{dir}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tool.Source != "bundled" {
		t.Fatalf("expected bundled source, got %+v", tool)
	}
}

func TestResolveToolNotFound(t *testing.T) {
	_, err := ResolveTool(config.TranscodeConfig{ToolName: "lingua-no-such-tool"})
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
}

func TestIsWAV(t *testing.T) {
	if !IsWAV(makeWAV(t, 16000, 1, 1600)) {
		t.Fatal("encoded wav must pass the signature check")
	}
	if IsWAV([]byte("ID3xxxxxxxxxxxx")) {
		t.Fatal("mp3 bytes must not pass the signature check")
	}
	if IsWAV([]byte("RIFF")) {
		t.Fatal("truncated header must not pass")
	}
}

func TestNormalizePassthrough(t *testing.T) {
	wavBytes := makeWAV(t, 16000, 1, 1600)
	n := NewNormalizer(Tool{Path: "/nonexistent"}, newLogger())
	got, err := n.Normalize(context.Background(), wavBytes, "audio/wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, wavBytes) {
		t.Fatal("already-WAV input must be returned unchanged")
	}
}

func TestNormalizeTranscodesMP3(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.wav")
	if err := os.WriteFile(src, makeWAV(t, 16000, 1, 1600), 0o600); err != nil {
		t.Fatalf("write src: %v", err)
	}
	t.Setenv("LINGUA_TEST_TRANSCODE_SRC", src)
	tool := writeScript(t, `for a in "$@"; do out="$a"; done
cp "$LINGUA_TEST_TRANSCODE_SRC" "$out"
`)

	n := NewNormalizer(Tool{Path: tool, Source: "override"}, newLogger())
	input := append([]byte("ID3"), make([]byte, 64)...)
	got, err := n.Normalize(context.Background(), input, "audio/mpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsWAV(got) {
		t.Fatal("transcode output must pass the RIFF/WAVE check")
	}
}

func TestNormalizeRejectsInvalidToolOutput(t *testing.T) {
	tool := writeScript(t, `for a in "$@"; do out="$a"; done
printf 'not a wav' > "$out"
`)
	n := NewNormalizer(Tool{Path: tool, Source: "override"}, newLogger())
	_, err := n.Normalize(context.Background(), []byte("ID3junk"), "audio/mpeg")
	if err == nil {
		t.Fatal("expected validation error for bogus tool output")
	}
}

func TestDecodeClip(t *testing.T) {
	wavBytes := makeWAV(t, 16000, 1, 1600)
	clip, err := DecodeClip(wavBytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clip.SampleRate != 16000 || clip.Channels != 1 || clip.BitDepth != 16 {
		t.Fatalf("unexpected format %+v", clip)
	}
	if len(clip.Data) != 1600*2 {
		t.Fatalf("expected %d pcm bytes, got %d", 1600*2, len(clip.Data))
	}
	if clip.Duration().Milliseconds() != 100 {
		t.Fatalf("expected 100ms clip, got %v", clip.Duration())
	}
}

// buildRIFFWithExtraChunk assembles a WAV byte stream by hand with a junk
// chunk ahead of fmt/data, the shape that trips strict decoders.
func buildRIFFWithExtraChunk(pcm []byte) []byte {
	var body bytes.Buffer
	writeChunk := func(id string, payload []byte) {
		body.WriteString(id)
		var size [4]byte
		binary.LittleEndian.PutUint32(size[:], uint32(len(payload)))
		body.Write(size[:])
		body.Write(payload)
	}

	writeChunk("JUNK", []byte{0, 0, 0, 0})

	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:], 1)       // PCM
	binary.LittleEndian.PutUint16(fmtChunk[2:], 1)       // mono
	binary.LittleEndian.PutUint32(fmtChunk[4:], 16000)   // sample rate
	binary.LittleEndian.PutUint32(fmtChunk[8:], 32000)   // byte rate
	binary.LittleEndian.PutUint16(fmtChunk[12:], 2)      // block align
	binary.LittleEndian.PutUint16(fmtChunk[14:], 16)     // bits per sample
	writeChunk("fmt ", fmtChunk)
	writeChunk("data", pcm)

	var out bytes.Buffer
	out.WriteString("RIFF")
	var size [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(4+body.Len()))
	out.Write(size[:])
	out.WriteString("WAVE")
	out.Write(body.Bytes())
	return out.Bytes()
}

func TestDecodeClipRIFFFallback(t *testing.T) {
	pcm := make([]byte, 320)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	data := buildRIFFWithExtraChunk(pcm)
	if !IsWAV(data) {
		t.Fatal("hand-built stream must carry the RIFF/WAVE signature")
	}

	clip, err := decodeRIFFClip(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if clip.SampleRate != 16000 || clip.Channels != 1 || clip.BitDepth != 16 {
		t.Fatalf("unexpected format %+v", clip)
	}
	if !bytes.Equal(clip.Data, pcm) {
		t.Fatal("fallback walk must extract the data subchunk verbatim")
	}
}
