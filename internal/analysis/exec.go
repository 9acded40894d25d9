package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/lingualabs/lingua-core/internal/assessment"
	"github.com/lingualabs/lingua-core/internal/config"
)

type execProsody struct {
	cmd []string
	mu  sync.Mutex
}

type execProsodyRequest struct {
	Transcript  *assessment.Transcript `json:"transcript"`
	AudioBase64 string                 `json:"audio_base64"`
	MimeType    string                 `json:"mime_type"`
}

func NewExecProsody(cfg config.AnalyzerConfig) (ProsodyAnalyzer, error) {
	args, err := parseCommand(cfg.Command, "prosody")
	if err != nil {
		return nil, err
	}
	return &execProsody{cmd: args}, nil
}

func (p *execProsody) Analyze(ctx context.Context, transcript *assessment.Transcript, audio []byte, mimeType string) (ProsodyReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	input, err := json.Marshal(execProsodyRequest{
		Transcript:  transcript,
		AudioBase64: base64.StdEncoding.EncodeToString(audio),
		MimeType:    mimeType,
	})
	if err != nil {
		return ProsodyReport{}, err
	}

	output, err := runCommand(ctx, p.cmd, input)
	if err != nil {
		return ProsodyReport{}, fmt.Errorf("prosody exec command failed: %w", err)
	}

	var report ProsodyReport
	if err := json.Unmarshal(output, &report); err != nil {
		return ProsodyReport{}, fmt.Errorf("decode prosody response: %w", err)
	}
	return report, nil
}

type execSummarizer struct {
	cmd []string
	mu  sync.Mutex
}

func NewExecSummarizer(cfg config.AnalyzerConfig) (PronunciationSummarizer, error) {
	args, err := parseCommand(cfg.Command, "summary")
	if err != nil {
		return nil, err
	}
	return &execSummarizer{cmd: args}, nil
}

func (s *execSummarizer) Summarize(ctx context.Context, raws []assessment.RawUtteranceAssessment) (PronunciationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	input, err := json.Marshal(map[string]any{"results": raws})
	if err != nil {
		return PronunciationSummary{}, err
	}

	output, err := runCommand(ctx, s.cmd, input)
	if err != nil {
		return PronunciationSummary{}, fmt.Errorf("summary exec command failed: %w", err)
	}

	var summary PronunciationSummary
	if err := json.Unmarshal(output, &summary); err != nil {
		return PronunciationSummary{}, fmt.Errorf("decode summary response: %w", err)
	}
	return summary, nil
}

func parseCommand(command, name string) ([]string, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse %s command: %w", name, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s command is empty", name)
	}
	return args, nil
}

func runCommand(ctx context.Context, argv []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(stdin)
	return cmd.Output()
}
