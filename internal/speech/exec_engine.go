package speech

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/lingualabs/lingua-core/internal/audio"
	"github.com/lingualabs/lingua-core/internal/config"
)

// execEngine drives an external recognizer process. The process receives the
// clip as a WAV file plus the assessment configuration as JSON, and reports
// session events as JSON lines on stdout:
//
//	{"event":"recognizing","text":"..."}
//	{"event":"recognized","result":{...}}
//	{"event":"stopped"}
//	{"event":"canceled","reason":"end_of_stream"|"error","code":"...","detail":"..."}
type execEngine struct {
	cmd []string
	cfg config.SpeechConfig
}

type execEvent struct {
	Event  string          `json:"event"`
	Text   string          `json:"text,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Reason string          `json:"reason,omitempty"`
	Code   string          `json:"code,omitempty"`
	Detail string          `json:"detail,omitempty"`
}

// NewExecEngine validates configuration up front: a missing command is a
// process-level configuration error, not something to discover one recording
// at a time.
func NewExecEngine(cfg config.SpeechConfig) (Engine, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse speech command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("speech command is empty")
	}
	return &execEngine{cmd: args, cfg: cfg}, nil
}

func (e *execEngine) StartSession(ctx context.Context, clip audio.PCMClip, cfg SessionConfig, h Handlers) error {
	file, err := os.CreateTemp("", "lingua_session_*.wav")
	if err != nil {
		return fmt.Errorf("temp file: %w", err)
	}
	if err := audio.EncodeWAV(file, clip); err != nil {
		file.Close()
		os.Remove(file.Name())
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return fmt.Errorf("close temp file: %w", err)
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		os.Remove(file.Name())
		return fmt.Errorf("marshal session config: %w", err)
	}

	args := append([]string{}, e.cmd[1:]...)
	args = append(args, "--audio", file.Name(), "--assessment", string(cfgJSON))
	if e.cfg.Key != "" {
		args = append(args, "--key", e.cfg.Key)
	}
	if e.cfg.Region != "" {
		args = append(args, "--region", e.cfg.Region)
	}

	cmd := exec.CommandContext(ctx, e.cmd[0], args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.Remove(file.Name())
		return fmt.Errorf("stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		os.Remove(file.Name())
		return fmt.Errorf("start recognizer process: %w", err)
	}

	go func() {
		defer os.Remove(file.Name())

		settled := false
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var evt execEvent
			if err := json.Unmarshal(line, &evt); err != nil {
				continue
			}
			switch evt.Event {
			case "recognizing":
				h.Recognizing(evt.Text)
			case "recognized":
				h.Recognized(evt.Result)
			case "stopped":
				settled = true
				h.Stopped()
			case "canceled":
				settled = true
				reason := CancelError
				if evt.Reason == "end_of_stream" {
					reason = CancelEndOfStream
				}
				h.Canceled(CancelDetail{Reason: reason, Code: evt.Code, Detail: evt.Detail})
			}
		}

		err := cmd.Wait()
		if settled {
			return
		}
		// Process died without reporting a terminal session event.
		detail := strings.TrimSpace(stderr.String())
		if err != nil {
			detail = fmt.Sprintf("%v: %s", err, detail)
		}
		h.Canceled(CancelDetail{Reason: CancelError, Code: "ProcessExit", Detail: detail})
	}()

	return nil
}
