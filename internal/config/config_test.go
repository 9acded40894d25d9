package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Bus.Servers[0] != "nats://localhost:4222" {
		t.Fatalf("expected default server, got %v", cfg.Bus.Servers)
	}
	if cfg.Speech.Mode != "mock" {
		t.Fatalf("expected mock speech mode by default, got %q", cfg.Speech.Mode)
	}
	if cfg.Transcode.ToolName != "ffmpeg" {
		t.Fatalf("expected ffmpeg tool name default, got %q", cfg.Transcode.ToolName)
	}
	if cfg.Worker.JobTimeoutMS != 300000 {
		t.Fatalf("expected default job timeout, got %d", cfg.Worker.JobTimeoutMS)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LINGUA_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("LINGUA_BUS_USERNAME", "alice")
	t.Setenv("LINGUA_BUS_PASSWORD", "secret")
	t.Setenv("LINGUA_RECORDINGS_PATH", "./tmp.db")
	t.Setenv("LINGUA_STORAGE_MODE", "s3")
	t.Setenv("LINGUA_STORAGE_BUCKET", "recordings")
	t.Setenv("LINGUA_TRANSCODE_TOOL_PATH", "/usr/bin/ffmpeg")
	t.Setenv("LINGUA_SPEECH_MODE", "exec")
	t.Setenv("LINGUA_SPEECH_COMMAND", "lingua-recognize --assessment")
	t.Setenv("LINGUA_WORKER_JOB_TIMEOUT_MS", "60000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if cfg.Recordings.Path != "./tmp.db" {
		t.Fatalf("expected recordings path override")
	}
	if cfg.Storage.Mode != "s3" || cfg.Storage.Bucket != "recordings" {
		t.Fatalf("expected s3 storage override, got %+v", cfg.Storage)
	}
	if cfg.Transcode.ToolPath != "/usr/bin/ffmpeg" {
		t.Fatalf("expected tool path override")
	}
	if cfg.Speech.Mode != "exec" || cfg.Speech.Command == "" {
		t.Fatalf("expected exec speech override")
	}
	if cfg.Worker.JobTimeoutMS != 60000 {
		t.Fatalf("expected job timeout override, got %d", cfg.Worker.JobTimeoutMS)
	}
}

func TestValidateRejectsExecWithoutCommand(t *testing.T) {
	t.Setenv("LINGUA_SPEECH_MODE", "exec")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for exec speech mode without command")
	}
}
