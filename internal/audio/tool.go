package audio

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/lingualabs/lingua-core/internal/config"
)

// ErrToolNotFound indicates no usable transcoding binary could be located.
var ErrToolNotFound = errors.New("transcoding tool not found")

// Tool is the transcoding binary resolved once at startup. Resolution happens
// before any recording is accepted so a broken deployment fails fast rather
// than per request.
type Tool struct {
	Path   string
	Source string // override, system, bundled
}

// ResolveTool locates the transcoding binary using a fixed discovery order:
// explicit config override, then the system PATH, then the configured bundled
// directories. The first usable candidate wins.
func ResolveTool(cfg config.TranscodeConfig) (Tool, error) {
	if cfg.ToolPath != "" {
		if err := checkExecutable(cfg.ToolPath); err != nil {
			return Tool{}, fmt.Errorf("transcode.tool_path %q is not usable: %w", cfg.ToolPath, err)
		}
		return Tool{Path: cfg.ToolPath, Source: "override"}, nil
	}

	if path, err := exec.LookPath(cfg.ToolName); err == nil {
		return Tool{Path: path, Source: "system"}, nil
	}

	for _, dir := range cfg.SearchDirs {
		candidate := filepath.Join(dir, cfg.ToolName)
		if err := checkExecutable(candidate); err == nil {
			return Tool{Path: candidate, Source: "bundled"}, nil
		}
	}

	return Tool{}, fmt.Errorf("%w: install %s or set transcode.tool_path", ErrToolNotFound, cfg.ToolName)
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}
