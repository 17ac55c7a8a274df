package transcode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
)

// FFmpegStrategy shells out to a local ffmpeg binary. It is the cheap first
// attempt before falling back to the remote provider.
type FFmpegStrategy struct {
	binaryPath string
}

func NewFFmpegStrategy(binaryPath string) *FFmpegStrategy {
	return &FFmpegStrategy{binaryPath: binaryPath}
}

func (s *FFmpegStrategy) Name() string {
	return "ffmpeg"
}

func (s *FFmpegStrategy) Convert(ctx context.Context, raw []byte, mimeType string) ([]byte, string, error) {
	if s.binaryPath == "" {
		return nil, "", fmt.Errorf("ffmpeg binary not configured")
	}

	jobRef := "ffmpeg-" + uuid.NewString()

	workDir, err := os.MkdirTemp("", "transcode-*")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "input")
	outputPath := filepath.Join(workDir, "output.mp4")

	if err := os.WriteFile(inputPath, raw, 0600); err != nil {
		return nil, "", fmt.Errorf("failed to write input file: %w", err)
	}

	// -movflags +faststart keeps the moov atom in front so the result
	// streams without a full download.
	cmd := exec.CommandContext(ctx, s.binaryPath,
		"-y",
		"-i", inputPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-f", "mp4",
		outputPath,
	)

	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, "", fmt.Errorf("ffmpeg failed: %w: %s", err, truncate(output, 256))
	}

	out, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read converted file: %w", err)
	}
	if len(out) == 0 {
		return nil, "", fmt.Errorf("ffmpeg produced empty output")
	}

	return out, jobRef, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
