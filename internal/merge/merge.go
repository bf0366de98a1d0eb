// Package merge assembles completed segment files into one playable
// artifact by delegating to an external muxing tool.
package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrMergeFailed is returned when the muxing tool exits nonzero. The
// constituent segment files are retained for manual recovery.
var ErrMergeFailed = errors.New("merge failed")

// Merger invokes ffmpeg. The zero value is not usable; use New.
type Merger struct {
	binary string
}

// New creates a Merger. An empty binary defaults to "ffmpeg" on PATH.
func New(binary string) *Merger {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Merger{binary: binary}
}

// Combine muxes separate video and audio streams into output without
// re-encoding. inputs must be exactly [video, audio].
func (m *Merger) Combine(ctx context.Context, inputs []string, output string) error {
	if len(inputs) != 2 {
		return fmt.Errorf("%w: combine needs video and audio, got %d inputs", ErrMergeFailed, len(inputs))
	}
	args := []string{
		"-y", "-loglevel", "error",
		"-i", inputs[0], "-i", inputs[1],
		"-c", "copy", output,
	}
	if err := m.run(ctx, args); err != nil {
		return err
	}
	return removeInputs(inputs)
}

// Concat joins ordered parts of the same encoding into output using the
// concat demuxer.
func (m *Merger) Concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("%w: concat needs at least one input", ErrMergeFailed)
	}
	list, err := writeConcatList(inputs, output)
	if err != nil {
		return err
	}
	defer os.Remove(list)

	args := []string{
		"-y", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", list,
		"-c", "copy", output,
	}
	if err := m.run(ctx, args); err != nil {
		return err
	}
	return removeInputs(inputs)
}

func (m *Merger) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, m.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("%w: %s", ErrMergeFailed, msg)
	}
	return nil
}

// writeConcatList writes the concat demuxer's input list next to output.
func writeConcatList(inputs []string, output string) (string, error) {
	var b strings.Builder
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", in, err)
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	list := output + ".list"
	if err := os.WriteFile(list, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return list, nil
}

// removeInputs deletes segment files superseded by the merged output.
func removeInputs(inputs []string) error {
	for _, in := range inputs {
		if err := os.Remove(in); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", in, err)
		}
	}
	return nil
}
