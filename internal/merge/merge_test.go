package merge_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndyXFuture/bilix-meta/internal/merge"
)

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
	return p
}

func TestCombine_RemovesInputsOnSuccess(t *testing.T) {
	dir := t.TempDir()
	v := writeInput(t, dir, "v.mp4")
	a := writeInput(t, dir, "a.m4a")

	// "true" exits zero whatever the arguments, standing in for ffmpeg
	m := merge.New("true")
	err := m.Combine(context.Background(), []string{v, a}, filepath.Join(dir, "out.mp4"))
	require.NoError(t, err)

	_, err = os.Stat(v)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(a)
	assert.True(t, os.IsNotExist(err))
}

func TestCombine_RequiresTwoInputs(t *testing.T) {
	m := merge.New("true")
	err := m.Combine(context.Background(), []string{"only.mp4"}, "out.mp4")
	assert.Error(t, err)
}

func TestCombine_BinaryFailure(t *testing.T) {
	dir := t.TempDir()
	v := writeInput(t, dir, "v.mp4")
	a := writeInput(t, dir, "a.m4a")

	m := merge.New("false")
	err := m.Combine(context.Background(), []string{v, a}, filepath.Join(dir, "out.mp4"))
	require.Error(t, err)
	assert.ErrorIs(t, err, merge.ErrMergeFailed)

	// failed merges keep their inputs for a retry
	_, err = os.Stat(v)
	assert.NoError(t, err)
}

func TestConcat_RemovesInputsOnSuccess(t *testing.T) {
	dir := t.TempDir()
	parts := []string{
		writeInput(t, dir, "p0.mp4"),
		writeInput(t, dir, "p1.mp4"),
		writeInput(t, dir, "p2.mp4"),
	}

	m := merge.New("true")
	err := m.Concat(context.Background(), parts, filepath.Join(dir, "out.mp4"))
	require.NoError(t, err)

	for _, p := range parts {
		_, err = os.Stat(p)
		assert.True(t, os.IsNotExist(err))
	}
	// the temporary list file is cleaned up too
	matches, _ := filepath.Glob(filepath.Join(dir, "*.list"))
	assert.Empty(t, matches)
}

func TestConcat_MissingBinary(t *testing.T) {
	dir := t.TempDir()
	parts := []string{writeInput(t, dir, "p0.mp4"), writeInput(t, dir, "p1.mp4")}

	m := merge.New(filepath.Join(dir, "no-such-binary"))
	err := m.Concat(context.Background(), parts, filepath.Join(dir, "out.mp4"))
	assert.Error(t, err)
}
