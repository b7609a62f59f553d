package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_BuildsGraph(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.proj.hcl"), []byte(`reference "lib.proj.hcl" {}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.proj.hcl"), []byte(""), 0o600))

	out := &bytes.Buffer{}
	err := run(context.Background(), out, io.Discard, []string{filepath.Join(dir, "app.proj.hcl")})

	require.NoError(t, err)
	require.Contains(t, out.String(), "2 projects, 1 references")
}

func TestRun_InvalidProject(t *testing.T) {
	t.Parallel()

	// An unterminated block fails evaluation of the entry point.
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.proj.hcl")
	require.NoError(t, os.WriteFile(path, []byte("reference \"x.proj.hcl\" {\n"), 0o600))

	err := run(context.Background(), &bytes.Buffer{}, io.Discard, []string{path})

	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse project file")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	out := &bytes.Buffer{}
	err := run(context.Background(), out, io.Discard, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), &bytes.Buffer{}, io.Discard, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}
