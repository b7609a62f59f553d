package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, slog.Default(), FromContext(context.Background()))
}

func TestWith_EnrichesLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := With(WithLogger(context.Background(), logger), "project", "/src/a.proj.hcl")
	FromContext(ctx).Info("Evaluated.")

	assert.Contains(t, buf.String(), "project=/src/a.proj.hcl")
	assert.Contains(t, buf.String(), "Evaluated.")
}
