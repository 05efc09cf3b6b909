package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-api/pkg/logger"
)

func TestNew_JSONConServicioYNivel(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "warn", Service: "almacen-api", Out: &buf})

	l.Info().Msg("no debe salir")
	l.Warn().Str("item_id", "I1").Msg("stock bajo")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "almacen-api", entry["service"])
	assert.Equal(t, "I1", entry["item_id"])
	assert.Equal(t, "stock bajo", entry["message"])
}

func TestWithContext_RecuperaElLogger(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "info", Out: &buf})
	ctx := l.WithContext(context.Background())

	logger.FromContext(ctx).Info().Msg("desde contexto")
	assert.Contains(t, buf.String(), "desde contexto")
}
