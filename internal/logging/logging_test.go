package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The package loggers are globals, so these tests run sequentially and
// restore the standard outputs when done.

func TestSetOutputCapturesOutput(t *testing.T) {
	defer Init()

	var structured, human bytes.Buffer
	SetOutput(&structured, &human)

	Structured().Info("structured event", "key", "value")
	HumanReadable().Info("human event")
	ForService("catalog").Info("service event")

	assert.Contains(t, structured.String(), `"structured event"`)
	assert.Contains(t, structured.String(), `"key":"value"`)
	assert.Contains(t, human.String(), "human event")
	assert.Contains(t, structured.String(), `"service":"catalog"`)

	// The default slog logger follows the structured logger.
	Info("default event")
	assert.Contains(t, structured.String(), `"default event"`)
}

func TestEnableFileLogWritesToFile(t *testing.T) {
	defer Init()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	closeLog, err := EnableFileLog(path)
	require.NoError(t, err)

	ForService("soundbank").Info("file sink works")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "file sink works")
	assert.Contains(t, string(data), `"service":"soundbank"`)
}

func TestForServiceNilBeforeInit(t *testing.T) {
	defer Init()

	structuredLogger = nil
	assert.Nil(t, ForService("anything"))
}
