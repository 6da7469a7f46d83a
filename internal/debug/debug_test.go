package debug

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLogger(t *testing.T) {
	p := filepath.Join(t.TempDir(), "debug.log")
	SetPath(p)
	logger := GetLogger()
	assert.Same(t, logger, GetLogger())

	logger.Debug("saved session", "id", "abc")
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "saved session")
	assert.Contains(t, string(data), "id=abc")
}
