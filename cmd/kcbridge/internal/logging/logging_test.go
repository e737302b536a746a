package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutput(t *testing.T) {
	t.Run("json formatter", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithOutput(&buf, false, "JSON")
		logger.WithField("email", "ada@example.com").Info("hello")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "ada@example.com", entry["email"])
	})

	t.Run("text formatter and info level by default", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithOutput(&buf, false, "")
		logger.Debug("hidden")
		logger.Info("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "msg=shown")
		assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	})

	t.Run("debug enables debug level", func(t *testing.T) {
		logger := NewWithOutput(&bytes.Buffer{}, true, "text")
		assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	})
}
