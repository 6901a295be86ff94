package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel(" ERROR "))
	assert.Equal(t, INFO, ParseLevel("что-то"), "Неизвестный уровень даёт INFO")
}

func TestLogger_RespectsConsoleLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	l, err := NewLogger("test")
	require.NoError(t, err)
	l.setConsoleLevel(WARN)

	l.Info("скрытое сообщение %d", 1)
	l.Warn("видимое сообщение %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "скрытое сообщение")
	assert.Contains(t, out, "видимое сообщение 2")
	assert.Contains(t, out, "test", "Префикс компонента присутствует")
}

func TestLoggerManager_ReturnsSameLogger(t *testing.T) {
	lm := GetLoggerManager()
	a := GetComponentLogger("collision")
	b := GetComponentLogger("collision")
	assert.Same(t, a, b)
	assert.Contains(t, lm.ListComponents(), "collision")
	assert.Error(t, lm.SetLogLevel("нет-такого", INFO, INFO))
}
