package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugEnabled(t *testing.T) {
	t.Setenv("PT_DEBUG", "")
	assert.False(t, DebugEnabled(), "empty PT_DEBUG disables debug output")

	t.Setenv("PT_DEBUG", "1")
	assert.True(t, DebugEnabled())
}

func TestDebugHelpers(t *testing.T) {
	var buf bytes.Buffer
	debugOut = &buf
	t.Cleanup(func() { debugOut = os.Stderr })

	t.Setenv("PT_DEBUG", "")
	Debugf("hidden %s\n", "message")
	Debugln("hidden")
	assert.Empty(t, buf.String())

	t.Setenv("PT_DEBUG", "true")
	Debugf("environment: %s\n", "testing")
	Debugln("task labels:", 3)
	assert.Equal(t, "debug: environment: testing\ndebug: task labels: 3\n", buf.String())
}

func TestNew(t *testing.T) {
	t.Setenv("PT_DEBUG", "")

	var buf bytes.Buffer
	quiet := New(&buf, false)
	quiet.Debug("lookup started", "project", 10)
	assert.Empty(t, buf.String())

	quiet.Info("board loaded", "tasks", 3)
	assert.Contains(t, buf.String(), "board loaded")
	assert.Contains(t, buf.String(), "tasks=3")

	buf.Reset()
	verbose := New(&buf, true)
	verbose.Debug("lookup started", "project", 10)
	assert.Contains(t, buf.String(), "project=10")
}

func TestOrDefault(t *testing.T) {
	l := Discard()
	assert.Same(t, l, OrDefault(l))
	assert.NotNil(t, OrDefault(nil))
}
