package icylog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{out: &buf, minLevel: LevelWarn}

	l.Info("ignored")
	assert.Empty(t, buf.String())

	l.Warn("shown", "node", 3)
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "node=3")
}

func TestContextPairsRenderInOrder(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{out: &buf, minLevel: LevelTrace}

	l.Info("connect", "user", "sysop", "node", 1)
	line := buf.String()
	assert.True(t, strings.Index(line, "user=sysop") < strings.Index(line, "node=1"))
}

func TestLevelStringPadding(t *testing.T) {
	assert.Len(t, LevelInfo.String(), 5)
	assert.Len(t, LevelCrit.String(), 5)
}
