package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_StatusLines(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  string
	}{
		{"status", func(w *Writer) { w.Status("🔍", "Resolving channel...") }, "🔍 Resolving channel...\n"},
		{"status without icon", func(w *Writer) { w.Status("", "detail") }, "   detail\n"},
		{"statusf", func(w *Writer) { w.Statusf("•", "%d channels", 3) }, "• 3 channels\n"},
		{"success", func(w *Writer) { w.Successf("Wrote %s", "config.yaml") }, "✅ Wrote config.yaml\n"},
		{"warning", func(w *Writer) { w.Warningf("%s not set", "workspace_url") }, "⚠️  workspace_url not set\n"},
		{"error", func(w *Writer) { w.Errorf("exit %d", 1) }, "❌ exit 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a writer over a buffer, which is never a terminal
			buf := &bytes.Buffer{}
			w := New(buf)

			// When
			tt.write(w)

			// Then: plain text, no ANSI codes
			assert.Equal(t, tt.want, buf.String())
			assert.False(t, w.UseColor())
		})
	}
}

func TestWriter_ColorWhenEnabled(t *testing.T) {
	buf := &bytes.Buffer{}
	w := &Writer{out: buf, useColor: true}

	w.Error("boom")

	assert.Equal(t, "❌ "+ansiRed+"boom"+ansiReset+"\n", buf.String())
}

func TestWriter_Code(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Code("slackmcp serve\nslackmcp doctor")

	assert.Equal(t, "\n  slackmcp serve\n  slackmcp doctor\n\n", buf.String())
}

func TestWriter_Markdown(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	w.Markdown("## Thread\n\n- one\n\n")

	assert.Equal(t, "## Thread\n\n- one\n", buf.String())
}

func TestWriter_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	w := New(buf)

	err := w.JSON(map[string]any{"text": "<@U1> & co", "n": 1})

	require.NoError(t, err)
	assert.Equal(t, "{\n  \"n\": 1,\n  \"text\": \"<@U1> & co\"\n}\n", buf.String())
}

func TestWriter_JSON_Unencodable(t *testing.T) {
	w := New(&bytes.Buffer{})

	err := w.JSON(func() {})

	assert.Error(t, err)
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))

	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.False(t, IsTerminal(f))
}
