package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himansukumarhkr/Click/internal/docx"
	"github.com/himansukumarhkr/Click/internal/session"
)

func startArgs(tmp string, extra ...string) []string {
	src := filepath.Join(tmp, "shot.png")
	args := []string{"start", "--plain", "--no-date",
		"--dir", filepath.Join(tmp, "out"),
		"--name", "evidence",
		"--source", src,
	}
	return append(args, extra...)
}

func TestStartPlainCapturesIntoDocument(t *testing.T) {
	tmp := isolate(t)
	writePNG(t, filepath.Join(tmp, "shot.png"))

	out, err := executeWithInput(rootCmd, "c\nc\nc\nu\nq\n", startArgs(tmp)...)
	require.NoError(t, err, out)

	artifact := filepath.Join(tmp, "out", "evidence.docx")
	assert.Contains(t, out, "session 1: "+artifact)
	assert.Contains(t, out, "saved capture 3 to evidence.docx")
	assert.Contains(t, out, "undo: 2 captures left")
	assert.Contains(t, out, "saved "+artifact+" (2 captures")

	doc, err := docx.Open(artifact)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Pictures())
}

func TestStartEndOfInputSaves(t *testing.T) {
	tmp := isolate(t)
	writePNG(t, filepath.Join(tmp, "shot.png"))

	out, err := executeWithInput(rootCmd, "c\n", startArgs(tmp)...)
	require.NoError(t, err, out)

	doc, err := docx.Open(filepath.Join(tmp, "out", "evidence.docx"))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Pictures())
}

func TestStartDiscardRemovesArtifact(t *testing.T) {
	tmp := isolate(t)
	writePNG(t, filepath.Join(tmp, "shot.png"))

	out, err := executeWithInput(rootCmd, "c\nd\n", startArgs(tmp)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, "discarded ")

	_, statErr := os.Stat(filepath.Join(tmp, "out", "evidence.docx"))
	assert.True(t, os.IsNotExist(statErr), "artifact should be gone, stat err = %v", statErr)

	journal, err := session.NewJournal()
	require.NoError(t, err)
	records, err := journal.List()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStartFolderMode(t *testing.T) {
	tmp := isolate(t)
	writePNG(t, filepath.Join(tmp, "shot.png"))

	out, err := executeWithInput(rootCmd, "c\nc\nq\n", startArgs(tmp, "--mode", "folder")...)
	require.NoError(t, err, out)

	dir := filepath.Join(tmp, "out", "evidence")
	for _, name := range []string{"evidence_1.jpg", "evidence_2.jpg"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestStartNewSessionAndPause(t *testing.T) {
	tmp := isolate(t)
	writePNG(t, filepath.Join(tmp, "shot.png"))

	input := strings.Join([]string{"c", "n", "c", "c", "p 2", "c", "s 1", "c", "l", "q", ""}, "\n")
	out, err := executeWithInput(rootCmd, input, startArgs(tmp)...)
	require.NoError(t, err, out)

	second := filepath.Join(tmp, "out", "evidence_1.docx")
	assert.Contains(t, out, "session 2: "+second)
	assert.Contains(t, out, "no active session")

	first, err := docx.Open(filepath.Join(tmp, "out", "evidence.docx"))
	require.NoError(t, err)
	assert.Equal(t, 2, first.Pictures())

	other, err := docx.Open(second)
	require.NoError(t, err)
	assert.Equal(t, 2, other.Pictures())
}

func TestStartUnknownCommandWarns(t *testing.T) {
	tmp := isolate(t)
	writePNG(t, filepath.Join(tmp, "shot.png"))

	out, err := executeWithInput(rootCmd, "zap\np\np 9\nq\n", startArgs(tmp)...)
	require.NoError(t, err, out)
	assert.Contains(t, out, `unknown command "zap"`)
	assert.Contains(t, out, "p needs a session number")
}

func TestStartWritesMetricsFile(t *testing.T) {
	tmp := isolate(t)
	writePNG(t, filepath.Join(tmp, "shot.png"))
	prom := filepath.Join(tmp, "click.prom")

	out, err := executeWithInput(rootCmd, "c\nq\n", startArgs(tmp, "--metrics-file", prom)...)
	require.NoError(t, err, out)

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(data), "click_captures_total")
}

func TestStartSweepsStaleTempDirs(t *testing.T) {
	tmp := isolate(t)
	writePNG(t, filepath.Join(tmp, "shot.png"))
	stale := filepath.Join(os.TempDir(), session.TempPrefix+"dead")
	require.NoError(t, os.MkdirAll(stale, 0o755))

	out, err := executeWithInput(rootCmd, "q\n", startArgs(tmp)...)
	require.NoError(t, err, out)

	_, statErr := os.Stat(stale)
	assert.True(t, os.IsNotExist(statErr))
}
