package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHiddenChecksLeadingSegmentOnly(t *testing.T) {
	assert.True(t, isHidden(".git/config"))
	assert.True(t, isHidden(".env"))
	assert.False(t, isHidden("docs/.gitignore"))
	assert.False(t, isHidden("notes.txt"))
}

func TestLoadIgnoreMatcherMissingFileMatchesNothing(t *testing.T) {
	m, err := LoadIgnoreMatcher(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.False(t, m.Match("anything.tmp"))
}

func TestIgnoreMatcherMatchesGlobPatterns(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".syncignore")
	require.NoError(t, os.WriteFile(path, []byte("*.tmp\nbuild/**\n# comment\n\n"), 0o600))

	m, err := LoadIgnoreMatcher(path)
	require.NoError(t, err)

	assert.True(t, m.Match("scratch.tmp"))
	assert.True(t, m.Match("nested/deep.tmp"))
	assert.True(t, m.Match("build/output.bin"))
	assert.False(t, m.Match("notes.txt"))
}

func TestExcludedCombinesBothRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".syncignore")
	require.NoError(t, os.WriteFile(path, []byte("*.log"), 0o600))

	m, err := LoadIgnoreMatcher(path)
	require.NoError(t, err)

	assert.True(t, excluded(".hidden/file.txt", m))
	assert.True(t, excluded("debug.log", m))
	assert.False(t, excluded("keep.txt", m))
}
