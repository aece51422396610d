package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orchestrator/internal/jobmodel"
)

type fakeStore struct {
	artifacts []jobmodel.Artifact
	nextID    int64
}

func (f *fakeStore) AddArtifact(jobID int64, kind jobmodel.ArtifactKind, path string, size int64, sha256 string) (jobmodel.Artifact, error) {
	f.nextID++
	a := jobmodel.Artifact{ID: f.nextID, JobID: jobID, Kind: kind, Path: path, SizeBytes: size, SHA256: sha256}
	f.artifacts = append(f.artifacts, a)
	return a, nil
}

func (f *fakeStore) ListArtifacts(jobID int64) ([]jobmodel.Artifact, error) {
	var out []jobmodel.Artifact
	for _, a := range f.artifacts {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestRegisterFileRejectsDisallowedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "payload.exe")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	store := &fakeStore{}
	c := New(store, Settings{AllowedExtensions: map[string]bool{".png": true}})
	_, ok, err := c.RegisterFile(1, path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterFileRejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.log")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	store := &fakeStore{}
	c := New(store, Settings{AllowedExtensions: map[string]bool{".log": true}, MaxBytes: 4})
	_, ok, err := c.RegisterFile(1, path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterFileRejectsEmptyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.log")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))

	store := &fakeStore{}
	c := New(store, Settings{AllowedExtensions: map[string]bool{".log": true}})
	_, ok, err := c.RegisterFile(1, path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegisterFileAcceptsEligibleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "output.log")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	store := &fakeStore{}
	c := New(store, Settings{AllowedExtensions: map[string]bool{".log": true}})
	a, ok, err := c.RegisterFile(1, path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, jobmodel.ArtifactLog, a.Kind)
	assert.NotEmpty(t, a.SHA256)
}

func TestCollectFromRunDirWalksSortedAndFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.log"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.exe"), []byte("b"), 0o644))

	store := &fakeStore{}
	c := New(store, Settings{AllowedExtensions: map[string]bool{".log": true}})
	got, err := c.CollectFromRunDir(1, dir)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, filepath.Join(dir, "a.log"), got[0].Path)
}

func TestCollectFromOutputTextsFindsBacktickedPathAndDedupes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "result.txt")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	store := &fakeStore{}
	c := New(store, Settings{AllowedExtensions: map[string]bool{".txt": true}})
	texts := []string{"wrote output to `result.txt` for review", "see result.txt again"}
	got, err := c.CollectFromOutputTexts(1, texts, dir, []string{dir})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, path, got[0].Path)
}

func TestCollectFromOutputTextsRejectsPathOutsideAllowedRoots(t *testing.T) {
	outsideDir := t.TempDir()
	path := filepath.Join(outsideDir, "secret.txt")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	allowedDir := t.TempDir()
	store := &fakeStore{}
	c := New(store, Settings{AllowedExtensions: map[string]bool{".txt": true}})
	got, err := c.CollectFromOutputTexts(1, []string{"`" + path + "`"}, allowedDir, []string{allowedDir})
	require.NoError(t, err)
	assert.Empty(t, got)
}
