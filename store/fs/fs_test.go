package fs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/photoflow/core"
	"github.com/poiesic/photoflow/store"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestOriginListsOnlyImages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.jpg", "b")
	writeFile(t, dir, "a.PNG", "a")
	writeFile(t, dir, "notes.txt", "x")
	writeFile(t, dir, "b.jpg.attrs.json", "{}")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.jpg"), 0o755))

	origin := NewOrigin(dir)
	names, err := origin.ListCandidateItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.PNG", "b.jpg"}, names)
}

func TestOriginFetchWithAttributes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jpg", "image bytes")
	writeFile(t, dir, "a.jpg.attrs.json", `{
		"Make": {"text": "ILCE-7M3"},
		"FNumber": {"number": 2.8},
		"DateTimeOriginal": {"time": "2021-07-14T10:30:00Z"},
		"GPS": {"lat": 47.376887, "lon": 8.541694}
	}`)

	origin := NewOrigin(dir)
	item, err := origin.Fetch(context.Background(), "a.jpg")
	require.NoError(t, err)

	assert.Equal(t, "a.jpg", item.Name)
	assert.Equal(t, []byte("image bytes"), item.Payload)
	assert.Equal(t, core.AttributeText, item.Attributes["Make"].Kind)
	assert.Equal(t, "ILCE-7M3", item.Attributes["Make"].Text)
	assert.Equal(t, 2.8, item.Attributes["FNumber"].Number)
	assert.Equal(t, core.AttributeTimestamp, item.Attributes["DateTimeOriginal"].Kind)
	assert.Equal(t, core.AttributeCoordinate, item.Attributes["GPS"].Kind)
	assert.Equal(t, 47.376887, item.Attributes["GPS"].Lat)
}

func TestOriginFetchWithoutSidecar(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jpg", "x")

	origin := NewOrigin(dir)
	item, err := origin.Fetch(context.Background(), "a.jpg")
	require.NoError(t, err)
	assert.Empty(t, item.Attributes)
}

func TestOriginFetchCorruptSidecarKeepsItem(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jpg", "x")
	writeFile(t, dir, "a.jpg.attrs.json", "not json")

	origin := NewOrigin(dir)
	item, err := origin.Fetch(context.Background(), "a.jpg")
	require.NoError(t, err, "a broken sidecar must not cost the item")
	assert.Empty(t, item.Attributes)
}

func TestOriginFetchMissing(t *testing.T) {
	origin := NewOrigin(t.TempDir())
	_, err := origin.Fetch(context.Background(), "missing.jpg")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestOriginDeleteRemovesSidecar(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jpg", "x")
	writeFile(t, dir, "a.jpg.attrs.json", "{}")

	origin := NewOrigin(dir)
	require.NoError(t, origin.Delete(context.Background(), "a.jpg"))

	_, err := os.Stat(filepath.Join(dir, "a.jpg"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "a.jpg.attrs.json"))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, origin.Delete(context.Background(), "a.jpg"), store.ErrNotFound)
}

func TestPublisherUploadAndSetFields(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "publish")
	publisher := NewPublisher(dir)

	ref, err := publisher.Upload(context.Background(), "Referenz_0001.jpg", []byte("image bytes"))
	require.NoError(t, err)
	assert.Equal(t, "Referenz_0001.jpg", ref.ID)

	record := &core.ResolvedRecord{
		SourceName: "a.jpg",
		Fields:     map[string]any{"Title": "Harbor", "Status": core.StatusDraftMachine},
	}
	require.NoError(t, publisher.SetFields(context.Background(), ref, record))

	uploaded, err := os.ReadFile(filepath.Join(dir, "Referenz_0001.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("image bytes"), uploaded)

	raw, err := os.ReadFile(filepath.Join(dir, "Referenz_0001.jpg.fields.json"))
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "Harbor", fields["Title"])
	assert.Equal(t, core.StatusDraftMachine, fields["Status"])
}
