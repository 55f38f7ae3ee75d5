package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/photoflow/core"
	"github.com/poiesic/photoflow/gateway"
	"github.com/poiesic/photoflow/inference"
	"github.com/poiesic/photoflow/inference/mock"
	"github.com/poiesic/photoflow/ledger"
	"github.com/poiesic/photoflow/resolve"
	storefs "github.com/poiesic/photoflow/store/fs"
)

func testSchema() *core.TargetSchema {
	return &core.TargetSchema{
		Title:   "Referenzfotos",
		Version: "1",
		Fields: []core.FieldSpec{
			{InternalName: "Title", Title: "Title", Kind: core.KindText, Required: true},
			{InternalName: "Category", Title: "BuildingType", Kind: core.KindSingleChoice, Required: true,
				Choices: []string{"Residential", "Industrial"}},
			{InternalName: "Status", Title: "Status", Kind: core.KindText},
			{InternalName: "OriginalName", Title: "OriginalName", Kind: core.KindText},
		},
		SkipFields: core.DefaultSkipFields,
	}
}

type fixture struct {
	pipeline   *Pipeline
	backend    *mock.Backend
	ledger     *ledger.Ledger
	originDir  string
	publishDir string
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	originDir := t.TempDir()
	publishDir := filepath.Join(t.TempDir(), "publish")

	backend := mock.New(`{"Title": "Timber house at dusk", "BuildingType": "residential building"}`)

	cfg := gateway.Config{
		RequestsPerMinute:  600000,
		CostUnitsPerMinute: 60000000,
		CostBurst:          1 << 20,
		MaxInflight:        4,
		MaxAttempts:        2,
		BaseDelay:          time.Millisecond,
		MaxDelay:           10 * time.Millisecond,
		AdmissionTimeout:   time.Second,
		AttemptTimeout:     time.Second,
		CacheSize:          32,
		IncludeAttributes:  true,
	}
	gw, err := gateway.New(backend, inference.Params{MaxTokens: 500}, cfg)
	require.NoError(t, err)

	led, err := ledger.Open("")
	require.NoError(t, err)

	res, err := resolve.New()
	require.NoError(t, err)

	p, err := New(storefs.NewOrigin(originDir), storefs.NewPublisher(publishDir),
		led, gw, res, testSchema(), append([]Option{WithPoolSize(2)}, opts...)...)
	require.NoError(t, err)

	return &fixture{
		pipeline:   p,
		backend:    backend,
		ledger:     led,
		originDir:  originDir,
		publishDir: publishDir,
	}
}

func (f *fixture) addPhoto(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.originDir, name), []byte(content), 0o644))
}

func TestRunEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.addPhoto(t, "IMG_0042.jpg", "unique bytes")

	summary, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.Fetch.Processed)
	assert.Equal(t, 1, summary.Resolve.Processed)
	assert.Equal(t, 1, summary.Publish.Processed)
	assert.Zero(t, summary.Failed())

	uploaded, err := os.ReadFile(filepath.Join(f.publishDir, "Referenz_0001.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("unique bytes"), uploaded)

	raw, err := os.ReadFile(filepath.Join(f.publishDir, "Referenz_0001.jpg.fields.json"))
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "Timber house at dusk", fields["Title"])
	assert.Equal(t, "Residential", fields["Category"], "fuzzy choice match applied")
	assert.Equal(t, core.StatusDraftMachine, fields["Status"])
	assert.Equal(t, "IMG_0042.jpg", fields["OriginalName"])
	assert.Equal(t, "Referenz_0001.jpg", fields[core.FileRefFieldName])

	assert.True(t, f.ledger.HasReachedStage("IMG_0042.jpg", core.StagePublished))
	target, ok := f.ledger.TargetName("IMG_0042.jpg")
	require.True(t, ok)
	assert.Equal(t, "Referenz_0001.jpg", target)
}

func TestRunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.addPhoto(t, "a.jpg", "payload")

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	firstCalls := f.backend.CallCount()

	summary, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, firstCalls, f.backend.CallCount(), "second run must not call inference")
	assert.Zero(t, summary.Fetch.Processed)
	assert.Zero(t, summary.Resolve.Processed)
	assert.Zero(t, summary.Publish.Processed)

	entries, err := os.ReadDir(f.publishDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "one upload and one record sidecar, no duplicates")
}

func TestDuplicateContentProcessedOnce(t *testing.T) {
	f := newFixture(t)
	f.addPhoto(t, "a.jpg", "identical bytes")
	f.addPhoto(t, "b.jpg", "identical bytes")

	summary, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Zero(t, summary.Failed())

	assert.Equal(t, 1, f.backend.CallCount(), "identical content gets one inference call")
	assert.Equal(t, 1, f.ledger.Len(), "equal fingerprints are one item")

	entries, err := os.ReadDir(f.publishDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "one upload and one record sidecar")

	targetA, okA := f.ledger.TargetName("a.jpg")
	targetB, okB := f.ledger.TargetName("b.jpg")
	require.True(t, okA)
	require.True(t, okB)
	assert.Equal(t, targetA, targetB, "both names share the published alias")
}

func TestSequenceContinuesAcrossBatches(t *testing.T) {
	f := newFixture(t)
	f.addPhoto(t, "a.jpg", "first")

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	f.addPhoto(t, "b.jpg", "second")
	_, err = f.pipeline.Run(context.Background())
	require.NoError(t, err)

	target, ok := f.ledger.TargetName("b.jpg")
	require.True(t, ok)
	assert.Equal(t, "Referenz_0002.jpg", target, "numbering resumes after existing uploads")
}

func TestMalformedOutputDegradesToFlaggedRecord(t *testing.T) {
	f := newFixture(t)
	f.addPhoto(t, "a.jpg", "payload")

	// Both in-call attempts and the sequential batch retry (two more
	// attempts) all return garbage.
	f.backend.Default = "no structure here"

	summary, err := f.pipeline.Run(context.Background())
	require.NoError(t, err, "unparsable output must not abort the run")

	assert.Equal(t, 1, summary.Resolve.Flagged)
	assert.Equal(t, 1, summary.Publish.Processed, "flagged records still publish")
	assert.GreaterOrEqual(t, summary.FailureKinds[core.FailureMalformedOutput], 1)

	raw, rerr := os.ReadFile(filepath.Join(f.publishDir, "Referenz_0001.jpg.fields.json"))
	require.NoError(t, rerr)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, core.SentinelNone, fields["Title"], "flagged record carries sentinels")
	assert.Equal(t, core.StatusDraftMachine, fields["Status"])
}

func TestDeleteAfterPublish(t *testing.T) {
	f := newFixture(t, WithDeleteAfterPublish(true))
	f.addPhoto(t, "a.jpg", "payload")

	_, err := f.pipeline.Run(context.Background())
	require.NoError(t, err)

	_, serr := os.Stat(filepath.Join(f.originDir, "a.jpg"))
	assert.True(t, os.IsNotExist(serr), "published items leave the origin")
}

func TestStagesEnforceOrder(t *testing.T) {
	f := newFixture(t)
	f.addPhoto(t, "a.jpg", "payload")

	// Publish before anything is resolved: nothing to do.
	report, err := f.pipeline.Publish(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Processed)

	// Resolve before fetch: nothing eligible.
	report, err = f.pipeline.Resolve(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
	assert.Zero(t, f.backend.CallCount())

	// Now run the stages in order.
	_, err = f.pipeline.Fetch(context.Background())
	require.NoError(t, err)
	report, err = f.pipeline.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	report, err = f.pipeline.Publish(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
}

func TestNewRejectsBadMask(t *testing.T) {
	f := newFixture(t)
	_, err := New(storefs.NewOrigin(f.originDir), storefs.NewPublisher(f.publishDir),
		f.ledger, f.pipeline.gateway, f.pipeline.resolver, testSchema(),
		WithFilenameMask("no-placeholder"))
	assert.ErrorIs(t, err, resolve.ErrInvalidMask)
}

func TestNextSequence(t *testing.T) {
	mask := resolve.DefaultFilenameMask
	assert.Equal(t, 1, nextSequence(nil, mask))
	assert.Equal(t, 8, nextSequence([]string{"Referenz_0007.jpg", "Referenz_0002.png", "other.jpg"}, mask))
	assert.Equal(t, 13, nextSequence([]string{"Referenz_12.jpg"}, mask), "unpadded numbers still count")
}
