package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/photoflow/core"
	"github.com/poiesic/photoflow/geo"
)

func librarySchema() *core.TargetSchema {
	return &core.TargetSchema{
		Title:   "Referenzfotos",
		Version: "2",
		Fields: []core.FieldSpec{
			{InternalName: "Title", Title: "Title", Kind: core.KindText, Required: true},
			{InternalName: "Description", Title: "Description", Kind: core.KindText},
			{InternalName: "Category", Title: "BuildingType", Kind: core.KindSingleChoice, Required: true,
				Choices: []string{"Residential", "Industrial"}},
			{InternalName: "Tags", Title: "Tags", Kind: core.KindMultiChoice,
				Choices: []string{"Exterior", "Interior", "Detail"}},
			{InternalName: "Ort", Title: "Ort", Kind: core.KindText},
			{InternalName: "Aufnahmedatum", Title: "Aufnahmedatum", Kind: core.KindDateTime},
			{InternalName: "Status", Title: "Status", Kind: core.KindSingleChoice,
				Choices: []string{"Entwurf KI", "Draft (AI)", "Approved"}},
			{InternalName: "OriginalName", Title: "OriginalName", Kind: core.KindText},
			{InternalName: "ID", Title: "ID", Kind: core.KindText},
		},
		SkipFields: []string{"ID"},
	}
}

func newResolver(t *testing.T, opts ...Option) *Resolver {
	t.Helper()
	r, err := New(opts...)
	require.NoError(t, err)
	return r
}

func TestResolveCompletenessWithNoSources(t *testing.T) {
	r := newResolver(t)
	item := &core.SourceItem{Name: "bare.jpg", Payload: []byte("x")}

	record, err := r.Resolve(context.Background(), item, nil, librarySchema())
	require.NoError(t, err)

	for _, name := range []string{"Title", "Description", "Category", "Tags", "Ort", "Aufnahmedatum"} {
		require.Contains(t, record.Fields, name, "every non-skip field must be present")
	}
	assert.Equal(t, core.SentinelNone, record.Fields["Title"])
	assert.Equal(t, core.SentinelNone, record.Fields["Category"])
	assert.NotContains(t, record.Fields, "ID", "skip-listed fields stay absent")
}

func TestResolveAlwaysStampsStatusAndOrigin(t *testing.T) {
	r := newResolver(t)
	item := &core.SourceItem{Name: "IMG_0042.jpg", Payload: []byte("x")}

	record, err := r.Resolve(context.Background(), item, core.Analysis{"Status": "Approved"}, librarySchema())
	require.NoError(t, err)

	assert.Equal(t, core.StatusDraftMachine, record.Fields[core.StatusFieldName],
		"machine-generated records are always drafts, whatever the model claims")
	assert.Equal(t, "IMG_0042.jpg", record.Fields[core.OriginalNameFieldName])
	assert.Equal(t, "IMG_0042.jpg", record.SourceName)
	assert.Equal(t, core.FingerprintBytes([]byte("x")), record.Fingerprint)
}

func TestResolveChoiceFuzzyMatch(t *testing.T) {
	r := newResolver(t)
	item := &core.SourceItem{Name: "a.jpg", Payload: []byte("x")}

	record, err := r.Resolve(context.Background(), item,
		core.Analysis{"BuildingType": "residential building"}, librarySchema())
	require.NoError(t, err)
	assert.Equal(t, "Residential", record.Fields["Category"])
}

func TestResolveChoiceNoMatchFallsToSentinel(t *testing.T) {
	r := newResolver(t)
	item := &core.SourceItem{Name: "a.jpg", Payload: []byte("x")}

	record, err := r.Resolve(context.Background(), item,
		core.Analysis{"BuildingType": "Spaceship"}, librarySchema())
	require.NoError(t, err)
	assert.Equal(t, core.SentinelNone, record.Fields["Category"])
}

func TestResolveStrictModeDisablesFuzzy(t *testing.T) {
	r := newResolver(t, WithStrictChoices(true))
	item := &core.SourceItem{Name: "a.jpg", Payload: []byte("x")}

	record, err := r.Resolve(context.Background(), item,
		core.Analysis{"BuildingType": "residential building"}, librarySchema())
	require.NoError(t, err)
	assert.Equal(t, core.SentinelNone, record.Fields["Category"])

	record, err = r.Resolve(context.Background(), item,
		core.Analysis{"BuildingType": "Residential"}, librarySchema())
	require.NoError(t, err)
	assert.Equal(t, "Residential", record.Fields["Category"])
}

func TestResolveMultiChoiceDropsInvalidElements(t *testing.T) {
	r := newResolver(t)
	item := &core.SourceItem{Name: "a.jpg", Payload: []byte("x")}

	record, err := r.Resolve(context.Background(), item,
		core.Analysis{"Tags": []any{"exterior view", "Spaceship", "Interior"}}, librarySchema())
	require.NoError(t, err)
	assert.Equal(t, []string{"Exterior", "Interior"}, record.Fields["Tags"])
}

func TestResolvePrefersEmbeddedDateOverAnalysis(t *testing.T) {
	r := newResolver(t)
	captured := time.Date(2021, 7, 14, 10, 30, 0, 0, time.UTC)
	item := &core.SourceItem{
		Name:    "a.jpg",
		Payload: []byte("x"),
		Attributes: map[string]core.Attribute{
			"DateTimeOriginal": core.TimestampAttribute(captured),
		},
	}

	record, err := r.Resolve(context.Background(), item,
		core.Analysis{"Aufnahmedatum": "2003-01-01"}, librarySchema())
	require.NoError(t, err)
	assert.Equal(t, captured, record.Fields["Aufnahmedatum"],
		"capture dates trust the file over the model")
}

func TestResolvePrefersAnalysisTitleOverEmbedded(t *testing.T) {
	r := newResolver(t)
	item := &core.SourceItem{
		Name:    "a.jpg",
		Payload: []byte("x"),
		Attributes: map[string]core.Attribute{
			"ImageDescription": core.TextAttribute("DSC04712"),
		},
	}

	record, err := r.Resolve(context.Background(), item,
		core.Analysis{"Title": "Timber frame house at dusk"}, librarySchema())
	require.NoError(t, err)
	assert.Equal(t, "Timber frame house at dusk", record.Fields["Title"])
}

func TestResolveEmbeddedFallbackWhenAnalysisSilent(t *testing.T) {
	r := newResolver(t)
	item := &core.SourceItem{
		Name:    "a.jpg",
		Payload: []byte("x"),
		Attributes: map[string]core.Attribute{
			"ImageDescription": core.TextAttribute("Baustelle Westtrakt"),
		},
	}

	record, err := r.Resolve(context.Background(), item, core.Analysis{}, librarySchema())
	require.NoError(t, err)
	assert.Equal(t, "Baustelle Westtrakt", record.Fields["Title"])
}

func TestResolveGeocodesCoordinates(t *testing.T) {
	geocoder := geo.NewStatic(map[string]string{geo.StaticKey(47.376887, 8.541694): "Zürich"})
	r := newResolver(t, WithGeocoder(geocoder))
	item := &core.SourceItem{
		Name:    "a.jpg",
		Payload: []byte("x"),
		Attributes: map[string]core.Attribute{
			"GPS": core.CoordinateAttribute(47.376887, 8.541694),
		},
	}

	record, err := r.Resolve(context.Background(), item, nil, librarySchema())
	require.NoError(t, err)
	assert.Equal(t, "Zürich", record.Fields["Ort"])
}

func TestResolveGeocodeFailureFallsBackToRawCoordinates(t *testing.T) {
	geocoder := geo.NewStatic(nil) // every lookup is ErrNotFound
	r := newResolver(t, WithGeocoder(geocoder))
	item := &core.SourceItem{
		Name:    "a.jpg",
		Payload: []byte("x"),
		Attributes: map[string]core.Attribute{
			"GPS": core.CoordinateAttribute(46.947975, 7.447447),
		},
	}

	record, err := r.Resolve(context.Background(), item, nil, librarySchema())
	require.NoError(t, err)
	assert.Equal(t, "46.947975, 7.447447", record.Fields["Ort"],
		"failed lookups degrade to the raw pair, never an empty field")
}

func TestResolveLocationPrefersCoordinatesOverAnalysis(t *testing.T) {
	geocoder := geo.NewStatic(map[string]string{geo.StaticKey(47.376887, 8.541694): "Zürich"})
	r := newResolver(t, WithGeocoder(geocoder))
	item := &core.SourceItem{
		Name:    "a.jpg",
		Payload: []byte("x"),
		Attributes: map[string]core.Attribute{
			"GPS": core.CoordinateAttribute(47.376887, 8.541694),
		},
	}

	record, err := r.Resolve(context.Background(), item,
		core.Analysis{"Ort": "somewhere scenic"}, librarySchema())
	require.NoError(t, err)
	assert.Equal(t, "Zürich", record.Fields["Ort"])
}

func TestResolveMalformedSchemaIsFatal(t *testing.T) {
	r := newResolver(t)
	item := &core.SourceItem{Name: "a.jpg", Payload: []byte("x")}

	_, err := r.Resolve(context.Background(), item, nil, &core.TargetSchema{})
	require.Error(t, err)
	assert.Equal(t, core.FailureFatal, core.KindOf(err))
}

func TestNewRejectsBadPriorityTable(t *testing.T) {
	_, err := New(WithPriorities(PriorityTable{"Title": {"psychic"}}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPriorities)
	assert.Equal(t, core.FailureFatal, core.KindOf(err))
}
