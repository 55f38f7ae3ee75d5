package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainObject(t *testing.T) {
	analysis, err := extractAnalysis(`{"Title": "Harbor", "Category": "Commercial"}`)
	require.NoError(t, err)
	assert.Equal(t, "Harbor", analysis["Title"])
	assert.Equal(t, "Commercial", analysis["Category"])
}

func TestExtractFencedObject(t *testing.T) {
	raw := "```json\n{\"Title\": \"Harbor\"}\n```"
	analysis, err := extractAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, "Harbor", analysis["Title"])
}

func TestExtractObjectBuriedInProse(t *testing.T) {
	raw := "Sure! Here is the metadata you asked for:\n\n{\"Title\": \"Harbor\"}\n\nLet me know if you need anything else."
	analysis, err := extractAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, "Harbor", analysis["Title"])
}

func TestExtractOutermostBlock(t *testing.T) {
	raw := `{"Title": "Harbor", "Extra": {"nested": true}}`
	analysis, err := extractAnalysis(raw)
	require.NoError(t, err)
	assert.Contains(t, analysis, "Extra")
}

func TestExtractRepairsUnquotedKeys(t *testing.T) {
	raw := `{Title": "Harbor", Category": "Commercial"}`
	analysis, err := extractAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, "Harbor", analysis["Title"])
	assert.Equal(t, "Commercial", analysis["Category"])
}

func TestExtractNoBlockKeepsRaw(t *testing.T) {
	raw := "I cannot determine any metadata for this image."
	_, err := extractAnalysis(raw)
	require.Error(t, err)

	var malformed *MalformedOutputError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, raw, malformed.Raw)
	assert.ErrorIs(t, err, ErrNoStructuredBlock)
}

func TestExtractBrokenJSONKeepsRaw(t *testing.T) {
	raw := `{"Title": "Harbor",}`
	_, err := extractAnalysis(raw)
	require.Error(t, err)

	var malformed *MalformedOutputError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, raw, malformed.Raw)
}

func TestRepairJSONLeavesValidInputAlone(t *testing.T) {
	in := `{"a": "b", "c": {"d": 1}}`
	assert.Equal(t, in, repairJSON(in))
}
