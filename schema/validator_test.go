package schema

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/premid/pmd/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSchemaAcceptsValidMetadata(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)
	assert.Equal(t, embeddedSchemaName, v.Source())

	assert.NoError(t, v.ValidateJSON([]byte(testutil.MetadataJSON("YouTube"))))
}

func TestEmbeddedSchemaReportsEveryViolation(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	var meta map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(testutil.MetadataJSON("YouTube")), &meta))
	meta["version"] = "one"
	meta["color"] = "red"
	delete(meta, "tags")

	err = v.Validate(meta)
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.GreaterOrEqual(t, len(vErr.Messages), 3)
	assert.Contains(t, err.Error(), "/version")
	assert.Contains(t, err.Error(), "/color")
	assert.Contains(t, err.Error(), "tags")
}

func TestValidateJSONRejectsMalformedInput(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)
	assert.ErrorContains(t, v.ValidateJSON([]byte("{")), "invalid JSON")
}

func TestNewValidatorFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"type":"object","required":["service"]}`))
	}))
	defer srv.Close()

	v, err := NewValidatorFromURL(srv.URL + "/metadata.json")
	require.NoError(t, err)
	assert.NoError(t, v.ValidateJSON([]byte(`{"service":"x"}`)))
	assert.Error(t, v.ValidateJSON([]byte(`{}`)))

	embedded, err := NewValidatorFromURL("")
	require.NoError(t, err)
	assert.Equal(t, embeddedSchemaName, embedded.Source())
}
