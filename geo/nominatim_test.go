package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nominatimServer(t *testing.T, body string, status int, gotUA *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotUA != nil {
			*gotUA = r.Header.Get("User-Agent")
		}
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.URL.Query().Get("lat"))
		assert.NotEmpty(t, r.URL.Query().Get("lon"))
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestNominatimPrefersCity(t *testing.T) {
	var ua string
	srv := nominatimServer(t, `{"address": {"city": "Zürich", "state": "Zürich (Kanton)"}}`, http.StatusOK, &ua)
	defer srv.Close()

	n := NewNominatim(WithBaseURL(srv.URL), WithUserAgent("test-agent"))
	place, err := n.Lookup(context.Background(), 47.376887, 8.541694)
	require.NoError(t, err)
	assert.Equal(t, "Zürich", place)
	assert.Equal(t, "test-agent", ua, "usage policy requires an identifying User-Agent")
}

func TestNominatimFallsBackThroughLocalities(t *testing.T) {
	srv := nominatimServer(t, `{"address": {"hamlet": "Oberdorf", "state": "Bern"}}`, http.StatusOK, nil)
	defer srv.Close()

	n := NewNominatim(WithBaseURL(srv.URL))
	place, err := n.Lookup(context.Background(), 46.9, 7.4)
	require.NoError(t, err)
	assert.Equal(t, "Oberdorf", place)
}

func TestNominatimNoUsableResult(t *testing.T) {
	srv := nominatimServer(t, `{"address": {}}`, http.StatusOK, nil)
	defer srv.Close()

	n := NewNominatim(WithBaseURL(srv.URL))
	_, err := n.Lookup(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNominatimErrorBody(t *testing.T) {
	srv := nominatimServer(t, `{"error": "Unable to geocode"}`, http.StatusOK, nil)
	defer srv.Close()

	n := NewNominatim(WithBaseURL(srv.URL))
	_, err := n.Lookup(context.Background(), 91, 181)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNominatimServerError(t *testing.T) {
	srv := nominatimServer(t, "", http.StatusTooManyRequests, nil)
	defer srv.Close()

	n := NewNominatim(WithBaseURL(srv.URL))
	_, err := n.Lookup(context.Background(), 47.0, 8.0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "server failures are not the same as no result")
}

func TestStaticLookup(t *testing.T) {
	s := NewStatic(map[string]string{StaticKey(47.376887, 8.541694): "Zürich"})

	place, err := s.Lookup(context.Background(), 47.376887, 8.541694)
	require.NoError(t, err)
	assert.Equal(t, "Zürich", place)

	_, err = s.Lookup(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, s.Calls())
}
