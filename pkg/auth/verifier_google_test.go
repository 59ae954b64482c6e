package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func googleTokenInfo(t *testing.T, handler http.HandlerFunc) *GoogleVerifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGoogleVerifier(
		GoogleConfig{ClientID: "client-123"},
		WithGoogleTokenInfoURL(srv.URL),
		WithGoogleHTTPClient(srv.Client()),
	)
}

func TestGoogleVerifier_Verify(t *testing.T) {
	t.Parallel()

	t.Run("maps valid claims to an identity", func(t *testing.T) {
		t.Parallel()

		v := googleTokenInfo(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "raw-token", r.URL.Query().Get("id_token"))
			_ = json.NewEncoder(w).Encode(map[string]string{
				"aud":     "client-123",
				"sub":     "g-777",
				"name":    "Ann Cole",
				"email":   "ann@x.com",
				"picture": "https://lh3.example.com/a.png",
			})
		})

		identity, err := v.Verify(context.Background(), "raw-token")

		require.NoError(t, err)
		assert.Equal(t, MethodGoogle, identity.Method)
		assert.Equal(t, "g-777", identity.ExternalID)
		assert.Equal(t, "Ann Cole", identity.Name)
		assert.Equal(t, "ann@x.com", identity.Email)
		assert.Equal(t, "https://lh3.example.com/a.png", identity.AvatarURL)
	})

	t.Run("rejected token fails with ErrInvalidCredential", func(t *testing.T) {
		t.Parallel()

		v := googleTokenInfo(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid_token"}`, http.StatusBadRequest)
		})

		_, err := v.Verify(context.Background(), "expired")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("token minted for another app is rejected", func(t *testing.T) {
		t.Parallel()

		v := googleTokenInfo(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{
				"aud":   "someone-elses-client",
				"sub":   "g-777",
				"name":  "Ann Cole",
				"email": "ann@x.com",
			})
		})

		_, err := v.Verify(context.Background(), "raw-token")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("claims without a name are rejected", func(t *testing.T) {
		t.Parallel()

		v := googleTokenInfo(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{
				"aud":   "client-123",
				"sub":   "g-777",
				"email": "ann@x.com",
			})
		})

		_, err := v.Verify(context.Background(), "raw-token")
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("endpoint outage is an infrastructure failure", func(t *testing.T) {
		t.Parallel()

		v := googleTokenInfo(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := v.Verify(context.Background(), "raw-token")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredential)
	})
}
