package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleConfig holds configuration for the Google ID-token verifier.
type GoogleConfig struct {
	ClientID string `env:"GOOGLE_CLIENT_ID,required"`
}

// GoogleVerifier validates Google ID tokens through the tokeninfo
// endpoint and maps the claims to a VerifiedIdentity keyed on the stable
// subject id.
type GoogleVerifier struct {
	clientID     string
	tokenInfoURL string
	httpClient   *http.Client
}

// GoogleOption configures a GoogleVerifier.
type GoogleOption func(*GoogleVerifier)

// WithGoogleHTTPClient sets a custom HTTP client.
func WithGoogleHTTPClient(client *http.Client) GoogleOption {
	return func(v *GoogleVerifier) {
		v.httpClient = client
	}
}

// WithGoogleTokenInfoURL overrides the tokeninfo endpoint, for tests.
func WithGoogleTokenInfoURL(u string) GoogleOption {
	return func(v *GoogleVerifier) {
		v.tokenInfoURL = u
	}
}

// NewGoogleVerifier creates a Google verifier for the given client ID.
func NewGoogleVerifier(cfg GoogleConfig, opts ...GoogleOption) *GoogleVerifier {
	v := &GoogleVerifier{
		clientID:     cfg.ClientID,
		tokenInfoURL: googleTokenInfoURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type googleClaims struct {
	Audience string `json:"aud"`
	Subject  string `json:"sub"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Picture  string `json:"picture"`
}

// Verify checks the ID token against tokeninfo. Rejections (bad token,
// wrong audience, missing claims) surface as ErrInvalidCredential;
// endpoint unavailability propagates as an infrastructure failure.
func (v *GoogleVerifier) Verify(ctx context.Context, rawAssertion string) (VerifiedIdentity, error) {
	endpoint := v.tokenInfoURL + "?" + url.Values{"id_token": {rawAssertion}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return VerifiedIdentity{}, fmt.Errorf("build tokeninfo request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return VerifiedIdentity{}, fmt.Errorf("call tokeninfo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// tokeninfo answers 4xx for malformed or expired tokens.
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return VerifiedIdentity{}, ErrInvalidCredential
		}
		return VerifiedIdentity{}, fmt.Errorf("tokeninfo returned status %d", resp.StatusCode)
	}

	var claims googleClaims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return VerifiedIdentity{}, ErrInvalidCredential
	}

	if claims.Audience != v.clientID {
		return VerifiedIdentity{}, ErrInvalidCredential
	}
	if claims.Name == "" || claims.Email == "" || claims.Subject == "" {
		return VerifiedIdentity{}, ErrInvalidCredential
	}

	return VerifiedIdentity{
		Method:     MethodGoogle,
		Name:       claims.Name,
		Email:      claims.Email,
		ExternalID: claims.Subject,
		AvatarURL:  claims.Picture,
	}, nil
}

var _ Verifier = (*GoogleVerifier)(nil)
