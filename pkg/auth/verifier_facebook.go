package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const facebookGraphURL = "https://graph.facebook.com/v11.0"

// facebookRequiredScopes are the authorization scopes the access token
// must have been granted, exactly.
var facebookRequiredScopes = map[string]bool{
	"email":          true,
	"public_profile": true,
}

// FacebookConfig holds configuration for the Facebook access-token
// verifier. AppID and AppSecret form the app token used to inspect
// user tokens.
type FacebookConfig struct {
	AppID     string `env:"FACEBOOK_APP_ID,required"`
	AppSecret string `env:"FACEBOOK_APP_SECRET,required"`
}

// FacebookVerifier validates Facebook access tokens in two steps:
// debug_token confirms the token is valid, was issued to this app and
// carries the required scopes, then /me resolves the profile fields.
type FacebookVerifier struct {
	appID      string
	appSecret  string
	graphURL   string
	httpClient *http.Client
}

// FacebookOption configures a FacebookVerifier.
type FacebookOption func(*FacebookVerifier)

// WithFacebookHTTPClient sets a custom HTTP client.
func WithFacebookHTTPClient(client *http.Client) FacebookOption {
	return func(v *FacebookVerifier) {
		v.httpClient = client
	}
}

// WithFacebookGraphURL overrides the Graph API base URL, for tests.
func WithFacebookGraphURL(u string) FacebookOption {
	return func(v *FacebookVerifier) {
		v.graphURL = u
	}
}

// NewFacebookVerifier creates a Facebook verifier for the given app.
func NewFacebookVerifier(cfg FacebookConfig, opts ...FacebookOption) *FacebookVerifier {
	v := &FacebookVerifier{
		appID:      cfg.AppID,
		appSecret:  cfg.AppSecret,
		graphURL:   facebookGraphURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type fbDebugToken struct {
	Data *struct {
		AppID   string   `json:"app_id"`
		IsValid bool     `json:"is_valid"`
		Scopes  []string `json:"scopes"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type fbProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture *struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// Verify inspects the access token and resolves the profile. Any
// rejection surfaces as ErrInvalidCredential; Graph API unavailability
// propagates as an infrastructure failure.
func (v *FacebookVerifier) Verify(ctx context.Context, rawAssertion string) (VerifiedIdentity, error) {
	if err := v.inspectToken(ctx, rawAssertion); err != nil {
		return VerifiedIdentity{}, err
	}

	profile, err := v.fetchProfile(ctx, rawAssertion)
	if err != nil {
		return VerifiedIdentity{}, err
	}

	if profile.Name == "" || profile.Email == "" || profile.ID == "" {
		return VerifiedIdentity{}, ErrInvalidCredential
	}

	avatarURL := ""
	if profile.Picture != nil {
		avatarURL = profile.Picture.Data.URL
	}

	return VerifiedIdentity{
		Method:     MethodFacebook,
		Name:       profile.Name,
		Email:      profile.Email,
		ExternalID: profile.ID,
		AvatarURL:  avatarURL,
	}, nil
}

func (v *FacebookVerifier) inspectToken(ctx context.Context, accessToken string) error {
	query := url.Values{
		"input_token":  {accessToken},
		"access_token": {v.appID + "|" + v.appSecret},
	}

	var result fbDebugToken
	if err := v.getJSON(ctx, v.graphURL+"/debug_token?"+query.Encode(), &result); err != nil {
		return err
	}

	if result.Data == nil {
		if result.Error != nil && result.Error.Message != "" {
			return fmt.Errorf("debug_token: %s", result.Error.Message)
		}
		return ErrInvalidCredential
	}

	if result.Data.AppID != v.appID || !result.Data.IsValid {
		return ErrInvalidCredential
	}

	if len(result.Data.Scopes) != len(facebookRequiredScopes) {
		return ErrInvalidCredential
	}
	for _, scope := range result.Data.Scopes {
		if !facebookRequiredScopes[scope] {
			return ErrInvalidCredential
		}
	}
	return nil
}

func (v *FacebookVerifier) fetchProfile(ctx context.Context, accessToken string) (*fbProfile, error) {
	query := url.Values{
		"fields":       {"id,name,email,picture.width(512).height(512)"},
		"access_token": {accessToken},
	}

	var profile fbProfile
	if err := v.getJSON(ctx, v.graphURL+"/me?"+query.Encode(), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (v *FacebookVerifier) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build graph request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call graph api: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Graph error envelopes arrive with 4xx statuses; decode them anyway
	// so inspectToken can distinguish a rejected token from an outage.
	if resp.StatusCode >= 500 {
		return fmt.Errorf("graph api returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return ErrInvalidCredential
	}
	return nil
}

var _ Verifier = (*FacebookVerifier)(nil)
