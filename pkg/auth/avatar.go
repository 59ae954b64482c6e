package auth

import "context"

// AvatarUploader turns a provider-reported avatar URL into an owned asset
// reference during first-login activation. Upload failures abort the whole
// login attempt; the engine never swallows them.
type AvatarUploader interface {
	Upload(ctx context.Context, sourceURL string) (string, error)
}

// PassthroughAvatars stores the provider URL as-is. Default when no
// re-hosting backend is wired.
type PassthroughAvatars struct{}

func (PassthroughAvatars) Upload(_ context.Context, sourceURL string) (string, error) {
	return sourceURL, nil
}

var _ AvatarUploader = PassthroughAvatars{}
