package socialite

import (
	"context"
	"errors"
	"strings"
)

const (
	ProviderGoogle = "google"
	ProviderApple  = "apple"
)

var (
	ErrUnknownProvider    = errors.New("unknown social login provider")
	ErrVerificationFailed = errors.New("social identity verification failed")
)

// Identity is the single internal shape every provider payload maps into.
type Identity struct {
	Provider   string
	ProviderID string
	Email      string
	FullName   string
	Picture    string
}

// Verifier exchanges a provider-issued identity token for a verified
// Identity. Implementations must reject signature or audience mismatches
// with ErrVerificationFailed.
type Verifier interface {
	VerifyIdentityToken(ctx context.Context, idToken string) (*Identity, error)
}

// GoogleIdentity is the payload shape of Google's tokeninfo response.
type GoogleIdentity struct {
	Sub        string `json:"sub"`
	Aud        string `json:"aud"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

func (g GoogleIdentity) toIdentity() *Identity {
	return &Identity{
		Provider:   ProviderGoogle,
		ProviderID: g.Sub,
		Email:      strings.ToLower(strings.TrimSpace(g.Email)),
		FullName:   strings.TrimSpace(g.GivenName + " " + g.FamilyName),
		Picture:    g.Picture,
	}
}

// AppleIdentity is the claim set extracted from an Apple id token.
type AppleIdentity struct {
	Sub   string
	Email string
}

func (a AppleIdentity) toIdentity() *Identity {
	return &Identity{
		Provider:   ProviderApple,
		ProviderID: a.Sub,
		Email:      strings.ToLower(strings.TrimSpace(a.Email)),
	}
}
