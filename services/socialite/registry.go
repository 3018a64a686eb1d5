package socialite

import "context"

// Registry selects the verifier for a provider name.
type Registry struct {
	verifiers map[string]Verifier
}

func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[string]Verifier)}
}

func (r *Registry) Register(provider string, verifier Verifier) {
	r.verifiers[provider] = verifier
}

func (r *Registry) Verify(ctx context.Context, provider, idToken string) (*Identity, error) {
	verifier, ok := r.verifiers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return verifier.VerifyIdentityToken(ctx, idToken)
}
