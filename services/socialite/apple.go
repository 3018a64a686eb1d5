package socialite

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/fitpeak/fitpeak-api/services/logging"
)

const (
	appleKeysURL = "https://appleid.apple.com/auth/keys"
	appleIssuer  = "https://appleid.apple.com"
)

// AppleVerifier validates Sign in with Apple id tokens: RS256 signature
// against Apple's published JWKS, issuer check, and audience check against
// the configured client ids.
type AppleVerifier struct {
	clientIDs  []string
	keysURL    string
	httpClient *http.Client
	logger     *logging.Service

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

type appleJWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func NewAppleVerifier(clientIDs []string, logger *logging.Service) *AppleVerifier {
	return &AppleVerifier{
		clientIDs:  clientIDs,
		keysURL:    appleKeysURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (v *AppleVerifier) VerifyIdentityToken(ctx context.Context, idToken string) (*Identity, error) {
	token, err := jwt.Parse(idToken, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected algorithm: %s", token.Method.Alg())
		}

		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("id token missing kid header")
		}

		return v.publicKey(ctx, kid)
	}, jwt.WithIssuer(appleIssuer), jwt.WithValidMethods([]string{"RS256"}))

	if err != nil || !token.Valid {
		v.logger.Warn("apple identity token verification failed", zap.Error(err))
		return nil, ErrVerificationFailed
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrVerificationFailed
	}

	aud, _ := claims.GetAudience()
	if !audienceAllowed(aud, v.clientIDs) {
		v.logger.Warn("apple identity token audience mismatch")
		return nil, ErrVerificationFailed
	}

	sub, _ := claims.GetSubject()
	if sub == "" {
		return nil, ErrVerificationFailed
	}

	email, _ := claims["email"].(string)

	payload := AppleIdentity{Sub: sub, Email: email}
	return payload.toIdentity(), nil
}

// publicKey returns the JWKS key for kid, refreshing the cached set when
// it is stale or the kid is unknown (Apple rotates keys).
func (v *AppleVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if key, ok := v.keys[kid]; ok && time.Since(v.fetchedAt) < time.Hour {
		return key, nil
	}

	if err := v.fetchKeys(ctx); err != nil {
		return nil, err
	}

	key, ok := v.keys[kid]
	if !ok {
		return nil, fmt.Errorf("no Apple public key for kid %q", kid)
	}
	return key, nil
}

func (v *AppleVerifier) fetchKeys(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.keysURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build JWKS request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch Apple JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("apple JWKS endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		Keys []appleJWK `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to decode Apple JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(body.Keys))
	for _, jwk := range body.Keys {
		if jwk.Kty != "RSA" {
			continue
		}
		key, err := jwkToRSAPublicKey(jwk)
		if err != nil {
			v.logger.Warn("skipping malformed Apple JWK", zap.String("kid", jwk.Kid), zap.Error(err))
			continue
		}
		keys[jwk.Kid] = key
	}

	v.keys = keys
	v.fetchedAt = time.Now()
	return nil
}

func jwkToRSAPublicKey(jwk appleJWK) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("invalid modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent: %w", err)
	}

	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

func audienceAllowed(aud jwt.ClaimStrings, allowed []string) bool {
	for _, a := range aud {
		if slices.Contains(allowed, a) {
			return true
		}
	}
	return false
}
