package socialite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/fitpeak/fitpeak-api/services/logging"
)

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleVerifier validates Google id tokens against the tokeninfo endpoint
// and checks the audience against the configured client ids (one per
// platform build).
type GoogleVerifier struct {
	clientIDs  []string
	endpoint   string
	httpClient *http.Client
	logger     *logging.Service
}

func NewGoogleVerifier(clientIDs []string, logger *logging.Service) *GoogleVerifier {
	return &GoogleVerifier{
		clientIDs:  clientIDs,
		endpoint:   googleTokenInfoURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (v *GoogleVerifier) VerifyIdentityToken(ctx context.Context, idToken string) (*Identity, error) {
	reqURL := v.endpoint + "?id_token=" + url.QueryEscape(idToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tokeninfo request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Error("google tokeninfo request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: tokeninfo unreachable", ErrVerificationFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.logger.Warn("google rejected identity token", zap.Int("status", resp.StatusCode))
		return nil, ErrVerificationFailed
	}

	var payload GoogleIdentity
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: malformed tokeninfo response", ErrVerificationFailed)
	}

	if !slices.Contains(v.clientIDs, payload.Aud) {
		v.logger.Warn("google identity token audience mismatch", zap.String("aud", payload.Aud))
		return nil, ErrVerificationFailed
	}

	if payload.Sub == "" {
		return nil, ErrVerificationFailed
	}

	return payload.toIdentity(), nil
}
