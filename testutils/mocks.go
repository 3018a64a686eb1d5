package testutils

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fitpeak/fitpeak-api/services/socialite"
)

type MockMailService struct {
	mock.Mock
}

func (m *MockMailService) SendTemplate(templateName string, to []string, subject string, data map[string]any) error {
	args := m.Called(templateName, to, subject, data)
	return args.Error(0)
}

type MockPusher struct {
	mock.Mock
}

func (m *MockPusher) Send(tokens []string, title, body string, data map[string]string) error {
	args := m.Called(tokens, title, body, data)
	return args.Error(0)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyIdentityToken(ctx context.Context, idToken string) (*socialite.Identity, error) {
	args := m.Called(ctx, idToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*socialite.Identity), args.Error(1)
}
