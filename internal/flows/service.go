package flows

import (
	"context"

	"github.com/MrEthical07/storeauth/credential"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Authorize.Verify != nil
}

func (s Service) Register(ctx context.Context, username, password string) (credential.User, error) {
	return RunRegister(ctx, username, password, s.deps.Register)
}

func (s Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	return RunLogin(ctx, username, password, s.deps.Login)
}

func (s Service) Authorize(ctx context.Context, token string) (AuthorizedToken, error) {
	return RunAuthorize(ctx, token, s.deps.Authorize)
}

func (s Service) Logout(ctx context.Context, token string) error {
	return RunLogout(ctx, token, s.deps.Logout)
}
