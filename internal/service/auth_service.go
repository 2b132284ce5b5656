package service

import (
	"context"
	"log/slog"

	"postgate/internal/auth"
	"postgate/internal/cache"
	"postgate/internal/middleware"
	"postgate/internal/models"
	"postgate/internal/observability"
	"postgate/internal/repository"
)

const invalidCredentialsMsg = "Incorrect username or password"

// AuthService resolves identities from credentials and tokens.
type AuthService struct {
	store       repository.Store
	users       *UserService
	tokens      *auth.TokenManager
	revocations *cache.Revocations
}

func NewAuthService(store repository.Store, users *UserService, tokens *auth.TokenManager, revocations *cache.Revocations) *AuthService {
	return &AuthService{
		store:       store,
		users:       users,
		tokens:      tokens,
		revocations: revocations,
	}
}

// Register creates an account. No token is issued; the caller logs in next.
func (s *AuthService) Register(ctx context.Context, in CreateUserInput) (*models.User, error) {
	user, err := s.users.CreateUser(ctx, in)
	if err != nil {
		return nil, err
	}
	observability.AuthEvents.WithLabelValues("register").Inc()
	return user, nil
}

// Login checks credentials and issues an access token. Unknown email, wrong
// password and a deactivated account all fail the same way.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.store.Users().GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", nil, err
	}
	if user == nil || !auth.CheckPassword(user.Password, password) || !user.IsActive {
		observability.AuthEvents.WithLabelValues("login_failed").Inc()
		return "", nil, models.NewUnauthorizedError(invalidCredentialsMsg)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	observability.AuthEvents.WithLabelValues("login_success").Inc()
	middleware.Logger.InfoContext(ctx, "user logged in", slog.Uint64("user_id", uint64(user.ID)))
	return token, user, nil
}

// IssueToken signs a fresh token for user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	token, _, err := s.tokens.Issue(user.Email)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return token, nil
}

// Authenticate verifies token and loads the active user it names.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, *auth.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil, models.NewUnauthorizedError("Could not validate credentials")
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		// Redis trouble must not lock everyone out; the token is still verified.
		middleware.Logger.WarnContext(ctx, "revocation check failed", slog.String("error", err.Error()))
	}
	if revoked {
		return nil, nil, models.NewUnauthorizedError("Token has been revoked")
	}

	user, err := s.store.Users().GetByEmail(ctx, claims.Subject)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil, models.NewUnauthorizedError("Could not validate credentials")
	}
	return user, claims, nil
}

// Logout revokes the token behind claims until it would have expired.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, claims.ID, s.tokens.Remaining(claims)); err != nil {
		return models.NewInternalError(err)
	}
	observability.AuthEvents.WithLabelValues("token_revoked").Inc()
	return nil
}

// TokenTTL is the lifetime of issued tokens.
func (s *AuthService) TokenTTL() int {
	return int(s.tokens.TTL().Seconds())
}
