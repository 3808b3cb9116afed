package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/realmhub/internal/access"
	"github.com/lalith-99/realmhub/internal/apperr"
	"github.com/lalith-99/realmhub/internal/auth"
	"github.com/lalith-99/realmhub/internal/models"
	"github.com/lalith-99/realmhub/internal/repository"
	"go.uber.org/zap"
)

// AccountService registers accounts, logs them in and exchanges refresh
// tokens.
type AccountService struct {
	accounts repository.AccountRepository
	grants   repository.GrantRepository
	tokens   *auth.TokenService
	logger   *zap.Logger
}

func NewAccountService(repos repository.Repositories, tokens *auth.TokenService, logger *zap.Logger) *AccountService {
	return &AccountService{
		accounts: repos.Accounts,
		grants:   repos.Grants,
		tokens:   tokens,
		logger:   logger,
	}
}

type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// Register creates an active, unverified account.
//
// Returns ErrInvalid when a field is empty or the password is longer than
// bcrypt accepts, and ErrConflict when the email or the username is taken.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)
	if email == "" || username == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email, username and password are required", apperr.ErrInvalid)
	}
	if len(in.Password) > auth.MaxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", apperr.ErrInvalid, auth.MaxPasswordBytes)
	}

	exists, err := s.accounts.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: account already exists", apperr.ErrConflict)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.Create(ctx, &models.Account{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: &hash,
		IsActive:     true,
	})
	if err != nil {
		return nil, conflictOr(err, "account already exists")
	}

	s.logger.Info("account registered", zap.String("account_id", account.ID.String()))
	return account, nil
}

type LoginResult struct {
	Account *models.Account
	Tokens  auth.TokenPair
}

// Login checks the password of the account registered under email.
//
// Every failure to authenticate returns ErrInvalidCredentials, whichever
// check failed. last_login_at is only written on success.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if account == nil || account.PasswordHash == nil || !auth.VerifyPassword(password, *account.PasswordHash) {
		return nil, apperr.ErrInvalidCredentials
	}

	if err := s.accounts.TouchLastLogin(ctx, account.ID); err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(account.ID, nil)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Account: account, Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new access token and a rotated
// refresh token. When realmID is set the account must hold a grant there,
// and both new tokens carry it as their realm scope.
//
// The presented refresh token stays valid until it expires.
func (s *AccountService) Refresh(ctx context.Context, refreshToken, realmID string) (*auth.TokenPair, error) {
	claims, err := s.tokens.VerifyKind(refreshToken, auth.KindRefresh)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", apperr.ErrUnauthenticated)
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", apperr.ErrUnauthenticated)
	}

	realm, err := access.ParseRealmID(realmID)
	if err != nil {
		return nil, err
	}
	if realm != nil {
		ok, err := s.grants.Exists(ctx, accountID, *realm)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: no access to realm %s", apperr.ErrForbidden, realm)
		}
	}

	pair, err := s.tokens.IssuePair(accountID, realm)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// Me loads the calling account.
func (s *AccountService) Me(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account %s", apperr.ErrNotFound, accountID)
	}
	return account, nil
}

// Logout acknowledges the request. Tokens are stateless; the client drops them.
func (s *AccountService) Logout(ctx context.Context) error {
	return nil
}
