// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, and issuing/refreshing JWTs
// plus server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
)

var emailPattern = regexp.MustCompile(`^.+@.+\..+$`)

const (
	msgUserExists         = "User with this username or email already exists."
	msgInvalidCredentials = "Invalid credentials."
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Session is what a successful register, login or refresh hands back.
type Session struct {
	UserID string
	TokenPair
}

// UserService provides authentication-related operations:
// - Register: validate and create users
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		logger:                       logger.With("service", "users"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register validates the input, stores a bcrypt hash of the password and
// signs the new user in.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	switch {
	case username == "":
		return nil, common.NewUserError(common.ErrorValidation, "Username is required.")
	case !emailPattern.MatchString(email):
		return nil, common.NewUserError(common.ErrorValidation, "Please enter a valid email address.")
	case len(password) < auth.MinPasswordLength:
		return nil, common.NewUserError(common.ErrorValidation,
			fmt.Sprintf("Password must be at least %d characters long.", auth.MinPasswordLength))
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var sess *Session
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.repomanager.Users(tx).Create(ctx, &models.User{Username: username, Email: email, PasswordHash: hash})
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.NewUserError(common.ErrorValidation, msgUserExists)
			}
			return fmt.Errorf("error creating user: %w", err)
		}
		pair, err := s.generateTokenPair(ctx, u.ID, tx)
		if err != nil {
			return err
		}
		sess = &Session{UserID: u.ID, TokenPair: *pair}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", sess.UserID)
	return sess, nil
}

// Login verifies the password of the user whose username or email equals
// identifier and, on success, returns a new Session.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, common.NewUserError(common.ErrorValidation, "Identifier and password are required.")
	}

	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, identifier)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewUserError(common.ErrorUnauthorized, msgInvalidCredentials)
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return nil, common.NewUserError(common.ErrorUnauthorized, msgInvalidCredentials)
	}

	pair, err := s.generateTokenPair(ctx, user.ID, s.db)
	if err != nil {
		return nil, err
	}
	return &Session{UserID: user.ID, TokenPair: *pair}, nil
}

// RefreshToken exchanges a refresh token for a new pair. The old token is
// consumed in the same transaction that stores its replacement. Expired
// tokens yield common.ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	var sess *Session
	expired := false
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error consuming refresh token: %w", err)
		}
		// commit the delete so an expired token cannot be retried
		if token.Expires.Before(time.Now()) {
			expired = true
			return nil
		}
		pair, err := s.generateTokenPair(ctx, token.UserID, tx)
		if err != nil {
			return err
		}
		sess = &Session{UserID: token.UserID, TokenPair: *pair}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, common.ErrRefreshTokenExpired
	}
	return sess, nil
}

// PurgeExpiredTokens deletes refresh tokens that expired before now.
func (s *UserService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug(ctx, "expired refresh tokens purged", "count", n)
	}
	return n, nil
}

// --- helpers below ---

func (s *UserService) generateAccessToken(userID string) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: sign access token: %v", common.ErrorInternal, err)
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("%w: generate refresh token: %v", common.ErrorInternal, err)
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, fmt.Errorf("%w: store refresh token: %v", common.ErrorInternal, err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
