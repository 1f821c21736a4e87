package auth

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/meditriage/triage-api/internal/config"
	"github.com/meditriage/triage-api/internal/model"
	"github.com/meditriage/triage-api/pkg/auth"
	"github.com/meditriage/triage-api/pkg/errors"
)

// AuthService authenticates triage desk operators against the configured
// operator list and issues session tokens for the admin surface.
type AuthService interface {
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error)
}

type Service struct {
	operators map[string]config.OperatorConfig
	jwt       auth.JWTService
	expiry    time.Duration
}

func NewService(operators []config.OperatorConfig, jwtService auth.JWTService, expiry time.Duration) *Service {
	byEmail := make(map[string]config.OperatorConfig, len(operators))
	for _, op := range operators {
		byEmail[strings.ToLower(op.Email)] = op
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Service{operators: byEmail, jwt: jwtService, expiry: expiry}
}

func (s *Service) Login(_ context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	op, ok := s.operators[strings.ToLower(req.Email)]
	if !ok {
		// Burn a hash comparison anyway so lookups take the same time
		// whether or not the account exists.
		bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000"), []byte(req.Password))
		return nil, errors.Unauthorized(model.ErrInvalidCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		return nil, errors.Unauthorized(model.ErrInvalidCredentials)
	}

	token, err := s.jwt.GenerateToken(op.ID, op.Email)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &model.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int(s.expiry.Seconds()),
	}, nil
}
