package repository

import (
	"context"
	"errors"

	"github.com/noah-isme/cbcs-registration/internal/models"
	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
)

// AuthRepository exchanges credentials for a registrar token.
type AuthRepository struct {
	client *RegistrarClient
}

// NewAuthRepository constructs an AuthRepository.
func NewAuthRepository(client *RegistrarClient) *AuthRepository {
	return &AuthRepository{client: client}
}

// Login calls POST /login/. The registrar answers bad credentials with 400 or 401.
func (r *AuthRepository) Login(ctx context.Context, req models.LoginRequest) (*models.RegistrarLogin, error) {
	var out models.RegistrarLogin
	if err := r.client.PostAnonymous(ctx, "/login/", req, &out); err != nil {
		if errors.Is(err, appErrors.ErrValidation) || errors.Is(err, appErrors.ErrAuth) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if out.Token == "" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &out, nil
}
