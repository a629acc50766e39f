package account

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/aryannishad-86/thriftgram/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// Input is a signup request. The backend only demands a username and
// password; the email is optional but checked for shape when present.
type Input struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
}

type httpClient interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Service creates accounts. Registration is the one unauthenticated
// write; logging in afterwards goes through the token endpoint.
type Service struct {
	http     httpClient
	validate *validator.Validate
}

func NewService(http httpClient) (*Service, error) {
	if http == nil {
		return nil, fmt.Errorf("http client is required")
	}
	return &Service{
		http:     http,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// Register validates and submits a signup. The backend rejects taken
// usernames with a validation error the caller can show as-is.
func (s *Service) Register(ctx context.Context, input Input) error {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := s.validate.Struct(input); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "a username and password are required")
	}
	return s.http.Post(ctx, "/register/", input, nil)
}
