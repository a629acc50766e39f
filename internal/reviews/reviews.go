package reviews

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/aryannishad-86/thriftgram/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// Reviewer identifies the review author.
type Reviewer struct {
	Username       string  `json:"username"`
	ProfilePicture *string `json:"profile_picture"`
}

// Review is one published review on an item.
type Review struct {
	ID        int64     `json:"id"`
	Reviewer  Reviewer  `json:"reviewer"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Input is a review before submission. Rating and comment are checked
// locally; invalid input never leaves the client.
type Input struct {
	Item    int64  `json:"item" validate:"required,gt=0"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required"`
}

type httpClient interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

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

// Submit validates and posts a review, returning the created record.
func (s *Service) Submit(ctx context.Context, input Input) (*Review, error) {
	input.Comment = strings.TrimSpace(input.Comment)
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "a rating from 1 to 5 and a comment are required")
	}

	var created Review
	if err := s.http.Post(ctx, "/reviews/", input, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// List fetches the reviews for one item.
func (s *Service) List(ctx context.Context, itemID int64) ([]Review, error) {
	query := url.Values{"item": []string{strconv.FormatInt(itemID, 10)}}
	var reviews []Review
	if err := s.http.Get(ctx, "/reviews/", query, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// Average computes the mean rating of a review list, zero when empty.
func Average(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	total := 0
	for _, review := range reviews {
		total += review.Rating
	}
	return float64(total) / float64(len(reviews))
}
