package checkout

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/aryannishad-86/thriftgram/internal/catalog"
	pkgerrors "github.com/aryannishad-86/thriftgram/pkg/errors"
)

// Buyer identifies the purchasing side of an order.
type Buyer struct {
	Username       string  `json:"username"`
	ProfilePicture *string `json:"profile_picture"`
}

// Order is one purchase as the orders endpoint lists it. TotalAmount is a
// decimal string, the way the backend serializes money.
type Order struct {
	ID          int64                  `json:"id"`
	Buyer       Buyer                  `json:"buyer"`
	Item        catalog.ListingSummary `json:"item"`
	Status      string                 `json:"status"`
	TotalAmount string                 `json:"total_amount"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Order statuses as the backend reports them.
const (
	StatusPending   = "PENDING"
	StatusPaid      = "PAID"
	StatusShipped   = "SHIPPED"
	StatusDelivered = "DELIVERED"
	StatusCancelled = "CANCELLED"
)

type httpClient interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

type sessionInput struct {
	Item int64 `json:"item_id"`
}

type sessionResponse struct {
	URL string `json:"url"`
}

// Service drives the purchase flow. Payment happens on a hosted page the
// backend creates; the client only follows the returned URL.
type Service struct {
	http httpClient
}

func NewService(http httpClient) (*Service, error) {
	if http == nil {
		return nil, fmt.Errorf("http client is required")
	}
	return &Service{http: http}, nil
}

// CreateSession asks the backend for a hosted checkout page for one item
// and returns the redirect URL.
func (s *Service) CreateSession(ctx context.Context, itemID int64) (string, error) {
	if itemID <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "an item id is required")
	}

	var resp sessionResponse
	if err := s.http.Post(ctx, "/create-checkout-session/", sessionInput{Item: itemID}, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "checkout session came back without a url")
	}
	return resp.URL, nil
}

// Orders fetches the caller's order history, purchases and sales alike.
func (s *Service) Orders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := s.http.Get(ctx, "/orders/", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Split partitions orders into purchases and sales for one username.
func Split(orders []Order, username string) (purchases, sales []Order) {
	for _, order := range orders {
		if order.Buyer.Username == username {
			purchases = append(purchases, order)
		} else {
			sales = append(sales, order)
		}
	}
	return purchases, sales
}
