package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/aryannishad-86/thriftgram/internal/optimistic"
	pkgerrors "github.com/aryannishad-86/thriftgram/pkg/errors"
)

type httpClient interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Filters are the feed query parameters. Zero values are omitted from the
// request.
type Filters struct {
	Query     string
	Category  string
	Size      string
	Condition string
	Seller    string
	MinPrice  string
	MaxPrice  string
}

func (f Filters) values() url.Values {
	query := url.Values{}
	set := func(key, value string) {
		if value != "" {
			query.Set(key, value)
		}
	}
	set("search", f.Query)
	set("category", f.Category)
	set("size", f.Size)
	set("condition", f.Condition)
	set("seller", f.Seller)
	set("min_price", f.MinPrice)
	set("max_price", f.MaxPrice)
	return query
}

// API wraps the items endpoints.
type API struct {
	client httpClient
}

func NewAPI(client httpClient) (*API, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	return &API{client: client}, nil
}

// List fetches one feed page and normalizes the response shape. This is the
// single place the envelope-versus-bare-array split is allowed to exist;
// everything downstream sees a Page.
func (a *API) List(ctx context.Context, filters Filters, page, pageSize int) (Page, error) {
	query := filters.values()
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))

	var raw json.RawMessage
	if err := a.client.Get(ctx, "/items/", query, &raw); err != nil {
		return Page{}, err
	}
	return normalizePage(raw)
}

// Get fetches one listing by id.
func (a *API) Get(ctx context.Context, id int64) (*ListingSummary, error) {
	var listing ListingSummary
	if err := a.client.Get(ctx, fmt.Sprintf("/items/%d/", id), nil, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// Like marks a listing liked for the current user.
func (a *API) Like(ctx context.Context, id int64) error {
	return a.client.Post(ctx, fmt.Sprintf("/items/%d/like/", id), nil, nil)
}

// Unlike removes the current user's like.
func (a *API) Unlike(ctx context.Context, id int64) error {
	return a.client.Post(ctx, fmt.Sprintf("/items/%d/unlike/", id), nil, nil)
}

// ToggleLike flips a listing's like state optimistically. The endpoint is
// chosen from the state before the flip, and the toggler's per-listing
// guard rejects a second tap while the first is pending.
func (a *API) ToggleLike(ctx context.Context, toggler *optimistic.Toggler, listing *ListingSummary) error {
	previous := *listing

	return toggler.Do(ctx, fmt.Sprintf("item:%d", listing.ID),
		func() {
			listing.IsLiked = !previous.IsLiked
			if previous.IsLiked {
				listing.LikesCount = previous.LikesCount - 1
			} else {
				listing.LikesCount = previous.LikesCount + 1
			}
		},
		func() {
			*listing = previous
		},
		func(ctx context.Context) error {
			if previous.IsLiked {
				return a.Unlike(ctx, previous.ID)
			}
			return a.Like(ctx, previous.ID)
		},
	)
}

// normalizePage accepts either the paginated envelope {results, next} or a
// bare array. A bare array carries no pagination signal and is terminal.
func normalizePage(raw json.RawMessage) (Page, error) {
	if len(raw) == 0 {
		return Page{Items: []ListingSummary{}}, nil
	}

	var envelope struct {
		Results []ListingSummary `json:"results"`
		Next    *string          `json:"next"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Results != nil {
		return Page{Items: envelope.Results, HasMore: envelope.Next != nil}, nil
	}

	var items []ListingSummary
	if err := json.Unmarshal(raw, &items); err != nil {
		return Page{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unrecognized feed response shape")
	}
	if items == nil {
		items = []ListingSummary{}
	}
	return Page{Items: items, HasMore: false}, nil
}
