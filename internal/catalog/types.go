package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// Image is one photo attached to a listing.
type Image struct {
	ID  int64  `json:"id"`
	URL string `json:"image"`
}

// Seller is the listing owner as the feed presents it.
type Seller struct {
	Username       string  `json:"username"`
	ProfilePicture *string `json:"profile_picture"`
}

// AIAnalysis is the backend's image-analysis verdict, when present.
type AIAnalysis struct {
	ConditionRating string `json:"condition_rating"`
	DetectedBrand   string `json:"detected_brand"`
	IsVerified      bool   `json:"is_verified"`
}

// ListingSummary is one feed entry. Price arrives as a decimal string, the
// way the backend serializes it.
type ListingSummary struct {
	ID         int64       `json:"id"`
	Title      string      `json:"title"`
	Price      string      `json:"price"`
	Size       string      `json:"size"`
	Condition  string      `json:"condition"`
	Images     []Image     `json:"images"`
	Seller     Seller      `json:"seller"`
	LikesCount int         `json:"likes_count"`
	IsLiked    bool        `json:"is_liked"`
	AIAnalysis *AIAnalysis `json:"ai_analysis,omitempty"`
}

// PrimaryImage returns the first image URL or empty when the listing has none.
func (l ListingSummary) PrimaryImage() string {
	if len(l.Images) == 0 {
		return ""
	}
	return l.Images[0].URL
}

// PriceCents parses the decimal price string into cents.
func (l ListingSummary) PriceCents() (int64, error) {
	raw := strings.TrimSpace(l.Price)
	if raw == "" {
		return 0, fmt.Errorf("listing %d has no price", l.ID)
	}
	// ParseInt("-0") is 0, so the sign must be rejected on the raw string.
	if strings.HasPrefix(raw, "-") {
		return 0, fmt.Errorf("negative price %q", raw)
	}

	whole, frac, _ := strings.Cut(raw, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing price %q: %w", raw, err)
	}

	cents := int64(0)
	if frac != "" {
		if len(frac) > 2 {
			frac = frac[:2]
		}
		for len(frac) < 2 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing price %q: %w", raw, err)
		}
	}
	return units*100 + cents, nil
}

// Page is the normalized result of one feed fetch: the backend's paginated
// envelope and bare-array shapes both collapse into this.
type Page struct {
	Items   []ListingSummary
	HasMore bool
}
