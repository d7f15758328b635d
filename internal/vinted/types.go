package vinted

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// catalogResponse is the top-level catalog API response. Items are kept raw
// so one malformed record does not fail the whole page.
type catalogResponse struct {
	Items      []json.RawMessage `json:"items"`
	Pagination *pagination       `json:"pagination,omitempty"`
}

type pagination struct {
	CurrentPage  int `json:"current_page"`
	TotalPages   int `json:"total_pages"`
	TotalEntries int `json:"total_entries"`
	PerPage      int `json:"per_page"`
}

// RawItem is a single catalog record as returned by the API. Field shapes
// vary between API versions, so loosely typed fields use the flex* types.
type RawItem struct {
	ID             flexString `json:"id"`
	Title          string     `json:"title"`
	BrandTitle     string     `json:"brand_title"`
	Brand          flexString `json:"brand"`
	SizeTitle      string     `json:"size_title"`
	Size           flexString `json:"size"`
	Status         flexString `json:"status"`
	ItemBox        *itemBox   `json:"item_box,omitempty"`
	Subtitle       string     `json:"subtitle"`
	Price          *money     `json:"price,omitempty"`
	PriceNumeric   flexString `json:"price_numeric"`
	Currency       string     `json:"currency"`
	TotalItemPrice *money     `json:"total_item_price,omitempty"`
	ServiceFee     *money     `json:"service_fee,omitempty"`
	Photo          *rawPhoto  `json:"photo,omitempty"`
	Photos         []rawPhoto `json:"photos,omitempty"`
	URL            string     `json:"url"`
	Path           string     `json:"path"`
	FavouriteCount flexInt    `json:"favourite_count"`
	ViewCount      flexInt    `json:"view_count"`
	IsFavourite    flexBool   `json:"is_favourite"`
	IsVisible      *flexBool  `json:"is_visible,omitempty"`
	Promoted       flexBool   `json:"promoted"`
	ContentSource  string     `json:"content_source"`
	User           *rawUser   `json:"user,omitempty"`

	SearchTrackingParams *searchTracking `json:"search_tracking_params,omitempty"`
}

type itemBox struct {
	FirstLine  string `json:"first_line"`
	SecondLine string `json:"second_line"`
}

type rawPhoto struct {
	URL         string `json:"url"`
	FullSizeURL string `json:"full_size_url"`
}

type rawUser struct {
	ID         flexString `json:"id"`
	Login      string     `json:"login"`
	ProfileURL string     `json:"profile_url"`
	Business   flexBool   `json:"business"`
}

type searchTracking struct {
	Score          *float64 `json:"score,omitempty"`
	MatchedQueries []string `json:"matched_queries,omitempty"`
}

// money accepts a bare amount ("12.5" or 12.5) or an object of the form
// {"amount": "12.5", "currency_code": "EUR"}.
type money struct {
	Amount       flexString `json:"amount"`
	CurrencyCode string     `json:"currency_code"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		type plain money
		return json.Unmarshal(data, (*plain)(m))
	}
	return m.Amount.UnmarshalJSON(data)
}

func (m *money) value() (float64, bool) {
	if m == nil || m.Amount == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(string(m.Amount), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (m *money) currency() string {
	if m == nil {
		return ""
	}
	return m.CurrencyCode
}

// flexString accepts JSON strings, numbers and booleans. Objects with a
// "title" field (for example brand objects) decode to that title; other
// objects, arrays and null decode to "".
type flexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*s = ""
		return nil
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
	case '{':
		var v struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v.Title)
	case '[', 'n':
		*s = ""
	default:
		// numbers and booleans keep their literal form
		*s = flexString(data)
	}
	return nil
}

// flexInt accepts JSON numbers and numeric strings. Anything else is 0.
type flexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (n *flexInt) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		*n = 0
		return nil //nolint:nilerr // unparseable counters are treated as zero
	}
	*n = flexInt(f)
	return nil
}

// flexBool accepts JSON booleans, 0/1 numbers and "true"/"false" strings.
type flexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *flexBool) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	v, err := strconv.ParseBool(string(s))
	*b = flexBool(err == nil && v)
	return nil
}
