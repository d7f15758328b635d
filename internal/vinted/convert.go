package vinted

import (
	"strconv"
	"strings"

	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

const (
	sizeNotSpecified = "Not specified"
	defaultCurrency  = "USD"
	lineSeparator    = "·"
)

// ToItems converts raw catalog records into canonical items. Records without
// an id are dropped.
func ToItems(raws []RawItem, baseURL string) []domain.Item {
	items := make([]domain.Item, 0, len(raws))
	for i := range raws {
		if item, ok := ToItem(&raws[i], baseURL); ok {
			items = append(items, item)
		}
	}
	return items
}

// ToItem converts one raw record. It reports false when the record carries
// no identifiable id.
func ToItem(raw *RawItem, baseURL string) (domain.Item, bool) {
	id := strings.TrimSpace(string(raw.ID))
	if id == "" || id == "0" {
		return domain.Item{}, false
	}

	item := domain.Item{
		ID:             id,
		Title:          strings.TrimSpace(raw.Title),
		Brand:          firstNonEmpty(raw.BrandTitle, string(raw.Brand)),
		URL:            itemURL(raw, baseURL, id),
		FavouriteCount: int(raw.FavouriteCount),
		ViewCount:      int(raw.ViewCount),
		IsFavourite:    bool(raw.IsFavourite),
		IsVisible:      raw.IsVisible == nil || bool(*raw.IsVisible),
		IsPromoted:     bool(raw.Promoted),
		ContentSource:  raw.ContentSource,
	}

	item.Size, item.Condition = sizeAndCondition(raw)
	applyPricing(&item, raw)
	applyImages(&item, raw)

	// Seller
	if raw.User != nil {
		item.SellerID = string(raw.User.ID)
		item.SellerUsername = raw.User.Login
		item.SellerProfileURL = raw.User.ProfileURL
		item.SellerIsBusiness = bool(raw.User.Business)
	}

	// Search ranking
	if st := raw.SearchTrackingParams; st != nil {
		item.SearchScore = st.Score
		item.MatchedQueries = st.MatchedQueries
	}

	return item, true
}

// sizeAndCondition prefers the direct fields and falls back to the composite
// "size · condition" line shown under each catalog tile.
func sizeAndCondition(raw *RawItem) (size, condition string) {
	line := raw.Subtitle
	if raw.ItemBox != nil && raw.ItemBox.SecondLine != "" {
		line = raw.ItemBox.SecondLine
	}
	segments := splitLine(line)

	size = firstNonEmpty(raw.SizeTitle, string(raw.Size))
	if size == "" && len(segments) > 0 {
		size = segments[0]
	}
	if size == "" {
		size = sizeNotSpecified
	}

	condition = strings.TrimSpace(string(raw.Status))
	if condition == "" && len(segments) > 1 {
		condition = strings.Join(segments[1:], " "+lineSeparator+" ")
	}

	return size, condition
}

func splitLine(line string) []string {
	var out []string
	for part := range strings.SplitSeq(line, lineSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// applyPricing builds one price view from whichever price fields are set.
func applyPricing(item *domain.Item, raw *RawItem) {
	price, ok := raw.Price.value()
	if !ok {
		if f, err := strconv.ParseFloat(string(raw.PriceNumeric), 64); err == nil {
			price = f
		}
	}
	item.Price = price

	if fee, ok := raw.ServiceFee.value(); ok {
		item.ServiceFee = fee
	}

	if total, ok := raw.TotalItemPrice.value(); ok {
		item.TotalPrice = total
	} else {
		item.TotalPrice = item.Price + item.ServiceFee
	}

	item.Currency = firstNonEmpty(
		raw.Price.currency(),
		raw.TotalItemPrice.currency(),
		raw.ServiceFee.currency(),
		raw.Currency,
		defaultCurrency,
	)
}

func applyImages(item *domain.Item, raw *RawItem) {
	var photo rawPhoto
	switch {
	case raw.Photo != nil && raw.Photo.URL != "":
		photo = *raw.Photo
	case len(raw.Photos) > 0:
		photo = raw.Photos[0]
	}
	item.ImageURL = photo.URL
	item.ImageURLFull = firstNonEmpty(photo.FullSizeURL, photo.URL)
}

func itemURL(raw *RawItem, baseURL, id string) string {
	u := firstNonEmpty(raw.URL, raw.Path)
	switch {
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
		return u
	case strings.HasPrefix(u, "/"):
		return baseURL + u
	default:
		return baseURL + "/items/" + id
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
