package store

import (
	"fmt"
	"strings"
)

const (
	defaultLimit = 50
	maxLimit     = 500

	orderByPrice      = "price"
	orderByFavourites = "favourites"
	orderByFirstSeen  = "first_seen_at"
)

// validOrderBy maps allowed OrderBy values to their SQL column expressions.
var validOrderBy = map[string]string{
	orderByPrice:      "price ASC",
	orderByFavourites: "favourite_count DESC",
	orderByFirstSeen:  "first_seen_at DESC",
}

const defaultOrderBy = "first_seen_at DESC"

const baseItemsSelect = `SELECT ` + itemColumns + `
FROM items`

const countItemsSelect = "SELECT COUNT(*) FROM items"

// ToSQL builds the WHERE clause, ORDER BY, LIMIT, and OFFSET for an item query.
// It returns two SQL strings (one for the data query, one for the count query)
// and the positional parameters.
func (q *ItemQuery) ToSQL() (dataSQL, countSQL string, args []any) {
	var conditions []string
	paramIdx := 1

	add := func(expr string, v any) {
		conditions = append(conditions, fmt.Sprintf(expr, paramIdx))
		args = append(args, v)
		paramIdx++
	}

	if q.Search != nil {
		add("title ILIKE '%%' || $%d || '%%'", *q.Search)
	}
	if q.Brand != nil {
		add("brand = $%d", *q.Brand)
	}
	if q.Currency != nil {
		add("currency = $%d", *q.Currency)
	}
	if q.SellerID != nil {
		add("seller_id = $%d", *q.SellerID)
	}
	if q.MinPrice != nil {
		add("price >= $%d", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		add("price <= $%d", *q.MaxPrice)
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	// Order by
	orderClause := defaultOrderBy
	if q.OrderBy != "" {
		if col, ok := validOrderBy[q.OrderBy]; ok {
			orderClause = col
		}
	}

	// Limit
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := max(q.Offset, 0)

	dataSQL = fmt.Sprintf(
		"%s%s ORDER BY %s, item_id LIMIT %d OFFSET %d",
		baseItemsSelect, whereClause, orderClause, limit, offset,
	)

	countSQL = countItemsSelect + whereClause

	return dataSQL, countSQL, args
}
