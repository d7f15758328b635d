package store

// SQL query constants organized by entity.
// All SQL lives here; PostgresStore methods reference these constants.

const itemColumns = `item_id, title, brand, size, condition,
	price, total_price, currency, service_fee,
	image_url, image_url_full, url,
	favourite_count, view_count, is_favourite, is_visible, is_promoted, content_source,
	seller_id, seller_username, seller_profile_url, seller_is_business,
	search_score, COALESCE(matched_queries, '{}'), page,
	first_seen_at, updated_at`

// Item queries.
const (
	queryUpsertItem = `
		INSERT INTO items (
			item_id, title, brand, size, condition,
			price, total_price, currency, service_fee,
			image_url, image_url_full, url,
			favourite_count, view_count, is_favourite, is_visible, is_promoted, content_source,
			seller_id, seller_username, seller_profile_url, seller_is_business,
			search_score, matched_queries, page,
			first_seen_at, updated_at
		) VALUES (
			@item_id, @title, @brand, @size, @condition,
			@price, @total_price, @currency, @service_fee,
			@image_url, @image_url_full, @url,
			@favourite_count, @view_count, @is_favourite, @is_visible, @is_promoted, @content_source,
			@seller_id, @seller_username, @seller_profile_url, @seller_is_business,
			@search_score, @matched_queries, @page,
			now(), now()
		)
		ON CONFLICT (item_id) DO UPDATE SET
			title              = EXCLUDED.title,
			brand              = EXCLUDED.brand,
			size               = EXCLUDED.size,
			condition          = EXCLUDED.condition,
			price              = EXCLUDED.price,
			total_price        = EXCLUDED.total_price,
			currency           = EXCLUDED.currency,
			service_fee        = EXCLUDED.service_fee,
			image_url          = EXCLUDED.image_url,
			image_url_full     = EXCLUDED.image_url_full,
			url                = EXCLUDED.url,
			favourite_count    = EXCLUDED.favourite_count,
			view_count         = EXCLUDED.view_count,
			is_favourite       = EXCLUDED.is_favourite,
			is_visible         = EXCLUDED.is_visible,
			is_promoted        = EXCLUDED.is_promoted,
			content_source     = EXCLUDED.content_source,
			seller_id          = EXCLUDED.seller_id,
			seller_username    = EXCLUDED.seller_username,
			seller_profile_url = EXCLUDED.seller_profile_url,
			seller_is_business = EXCLUDED.seller_is_business,
			search_score       = EXCLUDED.search_score,
			matched_queries    = EXCLUDED.matched_queries,
			page               = EXCLUDED.page,
			updated_at         = now()`

	queryGetItem = `
		SELECT ` + itemColumns + `
		FROM items
		WHERE item_id = $1`

	queryCountItems = `SELECT COUNT(*) FROM items`
)

// Run queries.
const (
	queryInsertRun = `
		INSERT INTO scrape_runs (query)
		VALUES ($1)
		RETURNING id`

	queryCompleteRun = `
		UPDATE scrape_runs SET
			completed_at = now(),
			saved        = $2,
			pages        = $3,
			stop_reason  = $4,
			error_text   = $5
		WHERE id = $1`

	queryListRuns = `
		SELECT id, query, started_at, completed_at, saved, pages,
			COALESCE(stop_reason, ''), COALESCE(error_text, '')
		FROM scrape_runs
		ORDER BY started_at DESC
		LIMIT $1`

	queryMarkStaleRunsFailed = `
		UPDATE scrape_runs SET
			stop_reason  = 'error',
			error_text   = 'abandoned',
			completed_at = now()
		WHERE completed_at IS NULL AND started_at < $1`

	queryDeleteOldRuns = `
		DELETE FROM scrape_runs WHERE started_at < now() - interval '30 days'`
)

// Scheduler lock queries.
const (
	queryAcquireSchedulerLock = `
		INSERT INTO scheduler_locks (job_name, lock_holder, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (job_name) DO UPDATE
			SET locked_at   = now(),
				lock_holder = EXCLUDED.lock_holder,
				expires_at  = EXCLUDED.expires_at
			WHERE scheduler_locks.expires_at < now()
		RETURNING job_name`

	queryReleaseSchedulerLock = `
		DELETE FROM scheduler_locks WHERE job_name = $1 AND lock_holder = $2`
)
