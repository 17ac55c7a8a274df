package database

const mediaColumns = `
	id, file_unique_id, file_id, content_hash, media_kind, mime_type, file_name,
	storage_bucket, storage_object, public_url, channel_id, message_id,
	media_group_id, caption, conversion_status, conversion_job_ref,
	error_message, created_at, updated_at`

const insertMediaRecordQuery = `
	INSERT INTO media_records (
		id, file_unique_id, file_id, content_hash, media_kind, mime_type,
		file_name, storage_bucket, storage_object, public_url, channel_id,
		message_id, media_group_id, caption, conversion_status,
		conversion_job_ref, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectMediaByFileUniqueIDQuery = `
	SELECT` + mediaColumns + `
	FROM media_records
	WHERE file_unique_id = ?`

const selectMediaByContentHashQuery = `
	SELECT` + mediaColumns + `
	FROM media_records
	WHERE content_hash = ?
	ORDER BY created_at ASC, id ASC
	LIMIT 1`

const selectMediaByIDQuery = `
	SELECT` + mediaColumns + `
	FROM media_records
	WHERE id = ?`

const selectAllMediaQuery = `
	SELECT` + mediaColumns + `
	FROM media_records
	ORDER BY created_at ASC`

const selectMediaMissingCaptionQuery = `
	SELECT` + mediaColumns + `
	FROM media_records
	WHERE (caption IS NULL OR caption = '') AND channel_id = ?
	ORDER BY created_at ASC
	LIMIT ?`

const updateMediaLocationQuery = `
	UPDATE media_records
	SET storage_bucket = ?, storage_object = ?, public_url = ?
	WHERE id = ?`

const updateConversionStatusQuery = `
	UPDATE media_records
	SET conversion_status = ?, conversion_job_ref = ?, error_message = ?
	WHERE id = ?`

const updateCaptionQuery = `
	UPDATE media_records
	SET caption = ?
	WHERE id = ?`

const updateErrorMessageQuery = `
	UPDATE media_records
	SET error_message = ?
	WHERE id = ?`

const deleteMediaRecordQuery = `
	DELETE FROM media_records
	WHERE id = ?`

const selectDuplicateHashesQuery = `
	SELECT content_hash
	FROM media_records
	WHERE content_hash IS NOT NULL AND content_hash != ''
	GROUP BY content_hash
	HAVING COUNT(*) > 1`

const selectMediaByHashAllQuery = `
	SELECT` + mediaColumns + `
	FROM media_records
	WHERE content_hash = ?`

const insertWebhookDeliveryQuery = `
	INSERT INTO webhook_deliveries (
		destination, fields_sent, status, http_status, response_body, item_count
	) VALUES (?, ?, ?, ?, ?, ?)`

const cleanupOldDeliveriesQuery = `
	DELETE FROM webhook_deliveries
	WHERE created_at < datetime('now', '-' || ? || ' days')`
