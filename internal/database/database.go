package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"

	"telemedia/internal/migrations"
	"telemedia/internal/models"
	"telemedia/internal/security"

	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateRecord is returned when an insert loses the uniqueness race on
// file_unique_id. Callers treat it as duplicate detection, not failure.
var ErrDuplicateRecord = fmt.Errorf("media record already exists")

type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	// Validate database path to prevent directory traversal
	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to read schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	encryptor, err := NewEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: encryptor}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// SaveMediaRecord inserts a new record. A uniqueness violation on
// file_unique_id returns ErrDuplicateRecord so concurrent handlers racing on
// the same asset serialize through the constraint rather than app locks.
func (d *Database) SaveMediaRecord(ctx context.Context, rec *models.MediaRecord) error {
	encryptedFileName, err := d.encryptor.EncryptIfEnabled(rec.FileName)
	if err != nil {
		return fmt.Errorf("failed to encrypt file name: %w", err)
	}

	var caption interface{}
	if rec.Caption != nil {
		encrypted, err := d.encryptor.EncryptIfEnabled(*rec.Caption)
		if err != nil {
			return fmt.Errorf("failed to encrypt caption: %w", err)
		}
		caption = encrypted
	}

	_, err = d.db.ExecContext(ctx, insertMediaRecordQuery,
		rec.ID,
		rec.FileUniqueID,
		rec.FileID,
		rec.ContentHash,
		string(rec.MediaKind),
		rec.MimeType,
		encryptedFileName,
		rec.StorageBucket,
		rec.StorageObject,
		rec.PublicURL,
		rec.ChannelID,
		rec.MessageID,
		rec.MediaGroupID,
		caption,
		string(rec.ConversionStatus),
		rec.ConversionJobRef,
		rec.ErrorMessage,
	)

	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("failed to save media record: %w", err)
	}

	return nil
}

// GetMediaRecordByFileUniqueID returns nil, nil when no record matches.
func (d *Database) GetMediaRecordByFileUniqueID(ctx context.Context, fileUniqueID string) (*models.MediaRecord, error) {
	return d.queryOne(ctx, selectMediaByFileUniqueIDQuery, fileUniqueID)
}

// GetMediaRecordByContentHash returns the oldest record carrying the hash,
// or nil, nil when none does.
func (d *Database) GetMediaRecordByContentHash(ctx context.Context, hash string) (*models.MediaRecord, error) {
	return d.queryOne(ctx, selectMediaByContentHashQuery, hash)
}

// GetMediaRecordByID returns nil, nil when no record matches.
func (d *Database) GetMediaRecordByID(ctx context.Context, id string) (*models.MediaRecord, error) {
	return d.queryOne(ctx, selectMediaByIDQuery, id)
}

// UpdateMediaLocation rewrites the location fields in one statement so a
// record never points at a half-moved object.
func (d *Database) UpdateMediaLocation(ctx context.Context, id, bucket, object, publicURL string) error {
	result, err := d.db.ExecContext(ctx, updateMediaLocationQuery, bucket, object, publicURL, id)
	if err != nil {
		return fmt.Errorf("failed to update media location: %w", err)
	}
	return requireRow(result, id)
}

func (d *Database) UpdateConversionStatus(ctx context.Context, id string, status models.ConversionStatus, jobRef, errMsg string) error {
	result, err := d.db.ExecContext(ctx, updateConversionStatusQuery, string(status), jobRef, errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to update conversion status: %w", err)
	}
	return requireRow(result, id)
}

func (d *Database) UpdateCaption(ctx context.Context, id, caption string) error {
	encrypted, err := d.encryptor.EncryptIfEnabled(caption)
	if err != nil {
		return fmt.Errorf("failed to encrypt caption: %w", err)
	}

	result, err := d.db.ExecContext(ctx, updateCaptionQuery, encrypted, id)
	if err != nil {
		return fmt.Errorf("failed to update caption: %w", err)
	}
	return requireRow(result, id)
}

func (d *Database) UpdateErrorMessage(ctx context.Context, id, msg string) error {
	result, err := d.db.ExecContext(ctx, updateErrorMessageQuery, msg, id)
	if err != nil {
		return fmt.Errorf("failed to update error message: %w", err)
	}
	return requireRow(result, id)
}

func (d *Database) DeleteMediaRecord(ctx context.Context, id string) error {
	_, err := d.db.ExecContext(ctx, deleteMediaRecordQuery, id)
	if err != nil {
		return fmt.Errorf("failed to delete media record: %w", err)
	}
	return nil
}

// ListMediaRecords returns all records ordered by creation time; the resync
// pass walks this to verify storage objects still exist.
func (d *Database) ListMediaRecords(ctx context.Context) ([]*models.MediaRecord, error) {
	return d.queryMany(ctx, selectAllMediaQuery)
}

// ListMediaMissingCaption returns up to limit records for one channel that
// still lack a caption.
func (d *Database) ListMediaMissingCaption(ctx context.Context, channelID int64, limit int) ([]*models.MediaRecord, error) {
	return d.queryMany(ctx, selectMediaMissingCaptionQuery, channelID, limit)
}

// ListDuplicateGroups returns groups of records sharing a content hash,
// sorted inside each group by the keep policy: the first element is the
// canonical record to retain.
func (d *Database) ListDuplicateGroups(ctx context.Context, keep models.DedupKeepPolicy) ([][]*models.MediaRecord, error) {
	rows, err := d.db.QueryContext(ctx, selectDuplicateHashesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate hash: %w", err)
		}
		hashes = append(hashes, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate duplicate hashes: %w", err)
	}

	var groups [][]*models.MediaRecord
	for _, h := range hashes {
		group, err := d.queryMany(ctx, selectMediaByHashAllQuery, h)
		if err != nil {
			return nil, err
		}
		sortGroup(group, keep)
		groups = append(groups, group)
	}

	return groups, nil
}

// sortGroup orders a duplicate group deterministically so the canonical
// record is always group[0]: newest-first or oldest-first by created_at with
// id as the tiebreaker.
func sortGroup(group []*models.MediaRecord, keep models.DedupKeepPolicy) {
	sort.SliceStable(group, func(i, j int) bool {
		a, b := group[i], group[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if keep == models.DedupKeepOldest {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if keep == models.DedupKeepOldest {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}

// SaveWebhookDelivery appends one delivery log row. Rows are never updated.
func (d *Database) SaveWebhookDelivery(ctx context.Context, rec *models.WebhookDeliveryRecord) error {
	_, err := d.db.ExecContext(ctx, insertWebhookDeliveryQuery,
		rec.Destination,
		rec.FieldsSent,
		rec.Status,
		rec.HTTPStatus,
		rec.ResponseBody,
		rec.ItemCount,
	)
	if err != nil {
		return fmt.Errorf("failed to save webhook delivery: %w", err)
	}
	return nil
}

// CleanupOldDeliveries prunes delivery log rows older than the retention
// window and returns how many were removed.
func (d *Database) CleanupOldDeliveries(ctx context.Context, retentionDays int) (int64, error) {
	result, err := d.db.ExecContext(ctx, cleanupOldDeliveriesQuery, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old deliveries: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return removed, nil
}

func (d *Database) queryOne(ctx context.Context, query string, args ...interface{}) (*models.MediaRecord, error) {
	row := d.db.QueryRowContext(ctx, query, args...)
	rec, err := d.scanMediaRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media record: %w", err)
	}
	return rec, nil
}

func (d *Database) queryMany(ctx context.Context, query string, args ...interface{}) ([]*models.MediaRecord, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query media records: %w", err)
	}
	defer rows.Close()

	var records []*models.MediaRecord
	for rows.Next() {
		rec, err := d.scanMediaRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate media records: %w", err)
	}

	return records, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (d *Database) scanMediaRecord(s scanner) (*models.MediaRecord, error) {
	rec := &models.MediaRecord{}
	var kind, status, encryptedFileName string
	var encryptedCaption sql.NullString

	err := s.Scan(
		&rec.ID,
		&rec.FileUniqueID,
		&rec.FileID,
		&rec.ContentHash,
		&kind,
		&rec.MimeType,
		&encryptedFileName,
		&rec.StorageBucket,
		&rec.StorageObject,
		&rec.PublicURL,
		&rec.ChannelID,
		&rec.MessageID,
		&rec.MediaGroupID,
		&encryptedCaption,
		&status,
		&rec.ConversionJobRef,
		&rec.ErrorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.MediaKind = models.MediaKind(kind)
	rec.ConversionStatus = models.ConversionStatus(status)

	rec.FileName, err = d.encryptor.DecryptIfEnabled(encryptedFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt file name: %w", err)
	}

	if encryptedCaption.Valid {
		caption, err := d.encryptor.DecryptIfEnabled(encryptedCaption.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt caption: %w", err)
		}
		rec.Caption = &caption
	}

	return rec, nil
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("no media record with ID: %s", id)
	}
	return nil
}
