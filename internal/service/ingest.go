package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"telemedia/internal/constants"
	"telemedia/internal/database"
	"telemedia/internal/errors"
	"telemedia/internal/models"
	"telemedia/internal/retry"
	"telemedia/internal/security"
	"telemedia/pkg/storage"
	"telemedia/pkg/telegram"
	"telemedia/pkg/transcode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IngestState names the stages an update moves through. States advance
// monotonically; a result carries the last state reached.
type IngestState string

const (
	StateReceived         IngestState = "received"
	StateClassified       IngestState = "classified"
	StateIdentityResolved IngestState = "identity-resolved"
	StateStored           IngestState = "stored"
	StateSkippedDuplicate IngestState = "skipped-duplicate"
	StateTranscoding      IngestState = "transcoding"
	StateTranscoded       IngestState = "transcoded"
	StateForwarded        IngestState = "forwarded"
	StateDone             IngestState = "done"
)

// MediaStore is the slice of the database the ingest pipeline writes to.
type MediaStore interface {
	IdentityStore
	SaveMediaRecord(ctx context.Context, rec *models.MediaRecord) error
	UpdateMediaLocation(ctx context.Context, id, bucket, object, publicURL string) error
	UpdateConversionStatus(ctx context.Context, id string, status models.ConversionStatus, jobRef, errMsg string) error
	UpdateCaption(ctx context.Context, id, caption string) error
}

// MediaDownloader resolves and fetches asset bytes from the platform.
type MediaDownloader interface {
	GetFile(ctx context.Context, fileID string) (*telegram.File, error)
	DownloadFile(ctx context.Context, filePath string) ([]byte, error)
}

// VideoConverter turns video bytes into the canonical playable format.
type VideoConverter interface {
	Convert(ctx context.Context, raw []byte, mimeType string) *transcode.Outcome
}

// EnvelopeForwarder fans envelopes out to downstream destinations.
type EnvelopeForwarder interface {
	Forward(ctx context.Context, envelope *models.Envelope) []models.DeliveryOutcome
}

// IngestResult reports where an update ended up. Record is set once a
// canonical record is known, including the duplicate case.
type IngestResult struct {
	State      IngestState
	Resolution models.Resolution
	Record     *models.MediaRecord
	Deliveries []models.DeliveryOutcome
}

// IngestService runs the per-update pipeline: classify, resolve identity,
// store bytes, transcode video, forward the envelope.
type IngestService struct {
	store     MediaStore
	telegram  MediaDownloader
	router    storage.Router
	converter VideoConverter
	forwarder EnvelopeForwarder
	resolver  *Resolver
	backoff   *retry.Backoff
	logger    *logrus.Logger
}

func NewIngestService(store MediaStore, tg MediaDownloader, router storage.Router, converter VideoConverter, forwarder EnvelopeForwarder, backoff *retry.Backoff, logger *logrus.Logger) *IngestService {
	return &IngestService{
		store:     store,
		telegram:  tg,
		router:    router,
		converter: converter,
		forwarder: forwarder,
		resolver:  NewResolver(store),
		backoff:   backoff,
		logger:    logger,
	}
}

// ProcessUpdate drives one raw update through the pipeline. Returned errors
// carry a retryable flag; callers decide whether the platform should redeliver.
func (s *IngestService) ProcessUpdate(ctx context.Context, raw json.RawMessage) (*IngestResult, error) {
	result := &IngestResult{State: StateReceived}

	var update models.Update
	if err := json.Unmarshal(raw, &update); err != nil {
		return result, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to parse update")
	}

	msg, edited := update.Content()
	if msg == nil {
		return result, errors.New(errors.ErrCodeInvalidInput, "update carries no message")
	}

	kind, desc := msg.Classify()
	result.State = StateClassified

	LogMediaProcessing(ctx, s.logger, string(kind), msg.Chat.ID, descFileID(desc))

	if desc == nil {
		// Text and unknown updates are forwarded but never persisted.
		result.Deliveries = s.forwarder.Forward(ctx, s.buildEnvelope(raw, msg, nil, models.ResolutionNew))
		result.State = StateDone
		return result, nil
	}

	// Pre-download identity check: a resend of a known file unique ID skips
	// the download entirely.
	resolved, err := s.resolver.Resolve(ctx, desc.FileUniqueID, "")
	if err != nil {
		return result, errors.Wrap(err, errors.ErrCodeDatabaseQuery, "identity resolution failed")
	}
	result.State = StateIdentityResolved
	if resolved.Existing != nil {
		return s.finishDuplicate(ctx, raw, msg, resolved, result, edited)
	}

	data, err := s.download(ctx, desc.FileID)
	if err != nil {
		return result, err
	}

	hash := HashBytes(data)
	resolved, err = s.resolver.Resolve(ctx, desc.FileUniqueID, hash)
	if err != nil {
		return result, errors.Wrap(err, errors.ErrCodeDatabaseQuery, "identity resolution failed")
	}
	if resolved.Existing != nil {
		return s.finishDuplicate(ctx, raw, msg, resolved, result, edited)
	}

	rec, err := s.storeNew(ctx, msg, desc, data, hash)
	if err != nil {
		if dup, ok := err.(*duplicateInsert); ok {
			resolved = &ResolvedIdentity{Resolution: models.ResolutionDuplicateByID, Existing: dup.existing}
			return s.finishDuplicate(ctx, raw, msg, resolved, result, edited)
		}
		return result, err
	}
	result.State = StateStored
	result.Record = rec
	result.Resolution = models.ResolutionNew

	if kind == models.MediaKindVideo {
		result.State = StateTranscoding
		if err := s.transcodeVideo(ctx, rec, data); err != nil {
			return result, err
		}
		result.State = StateTranscoded
	}

	result.Deliveries = s.forwarder.Forward(ctx, s.buildEnvelope(raw, msg, rec, models.ResolutionNew))
	result.State = StateDone
	return result, nil
}

// finishDuplicate merges captions onto the canonical record and forwards the
// envelope flagged as a duplicate. No bytes are stored.
func (s *IngestService) finishDuplicate(ctx context.Context, raw json.RawMessage, msg *models.Message, resolved *ResolvedIdentity, result *IngestResult, edited bool) (*IngestResult, error) {
	existing := resolved.Existing
	result.Resolution = resolved.Resolution
	result.Record = existing

	if msg.Caption != "" && (edited || !existing.HasCaption()) {
		if err := s.store.UpdateCaption(ctx, existing.ID, msg.Caption); err != nil {
			errors.LogWarn(s.logger, err, "ingest", "Failed to merge caption onto existing record")
		} else {
			caption := msg.Caption
			existing.Caption = &caption
		}
	}

	result.Deliveries = s.forwarder.Forward(ctx, s.buildEnvelope(raw, msg, existing, resolved.Resolution))
	result.State = StateSkippedDuplicate
	return result, nil
}

// download fetches the asset bytes with bounded retries on transient errors.
func (s *IngestService) download(ctx context.Context, fileID string) ([]byte, error) {
	var data []byte
	op := func() error {
		file, err := s.telegram.GetFile(ctx, fileID)
		if err != nil {
			return err
		}
		data, err = s.telegram.DownloadFile(ctx, file.FilePath)
		return err
	}

	if err := s.backoff.RetryWithPredicate(ctx, op, errors.IsRetryable); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMediaDownload, "failed to download media")
	}
	return data, nil
}

// storeNew uploads the bytes first and inserts the record second; losing the
// insert race removes the just-uploaded object and reports the winner.
func (s *IngestService) storeNew(ctx context.Context, msg *models.Message, desc *models.MediaDescriptor, data []byte, hash string) (*models.MediaRecord, error) {
	location, err := s.router.Place(ctx, desc.Kind, objectName(desc), data, desc.MimeType)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageAPI, "failed to store media bytes")
	}

	rec := &models.MediaRecord{
		ID:               uuid.NewString(),
		FileUniqueID:     desc.FileUniqueID,
		FileID:           desc.FileID,
		ContentHash:      hash,
		MediaKind:        desc.Kind,
		MimeType:         desc.MimeType,
		FileName:         desc.FileName,
		StorageBucket:    location.Bucket,
		StorageObject:    location.Object,
		PublicURL:        location.PublicURL,
		ChannelID:        msg.Chat.ID,
		MessageID:        msg.MessageID,
		MediaGroupID:     msg.MediaGroupID,
		ConversionStatus: models.ConversionNone,
	}
	if msg.Caption != "" {
		caption := msg.Caption
		rec.Caption = &caption
	}

	err = s.store.SaveMediaRecord(ctx, rec)
	if err == nil {
		return rec, nil
	}

	if err == database.ErrDuplicateRecord {
		// A concurrent handler won the insert race. Drop our copy of the
		// bytes and defer to the winner's record.
		if rmErr := s.router.Remove(ctx, location.Bucket, location.Object); rmErr != nil {
			errors.LogWarn(s.logger, rmErr, "ingest", "Failed to remove object after losing insert race")
		}
		winner, getErr := s.store.GetMediaRecordByFileUniqueID(ctx, desc.FileUniqueID)
		if getErr != nil || winner == nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseConflict, "lost insert race but winner not found")
		}
		return nil, &duplicateInsert{existing: winner}
	}

	return nil, errors.Wrap(err, errors.ErrCodeDatabaseQuery, "failed to save media record")
}

// transcodeVideo converts the stored video to the canonical format. The
// original object stays in place until the converted bytes are stored; a
// conversion failure leaves the original as the record's location. Already
// canonical input stays at status none; a record only ever moves
// none -> processing -> success or none -> processing -> error.
func (s *IngestService) transcodeVideo(ctx context.Context, rec *models.MediaRecord, data []byte) error {
	if rec.MimeType == constants.CanonicalVideoMime {
		return nil
	}

	if err := s.store.UpdateConversionStatus(ctx, rec.ID, models.ConversionProcessing, "", ""); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseQuery, "failed to mark conversion processing")
	}
	rec.ConversionStatus = models.ConversionProcessing

	outcome := s.converter.Convert(ctx, data, rec.MimeType)

	switch outcome.Status {
	case models.ConversionSuccess:
		name := canonicalVideoName(rec.StorageObject)
		location, err := s.router.Place(ctx, rec.MediaKind, name, outcome.Bytes, outcome.MimeType)
		if err != nil {
			if stErr := s.store.UpdateConversionStatus(ctx, rec.ID, models.ConversionError, outcome.JobRef, err.Error()); stErr != nil {
				errors.LogWarn(s.logger, stErr, "ingest", "Failed to record conversion storage error")
			}
			rec.ConversionStatus = models.ConversionError
			return errors.Wrap(err, errors.ErrCodeStorageAPI, "failed to store converted video")
		}

		oldBucket, oldObject := rec.StorageBucket, rec.StorageObject
		if err := s.store.UpdateMediaLocation(ctx, rec.ID, location.Bucket, location.Object, location.PublicURL); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseQuery, "failed to update media location")
		}
		rec.StorageBucket = location.Bucket
		rec.StorageObject = location.Object
		rec.PublicURL = location.PublicURL
		rec.MimeType = outcome.MimeType

		if err := s.router.Remove(ctx, oldBucket, oldObject); err != nil {
			errors.LogWarn(s.logger, err, "ingest", "Failed to remove pre-conversion object")
		}

		if err := s.store.UpdateConversionStatus(ctx, rec.ID, models.ConversionSuccess, outcome.JobRef, ""); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseQuery, "failed to mark conversion success")
		}
		rec.ConversionStatus = models.ConversionSuccess
		rec.ConversionJobRef = outcome.JobRef
		return nil

	default:
		if err := s.store.UpdateConversionStatus(ctx, rec.ID, models.ConversionError, outcome.JobRef, outcome.ErrorMessage); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseQuery, "failed to mark conversion error")
		}
		rec.ConversionStatus = models.ConversionError
		rec.ErrorMessage = outcome.ErrorMessage
		return nil
	}
}

func (s *IngestService) buildEnvelope(raw json.RawMessage, msg *models.Message, rec *models.MediaRecord, resolution models.Resolution) *models.Envelope {
	envelope := &models.Envelope{
		Update:    raw,
		Message:   msg,
		Timestamp: time.Now().Unix(),
	}
	if rec != nil {
		envelope.Media = &models.EnvelopeMedia{
			RecordID:         rec.ID,
			FileUniqueID:     rec.FileUniqueID,
			MediaKind:        rec.MediaKind,
			MimeType:         rec.MimeType,
			PublicURL:        rec.PublicURL,
			ConversionStatus: rec.ConversionStatus,
			Duplicate:        resolution.IsDuplicate(),
		}
	}
	return envelope
}

// duplicateInsert signals a lost insert race with the winning record attached.
type duplicateInsert struct {
	existing *models.MediaRecord
}

func (d *duplicateInsert) Error() string {
	return "media record already exists"
}

// objectName derives a safe storage object name from the descriptor. The
// platform file name is used when it passes validation, otherwise the file
// unique ID plus a mime-derived extension.
func objectName(desc *models.MediaDescriptor) string {
	if desc.FileName != "" && security.ValidateObjectName(desc.FileName) == nil {
		return desc.FileName
	}
	return fmt.Sprintf("%s.%s", desc.FileUniqueID, extensionForMime(desc.MimeType))
}

// canonicalVideoName swaps the extension for the canonical one.
func canonicalVideoName(object string) string {
	ext := path.Ext(object)
	return strings.TrimSuffix(object, ext) + "." + constants.CanonicalVideoExt
}

func extensionForMime(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case constants.CanonicalVideoMime:
		return constants.CanonicalVideoExt
	case "video/quicktime":
		return "mov"
	case "video/webm":
		return "webm"
	case "audio/mpeg":
		return "mp3"
	case "audio/ogg":
		return "ogg"
	case "application/pdf":
		return "pdf"
	default:
		return "bin"
	}
}

func descFileID(desc *models.MediaDescriptor) string {
	if desc == nil {
		return ""
	}
	return desc.FileID
}
