package service

import (
	"context"
	"fmt"
	"sync"

	"telemedia/internal/database"
	"telemedia/internal/models"
	"telemedia/pkg/storage"
	"telemedia/pkg/telegram"
	"telemedia/pkg/transcode"

	"github.com/stretchr/testify/mock"
)

// Mock media store
type mockStore struct {
	mock.Mock
	mu            sync.Mutex
	byUniqueID    map[string]*models.MediaRecord
	byHash        map[string]*models.MediaRecord
	saved         []*models.MediaRecord
	saveErr       error
	raceWinner    *models.MediaRecord
	lookupErr     error
	captions      map[string]string
	captionErr    error
	locations     map[string]string
	statusUpdates []string
	errorMessages map[string]string
	missing       []*models.MediaRecord
	deleted       []string
	deleteErr     error
	groups        [][]*models.MediaRecord
}

func newMockStore() *mockStore {
	return &mockStore{
		byUniqueID:    make(map[string]*models.MediaRecord),
		byHash:        make(map[string]*models.MediaRecord),
		captions:      make(map[string]string),
		locations:     make(map[string]string),
		errorMessages: make(map[string]string),
	}
}

func (m *mockStore) GetMediaRecordByFileUniqueID(ctx context.Context, fileUniqueID string) (*models.MediaRecord, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byUniqueID[fileUniqueID], nil
}

func (m *mockStore) GetMediaRecordByContentHash(ctx context.Context, hash string) (*models.MediaRecord, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byHash[hash], nil
}

func (m *mockStore) SaveMediaRecord(ctx context.Context, rec *models.MediaRecord) error {
	if m.raceWinner != nil {
		m.mu.Lock()
		m.byUniqueID[m.raceWinner.FileUniqueID] = m.raceWinner
		m.mu.Unlock()
		return database.ErrDuplicateRecord
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, rec)
	m.byUniqueID[rec.FileUniqueID] = rec
	if rec.ContentHash != "" {
		m.byHash[rec.ContentHash] = rec
	}
	return nil
}

func (m *mockStore) UpdateMediaLocation(ctx context.Context, id, bucket, object, publicURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[id] = fmt.Sprintf("%s/%s", bucket, object)
	return nil
}

func (m *mockStore) UpdateConversionStatus(ctx context.Context, id string, status models.ConversionStatus, jobRef, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusUpdates = append(m.statusUpdates, string(status))
	return nil
}

func (m *mockStore) UpdateCaption(ctx context.Context, id, caption string) error {
	if m.captionErr != nil {
		return m.captionErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captions[id] = caption
	return nil
}

func (m *mockStore) UpdateErrorMessage(ctx context.Context, id, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorMessages[id] = msg
	return nil
}

func (m *mockStore) ListMediaRecords(ctx context.Context) ([]*models.MediaRecord, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.MediaRecord
	for _, rec := range m.byUniqueID {
		out = append(out, rec)
	}
	return out, nil
}

func (m *mockStore) ListMediaMissingCaption(ctx context.Context, channelID int64, limit int) ([]*models.MediaRecord, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.missing, nil
}

func (m *mockStore) ListDuplicateGroups(ctx context.Context, keep models.DedupKeepPolicy) ([][]*models.MediaRecord, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.groups, nil
}

func (m *mockStore) DeleteMediaRecord(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

// Mock platform client
type mockTelegram struct {
	getFileResp    *telegram.File
	getFileErr     error
	downloadData   []byte
	downloadErr    error
	downloadCalls  int
	getMessageResp *models.Message
	getMessageErr  error
}

func (m *mockTelegram) GetFile(ctx context.Context, fileID string) (*telegram.File, error) {
	if m.getFileErr != nil {
		return nil, m.getFileErr
	}
	if m.getFileResp != nil {
		return m.getFileResp, nil
	}
	return &telegram.File{FileID: fileID, FilePath: "documents/" + fileID}, nil
}

func (m *mockTelegram) DownloadFile(ctx context.Context, filePath string) ([]byte, error) {
	m.downloadCalls++
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	return m.downloadData, nil
}

func (m *mockTelegram) GetMessage(ctx context.Context, chatID int64, messageID int64) (*models.Message, error) {
	if m.getMessageErr != nil {
		return nil, m.getMessageErr
	}
	return m.getMessageResp, nil
}

// Mock storage router
type mockRouter struct {
	mu          sync.Mutex
	buckets     storage.Buckets
	placed      []string
	placeErr    error
	removed     []string
	removeErr   error
	moved       []string
	moveErr     error
	exists      map[string]bool
	existsErr   error
}

func newMockRouter() *mockRouter {
	return &mockRouter{
		buckets: storage.Buckets{Video: "video", Picture: "pictures", Generic: "media"},
		exists:  make(map[string]bool),
	}
}

func (m *mockRouter) BucketFor(kind models.MediaKind) string {
	switch kind {
	case models.MediaKindVideo:
		return m.buckets.Video
	case models.MediaKindPhoto:
		return m.buckets.Picture
	default:
		return m.buckets.Generic
	}
}

func (m *mockRouter) Place(ctx context.Context, kind models.MediaKind, name string, data []byte, contentType string) (*storage.Location, error) {
	if m.placeErr != nil {
		return nil, m.placeErr
	}
	bucket := m.BucketFor(kind)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.placed = append(m.placed, bucket+"/"+name)
	return &storage.Location{
		Bucket:    bucket,
		Object:    name,
		PublicURL: "http://store/" + bucket + "/" + name,
	}, nil
}

func (m *mockRouter) Remove(ctx context.Context, bucket, name string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, bucket+"/"+name)
	return nil
}

func (m *mockRouter) Move(ctx context.Context, kind models.MediaKind, fromBucket, fromName string) (*storage.Location, error) {
	if m.moveErr != nil {
		return nil, m.moveErr
	}
	bucket := m.BucketFor(kind)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moved = append(m.moved, fromBucket+"/"+fromName+"->"+bucket)
	return &storage.Location{
		Bucket:    bucket,
		Object:    fromName,
		PublicURL: "http://store/" + bucket + "/" + fromName,
	}, nil
}

func (m *mockRouter) Exists(ctx context.Context, bucket, name string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.exists[bucket+"/"+name], nil
}

// Mock video converter
type mockConverter struct {
	outcome *transcode.Outcome
	calls   int
}

func (m *mockConverter) Convert(ctx context.Context, raw []byte, mimeType string) *transcode.Outcome {
	m.calls++
	if m.outcome != nil {
		return m.outcome
	}
	return &transcode.Outcome{Bytes: raw, MimeType: mimeType, Status: models.ConversionNone}
}

// Mock envelope forwarder
type mockForwarder struct {
	mu        sync.Mutex
	envelopes []*models.Envelope
	outcomes  []models.DeliveryOutcome
}

func (m *mockForwarder) Forward(ctx context.Context, envelope *models.Envelope) []models.DeliveryOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.envelopes = append(m.envelopes, envelope)
	return m.outcomes
}

// Mock delivery log
type mockDeliveryLog struct {
	mu      sync.Mutex
	records []*models.WebhookDeliveryRecord
	saveErr error
}

func (m *mockDeliveryLog) SaveWebhookDelivery(ctx context.Context, rec *models.WebhookDeliveryRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}
