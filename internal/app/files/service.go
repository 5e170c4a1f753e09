package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jawssame7/taskstack/internal/contracts"
	"github.com/jawssame7/taskstack/internal/storage"
)

var ErrFileNotFound = errors.New("file not found")

const (
	uploadURLTTL   = 5 * time.Minute
	downloadURLTTL = time.Hour
)

// RecordStore is the slice of the record-store collaborator the file service
// consumes. File metadata shares the table with task records, discriminated
// by the type tag.
type RecordStore interface {
	Put(ctx context.Context, id, recordType string, doc []byte) error
	Get(ctx context.Context, id string) (string, []byte, error)
	Delete(ctx context.Context, id, recordType string) (bool, error)
}

// ObjectStore is the slice of the object-store collaborator the file service
// consumes.
type ObjectStore interface {
	PresignUpload(ctx context.Context, key string, expiry time.Duration) (string, error)
	PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
	ObjectURL(key string) string
}

// UploadGrant is what a caller needs to perform the upload it declared.
type UploadGrant struct {
	FileID    string `json:"fileId"`
	UploadURL string `json:"uploadUrl"`
}

type Service struct {
	Records RecordStore
	Objects ObjectStore
	Logger  zerolog.Logger

	Now   func() time.Time
	NewID func() string
}

func NewService(records RecordStore, objects ObjectStore, logger zerolog.Logger) *Service {
	return &Service{
		Records: records,
		Objects: objects,
		Logger:  logger,
		Now:     func() time.Time { return time.Now().UTC() },
		NewID:   uuid.NewString,
	}
}

func objectKey(fileID, filename string) string {
	return fileID + "/" + filename
}

// GenerateUploadURL mints a file id and returns a 5-minute write-capable URL
// for it. Whether the caller ever performs the upload is not verified.
func (s *Service) GenerateUploadURL(ctx context.Context, filename string) (UploadGrant, error) {
	fileID := s.NewID()
	url, err := s.Objects.PresignUpload(ctx, objectKey(fileID, filename), uploadURLTTL)
	if err != nil {
		return UploadGrant{}, fmt.Errorf("generate upload url: %w", err)
	}
	return UploadGrant{FileID: fileID, UploadURL: url}, nil
}

// SaveMetadata persists the metadata record optimistically, before the
// object itself necessarily exists. The stored retrieval URL follows the
// resolved stage (emulator address locally, public address remotely).
func (s *Service) SaveMetadata(ctx context.Context, fileID, filename, contentType string, size int64) (contracts.FileMetadata, error) {
	meta := contracts.FileMetadata{
		ID:          fileID,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		UploadedAt:  s.Now(),
		URL:         s.Objects.ObjectURL(objectKey(fileID, filename)),
	}
	doc, err := json.Marshal(meta)
	if err != nil {
		return contracts.FileMetadata{}, err
	}
	if err := s.Records.Put(ctx, fileID, contracts.RecordTypeFile, doc); err != nil {
		return contracts.FileMetadata{}, fmt.Errorf("save file metadata: %w", err)
	}
	return meta, nil
}

// GetMetadata returns the metadata record, or ErrFileNotFound both when the
// id is absent and when the record is not type-tagged as a file.
func (s *Service) GetMetadata(ctx context.Context, fileID string) (contracts.FileMetadata, error) {
	recordType, doc, err := s.Records.Get(ctx, fileID)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return contracts.FileMetadata{}, ErrFileNotFound
		}
		return contracts.FileMetadata{}, fmt.Errorf("get file metadata: %w", err)
	}
	if recordType != contracts.RecordTypeFile {
		return contracts.FileMetadata{}, ErrFileNotFound
	}
	var meta contracts.FileMetadata
	if err := json.Unmarshal(doc, &meta); err != nil {
		return contracts.FileMetadata{}, fmt.Errorf("decode file metadata %s: %w", fileID, err)
	}
	return meta, nil
}

// DownloadURL returns a 1-hour read URL, computed on demand and never
// persisted.
func (s *Service) DownloadURL(ctx context.Context, fileID, filename string) (string, error) {
	url, err := s.Objects.PresignDownload(ctx, objectKey(fileID, filename), downloadURLTTL)
	if err != nil {
		return "", fmt.Errorf("download url: %w", err)
	}
	return url, nil
}

// Delete removes the object, then the metadata record. Any failure yields
// false; the cause is logged here rather than surfaced.
func (s *Service) Delete(ctx context.Context, fileID, filename string) bool {
	if err := s.Objects.Remove(ctx, objectKey(fileID, filename)); err != nil {
		s.Logger.Error().Err(err).Str("file_id", fileID).Msg("failed to delete object")
		return false
	}
	deleted, err := s.Records.Delete(ctx, fileID, contracts.RecordTypeFile)
	if err != nil {
		s.Logger.Error().Err(err).Str("file_id", fileID).Msg("failed to delete file metadata")
		return false
	}
	return deleted
}
