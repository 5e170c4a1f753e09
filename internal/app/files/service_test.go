package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jawssame7/taskstack/internal/contracts"
	"github.com/jawssame7/taskstack/internal/storage"
)

type fakeRecord struct {
	recordType string
	doc        []byte
}

type fakeRecords struct {
	records map[string]fakeRecord
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{records: map[string]fakeRecord{}}
}

func (f *fakeRecords) Put(_ context.Context, id, recordType string, doc []byte) error {
	f.records[id] = fakeRecord{recordType: recordType, doc: doc}
	return nil
}

func (f *fakeRecords) Get(_ context.Context, id string) (string, []byte, error) {
	rec, ok := f.records[id]
	if !ok {
		return "", nil, storage.ErrRecordNotFound
	}
	return rec.recordType, rec.doc, nil
}

func (f *fakeRecords) Delete(_ context.Context, id, recordType string) (bool, error) {
	rec, ok := f.records[id]
	if !ok || rec.recordType != recordType {
		return false, nil
	}
	delete(f.records, id)
	return true, nil
}

type fakeObjects struct {
	removed   []string
	removeErr error
}

func (f *fakeObjects) PresignUpload(_ context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("http://localhost:9000/signed-put/%s?ttl=%s", key, expiry), nil
}

func (f *fakeObjects) PresignDownload(_ context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("http://localhost:9000/signed-get/%s?ttl=%s", key, expiry), nil
}

func (f *fakeObjects) Remove(_ context.Context, key string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, key)
	return nil
}

func (f *fakeObjects) ObjectURL(key string) string {
	return "http://localhost:9000/files-bucket-dev/" + key
}

func newTestService(records *fakeRecords, objects *fakeObjects) *Service {
	svc := NewService(records, objects, zerolog.Nop())
	svc.Now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestGenerateUploadURL(t *testing.T) {
	svc := newTestService(newFakeRecords(), &fakeObjects{})

	grant, err := svc.GenerateUploadURL(context.Background(), "report.pdf")
	if err != nil {
		t.Fatalf("GenerateUploadURL returned error: %v", err)
	}
	if grant.FileID == "" {
		t.Fatal("expected a file id")
	}
	wantURL := fmt.Sprintf("http://localhost:9000/signed-put/%s/report.pdf?ttl=5m0s", grant.FileID)
	if grant.UploadURL != wantURL {
		t.Fatalf("unexpected upload url %q", grant.UploadURL)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	records := newFakeRecords()
	svc := newTestService(records, &fakeObjects{})
	ctx := context.Background()

	saved, err := svc.SaveMetadata(ctx, "f-1", "report.pdf", "application/pdf", 2048)
	if err != nil {
		t.Fatalf("SaveMetadata returned error: %v", err)
	}
	if saved.URL != "http://localhost:9000/files-bucket-dev/f-1/report.pdf" {
		t.Fatalf("unexpected retrieval url %q", saved.URL)
	}

	got, err := svc.GetMetadata(ctx, "f-1")
	if err != nil {
		t.Fatalf("GetMetadata returned error: %v", err)
	}
	if got != saved {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, saved)
	}
}

func TestGetMetadata_FiltersForeignRecordTypes(t *testing.T) {
	records := newFakeRecords()
	svc := newTestService(records, &fakeObjects{})
	ctx := context.Background()

	if _, err := svc.GetMetadata(ctx, "missing"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound for missing id, got %v", err)
	}

	task, _ := json.Marshal(contracts.Task{ID: "t-1", Title: "not a file"})
	if err := records.Put(ctx, "t-1", contracts.RecordTypeTask, task); err != nil {
		t.Fatalf("seed task record: %v", err)
	}
	if _, err := svc.GetMetadata(ctx, "t-1"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("task record must not resolve as file, got %v", err)
	}
}

func TestDownloadURL(t *testing.T) {
	svc := newTestService(newFakeRecords(), &fakeObjects{})

	url, err := svc.DownloadURL(context.Background(), "f-1", "report.pdf")
	if err != nil {
		t.Fatalf("DownloadURL returned error: %v", err)
	}
	if url != "http://localhost:9000/signed-get/f-1/report.pdf?ttl=1h0m0s" {
		t.Fatalf("unexpected download url %q", url)
	}
}

func TestDelete(t *testing.T) {
	records := newFakeRecords()
	objects := &fakeObjects{}
	svc := newTestService(records, objects)
	ctx := context.Background()

	if _, err := svc.SaveMetadata(ctx, "f-1", "report.pdf", "application/pdf", 2048); err != nil {
		t.Fatalf("SaveMetadata returned error: %v", err)
	}

	if !svc.Delete(ctx, "f-1", "report.pdf") {
		t.Fatal("expected delete to succeed")
	}
	if len(objects.removed) != 1 || objects.removed[0] != "f-1/report.pdf" {
		t.Fatalf("unexpected removed objects: %v", objects.removed)
	}
	if _, err := svc.GetMetadata(ctx, "f-1"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound after delete, got %v", err)
	}
}

func TestDelete_SwallowsObjectStoreFailure(t *testing.T) {
	records := newFakeRecords()
	objects := &fakeObjects{removeErr: errors.New("object store down")}
	svc := newTestService(records, objects)
	ctx := context.Background()

	if _, err := svc.SaveMetadata(ctx, "f-1", "report.pdf", "application/pdf", 2048); err != nil {
		t.Fatalf("SaveMetadata returned error: %v", err)
	}
	if svc.Delete(ctx, "f-1", "report.pdf") {
		t.Fatal("expected delete to report failure")
	}
	// Metadata stays when the object deletion failed.
	if _, err := svc.GetMetadata(ctx, "f-1"); err != nil {
		t.Fatalf("metadata should still exist, got %v", err)
	}
}
