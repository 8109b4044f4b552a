package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"

	gostore "github.com/dvloznov/money-assistant/internal/store"
)

// Uploader writes one report object to durable storage.
type Uploader interface {
	Upload(ctx context.Context, objectName string, data []byte) error
}

// GCSUploader uploads objects to one Cloud Storage bucket. The client is
// injected; Application Default Credentials are assumed.
type GCSUploader struct {
	client *storage.Client
	bucket string
}

// NewGCSUploader wraps a storage client and bucket name.
func NewGCSUploader(client *storage.Client, bucket string) *GCSUploader {
	return &GCSUploader{client: client, bucket: bucket}
}

// Upload writes the object, finalizing on Close.
func (u *GCSUploader) Upload(ctx context.Context, objectName string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := u.client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object %q: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload of %q: %w", objectName, err)
	}
	return nil
}

// Exporter builds monthly reports and ships them through an Uploader.
type Exporter struct {
	store    gostore.Store
	uploader Uploader
	log      zerolog.Logger
	now      func() time.Time
}

// NewExporter builds an exporter. A nil now uses the wall clock.
func NewExporter(s gostore.Store, uploader Uploader, log zerolog.Logger, now func() time.Time) *Exporter {
	if now == nil {
		now = time.Now
	}
	return &Exporter{store: s, uploader: uploader, log: log, now: now}
}

// ObjectName returns the bucket path for a month's report.
func ObjectName(month time.Month, year int) string {
	return fmt.Sprintf("reports/%04d/%02d.json", year, int(month))
}

// ExportMonth builds and uploads one month's report, returning the
// object name it was stored under.
func (e *Exporter) ExportMonth(ctx context.Context, month time.Month, year int) (string, error) {
	report, err := BuildMonthlyReport(ctx, e.store, month, year, e.now())
	if err != nil {
		return "", fmt.Errorf("build report for %d/%d: %w", month, year, err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	name := ObjectName(month, year)
	if err := e.uploader.Upload(ctx, name, data); err != nil {
		return "", err
	}

	e.log.Info().
		Str("object", name).
		Int("transactions", len(report.Transactions)).
		Msg("Exported monthly report")
	return name, nil
}
