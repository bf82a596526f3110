package repositories

import (
	"bytes"
	"context"
	"fmt"

	"supplyrunway/internal/models"
	"supplyrunway/internal/services"
)

type objectSource struct {
	store     services.MinioService
	bucket    string
	object    string
	sheet     string
	delimiter rune
}

// NewObjectSource reads a CSV or XLSX object from S3-compatible storage
func NewObjectSource(store services.MinioService, bucket, object, sheet string, delimiter rune) InventorySource {
	return &objectSource{store: store, bucket: bucket, object: object, sheet: sheet, delimiter: delimiter}
}

func (s *objectSource) Identity() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.object)
}

func (s *objectSource) Fetch(ctx context.Context) (*models.RawTable, error) {
	data, err := s.store.GetObject(ctx, s.bucket, s.object)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", s.Identity(), err)
	}
	return ParseByExtension(bytes.NewReader(data), s.Identity(), s.object, s.sheet, s.delimiter)
}
