package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ghodss/yaml"

	"github.com/rootseed/pos-otp-relay/internal/domain"
	"github.com/rootseed/pos-otp-relay/internal/repository/ports"
)

var (
	ErrArchiveUnavailable = errors.New("relay archive storage not configured")
	ErrArchiveFormat      = errors.New("unsupported archive format")
)

type messageLister interface {
	ListAll(ctx context.Context) ([]domain.Message, error)
}

// ArchiveService writes snapshots of the relay log to object storage.
type ArchiveService struct {
	messages messageLister
	storage  ports.ObjectStorage
	bucket   string
	now      func() time.Time
}

func NewArchiveService(messages messageLister, storage ports.ObjectStorage, bucket string) *ArchiveService {
	return &ArchiveService{
		messages: messages,
		storage:  storage,
		bucket:   bucket,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Export uploads every message as JSON or YAML and returns where it went.
func (s *ArchiveService) Export(ctx context.Context, format string) (*domain.ArchiveResult, error) {
	if s.storage == nil || s.bucket == "" {
		return nil, ErrArchiveUnavailable
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "yaml" {
		return nil, fmt.Errorf("%w: %s", ErrArchiveFormat, format)
	}

	all, err := s.messages.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	records := make([]domain.ArchivedMessage, 0, len(all))
	for _, m := range all {
		records = append(records, domain.ArchiveOf(m))
	}

	payload, err := json.MarshalIndent(struct {
		ExportedAt time.Time                `json:"exportedAt"`
		Messages   []domain.ArchivedMessage `json:"messages"`
	}{ExportedAt: now, Messages: records}, "", "  ")
	if err != nil {
		return nil, err
	}
	contentType := "application/json"
	if format == "yaml" {
		if payload, err = yaml.JSONToYAML(payload); err != nil {
			return nil, err
		}
		contentType = "application/yaml"
	}

	object := fmt.Sprintf("relay/%s/messages-%s.%s", now.Format("2006/01/02"), now.Format("20060102T150405Z"), format)
	url, err := s.storage.Upload(ctx, s.bucket, object, contentType, bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, err
	}
	return &domain.ArchiveResult{
		Object:     object,
		URL:        url,
		Format:     format,
		Count:      len(records),
		ExportedAt: now,
	}, nil
}
