package blob

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Store persists recording artifacts keyed by meeting.
type Store interface {
	Put(ctx context.Context, meetingID uint, data []byte, mimeType string) (string, error)
}

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// CloudinaryStore implements Store using Cloudinary.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary store instance.
func New(cfg Config, logger zerolog.Logger) (*CloudinaryStore, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &CloudinaryStore{
		client: cld,
		folder: cfg.Folder,
		logger: logger.With().Str("component", "blob_store").Logger(),
	}, nil
}

// Put uploads the artifact and returns its secure URL. The public ID is
// derived from the meeting so re-uploads of the same meeting overwrite
// rather than accumulate.
func (s *CloudinaryStore) Put(ctx context.Context, meetingID uint, data []byte, mimeType string) (string, error) {
	overwrite := true
	params := uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     fmt.Sprintf("meeting-%d", meetingID),
		ResourceType: "video",
		Overwrite:    &overwrite,
	}

	result, err := s.client.Upload.Upload(ctx, bytes.NewReader(data), params)
	if err != nil {
		return "", fmt.Errorf("failed to upload recording: %w", err)
	}

	s.logger.Info().
		Uint("meeting_id", meetingID).
		Str("public_id", result.PublicID).
		Str("mime_type", mimeType).
		Msg("recording uploaded")

	return result.SecureURL, nil
}
