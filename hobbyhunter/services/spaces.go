package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hobbyhunter/storefront/hobbyhunter/logger"
	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

const DefaultURLExpiry = 15 * time.Minute

// ImageSigner turns stored art keys into URLs clients can load.
type ImageSigner interface {
	ImageURL(ctx context.Context, imageKey string) (string, error)
}

type SpacesConfig struct {
	Key       string
	Secret    string
	Region    string
	Bucket    string
	Endpoint  string
	CardRoot  string
	URLExpiry time.Duration
}

// SpacesService signs card and pack art stored on S3 compatible object
// storage.
type SpacesService struct {
	presign  *s3.PresignClient
	bucket   string
	region   string
	cardRoot string
	expiry   time.Duration
}

func NewSpacesService(ctx context.Context, cfg SpacesConfig) (*SpacesService, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("spaces bucket is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.digitaloceanspaces.com", cfg.Region)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, "")),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load spaces config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = DefaultURLExpiry
	}
	return &SpacesService{
		presign:  s3.NewPresignClient(client),
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		cardRoot: strings.Trim(cfg.CardRoot, "/"),
		expiry:   expiry,
	}, nil
}

func (s *SpacesService) Bucket() string {
	return s.bucket
}

func (s *SpacesService) Region() string {
	return s.region
}

// ObjectKey places imageKey under the configured card root.
func (s *SpacesService) ObjectKey(imageKey string) string {
	return path.Join(s.cardRoot, strings.TrimPrefix(imageKey, "/"))
}

// ImageURL presigns a GET for imageKey. Keys that already are URLs are
// returned unchanged.
func (s *SpacesService) ImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" || isURL(imageKey) {
		return imageKey, nil
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.ObjectKey(imageKey)),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", imageKey, err)
	}
	return req.URL, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// decorateCards replaces art keys with signed URLs. Signing failures leave
// the key in place.
func decorateCards(ctx context.Context, signer ImageSigner, cards []models.Card) []models.Card {
	if signer == nil || len(cards) == 0 {
		return cards
	}
	out := make([]models.Card, len(cards))
	for i, card := range cards {
		out[i] = card
		url, err := signer.ImageURL(ctx, card.ImageURL)
		if err != nil {
			logger.LogError("Failed to sign card image", err)
			continue
		}
		out[i].ImageURL = url
	}
	return out
}

func decoratePacks(ctx context.Context, signer ImageSigner, packs []models.Pack) []models.Pack {
	if signer == nil || len(packs) == 0 {
		return packs
	}
	out := make([]models.Pack, len(packs))
	for i, pack := range packs {
		out[i] = pack
		url, err := signer.ImageURL(ctx, pack.ImageURL)
		if err != nil {
			logger.LogError("Failed to sign pack image", err)
			continue
		}
		out[i].ImageURL = url
	}
	return out
}
