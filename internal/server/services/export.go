package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	sc "github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ExportURLValidity is how long a presigned transcript link stays usable.
const ExportURLValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Transcript is the exported document.
type Transcript struct {
	Conversation models.Conversation `json:"conversation"`
	Messages     []models.Message    `json:"messages"`
	ExportedAt   time.Time           `json:"exportedAt"`
}

// ExportService uploads conversation transcripts to S3-compatible storage
// and hands out short-lived download links.
type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	logger      logging.Logger
}

func NewExportService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config, logger logging.Logger) *ExportService {
	return &ExportService{
		db:          db,
		repomanager: repomanager,
		config:      config,
		logger:      logger.With("service", "export"),
	}
}

// Enabled reports whether a bucket is configured.
func (s *ExportService) Enabled() bool { return s.config.ExportEnabled() }

func exportKey(userID, conversationID string) string {
	return fmt.Sprintf("exports/%s/%s/%s.json", userID, conversationID, uuid.New())
}

func (s *ExportService) getClient(ctx context.Context) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(s.config.S3Region)}
	if s.config.S3AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3AccessKey,
			s.config.S3SecretKey,
			"",
		)))
	}
	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Export writes the caller's conversation transcript to the bucket and
// returns a presigned GET URL with its expiry.
func (s *ExportService) Export(ctx context.Context, conversationID, callerID string) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, common.NewUserError(common.ErrorUnavailable, "Export is not configured.")
	}

	conv, err := authorizeConversation(ctx, s.repomanager, s.db, conversationID, callerID)
	if err != nil {
		return "", time.Time{}, err
	}

	msgs, err := s.repomanager.Messages(s.db).ListByConversation(ctx, conversationID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error listing messages: %w", err)
	}

	body, err := json.MarshalIndent(Transcript{Conversation: *conv, Messages: msgs, ExportedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return "", time.Time{}, err
	}

	client, err := s.getClient(ctx)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("s3 config: %w", err)
	}

	bucket := s.config.S3Bucket
	key := exportKey(callerID, conversationID)

	if _, err := putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return "", time.Time{}, fmt.Errorf("s3 put: %w", err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(ExportURLValidity))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("s3 presign: %w", err)
	}

	s.logger.Info(ctx, "transcript exported", "conversation_id", conversationID, "key", key, "messages", len(msgs))
	return req.URL, time.Now().Add(ExportURLValidity), nil
}
