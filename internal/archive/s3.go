// Package archive uploads finished biographies to an S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"legado/internal/store"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Exporter renders a user's accepted stories as one markdown document and
// puts it in the bucket. It implements engine.Archiver.
type Exporter struct {
	client     *minio.Client
	bucketName string
	region     string
	st         store.Store

	initOnce sync.Once
	initErr  error
}

func NewExporter(cfg S3Config, st store.Store) (*Exporter, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &Exporter{
		client:     client,
		bucketName: bucket,
		region:     region,
		st:         st,
	}, nil
}

func (e *Exporter) ensureBucket(ctx context.Context) error {
	e.initOnce.Do(func() {
		exists, err := e.client.BucketExists(ctx, e.bucketName)
		if err != nil {
			e.initErr = err
			return
		}
		if exists {
			return
		}
		e.initErr = e.client.MakeBucket(ctx, e.bucketName, minio.MakeBucketOptions{Region: e.region})
	})
	return e.initErr
}

// ExportBiography renders and uploads everything the user has answered so
// far. Safe to call more than once; the object is overwritten.
func (e *Exporter) ExportBiography(ctx context.Context, chatID int64) error {
	u, ok, err := e.st.GetUser(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return fmt.Errorf("unknown user %d", chatID)
	}
	stories, err := e.st.ListStories(ctx, chatID)
	if err != nil {
		return fmt.Errorf("load stories: %w", err)
	}
	questions, err := e.st.ListQuestions(ctx)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	doc := RenderBiography(u.FirstName, questions, stories)
	if err := e.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}

	key := fmt.Sprintf("biographies/%d.md", chatID)
	body := []byte(doc)
	_, err = e.client.PutObject(ctx, e.bucketName, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "text/markdown",
	})
	return err
}
