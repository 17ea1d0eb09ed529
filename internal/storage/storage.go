// Package storage archives case documents in an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/equityline/caseenrich/internal/model"
	"github.com/equityline/caseenrich/internal/resilience"
)

// unsafeNameChars matches filesystem/object-key hostile characters in
// portal document names.
var unsafeNameChars = regexp.MustCompile(`[\\/:"*?<>|]+`)

// Store wraps the bucket the pipeline archives PDFs into.
type Store struct {
	client *minio.Client
	bucket string
	retry  resilience.RetryConfig
}

// Config carries the bucket connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// New connects to the object store.
func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, eris.Wrap(err, "storage: connect")
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("storage", "put")
	return &Store{client: client, bucket: cfg.Bucket, retry: retry}, nil
}

// ObjectKey builds the archive key for one document:
// case_details/<run-date>/<county>/<case>/<doc-date>_<doc-name>.pdf
func ObjectKey(runDate time.Time, d model.DocumentDescriptor) string {
	county := model.CountyCode(d.CaseNumber)
	docDate := strings.ReplaceAll(d.EventDate, "/", "_")
	name := unsafeNameChars.ReplaceAllString(d.Name, "_")
	name = strings.TrimSuffix(name, ".pdf")
	return fmt.Sprintf("case_details/%s/%s/%s/%s_%s.pdf",
		runDate.Format("2006_01_02"), county, d.CaseNumber, docDate, name)
}

// Put uploads a PDF under key, retrying transport transients.
func (s *Store) Put(ctx context.Context, key string, content []byte) error {
	err := resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		_, err := s.client.PutObject(ctx, s.bucket, key,
			bytes.NewReader(content), int64(len(content)),
			minio.PutObjectOptions{ContentType: "application/pdf"})
		return err
	})
	if err != nil {
		return eris.Wrapf(err, "storage: put %s", key)
	}
	return nil
}

// Get downloads an object's full contents.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "storage: get %s", key)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, eris.Wrapf(err, "storage: read %s", key)
	}
	return data, nil
}

// Remove deletes one object.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return eris.Wrapf(err, "storage: remove %s", key)
	}
	return nil
}

// RemoveAll deletes every object under prefix. Used to drop a red-flagged
// case's already-archived documents.
func (s *Store) RemoveAll(ctx context.Context, prefix string) error {
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return eris.Wrapf(obj.Err, "storage: list %s", prefix)
		}
		if err := s.Remove(ctx, obj.Key); err != nil {
			return err
		}
		zap.L().Debug("removed archived object", zap.String("key", obj.Key))
	}
	return nil
}

// CasePrefix is the archive prefix holding one case's documents for one
// run date.
func CasePrefix(runDate time.Time, caseNumber string) string {
	return fmt.Sprintf("case_details/%s/%s/%s/",
		runDate.Format("2006_01_02"), model.CountyCode(caseNumber), caseNumber)
}
