// Package documents checks and uploads input documents in S3 before they are
// submitted for analysis.
package documents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// MaxPDFPages is the largest PDF the asynchronous analysis API accepts.
const MaxPDFPages = 3000

var (
	// ErrNotFound is returned when the object does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidDocument is returned when a local file fails preflight.
	ErrInvalidDocument = errors.New("invalid document")
)

// S3API is the subset of the S3 client used here.
type S3API interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Object describes a stored document.
type Object struct {
	Bucket      string `json:"bucket" yaml:"bucket"`
	Key         string `json:"key" yaml:"key"`
	Size        int64  `json:"size" yaml:"size"`
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	ETag        string `json:"etag,omitempty" yaml:"etag,omitempty"`
	Pages       int    `json:"pages,omitempty" yaml:"pages,omitempty"`
}

// Store reads and writes documents in S3.
type Store struct {
	client S3API
	logger *slog.Logger
}

// New creates a store. A nil logger uses slog.Default().
func New(client S3API, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger}
}

// Exists returns the object's metadata, or ErrNotFound.
func (s *Store) Exists(ctx context.Context, bucket, key string) (Object, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		var nf *types.NotFound
		if errors.As(err, &nsk) || errors.As(err, &nf) || strings.Contains(err.Error(), "NotFound") {
			return Object{}, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, bucket, key)
		}
		return Object{}, fmt.Errorf("failed to check s3://%s/%s: %w", bucket, key, err)
	}
	return Object{
		Bucket:      bucket,
		Key:         key,
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		ETag:        strings.Trim(aws.ToString(out.ETag), "\""),
	}, nil
}

// Upload stores the local file at path under key. PDFs are opened first and
// rejected when they are unreadable, empty or longer than MaxPDFPages.
func (s *Store) Upload(ctx context.Context, bucket, key, path string) (Object, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Object{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Object{}, fmt.Errorf("%w: %s is a directory", ErrInvalidDocument, path)
	}

	obj := Object{Bucket: bucket, Key: key, Size: info.Size(), ContentType: contentType(path)}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		pages, err := PDFPageCount(path)
		if err != nil {
			return Object{}, err
		}
		obj.Pages = pages
	}

	f, err := os.Open(path)
	if err != nil {
		return Object{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(obj.ContentType),
	})
	if err != nil {
		return Object{}, fmt.Errorf("failed to upload %s to s3://%s/%s: %w", path, bucket, key, err)
	}
	obj.ETag = strings.Trim(aws.ToString(out.ETag), "\"")

	s.logger.Info("document uploaded", "bucket", bucket, "key", key, "bytes", obj.Size, "pages", obj.Pages)
	return obj, nil
}

// PDFPageCount opens a PDF and returns its page count.
func PDFPageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	pageCount, err := api.PageCount(f, nil)
	f.Close()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get page count for %s: %v", ErrInvalidDocument, path, err)
	}
	if pageCount == 0 {
		return 0, fmt.Errorf("%w: %s has no pages", ErrInvalidDocument, path)
	}
	if pageCount > MaxPDFPages {
		return 0, fmt.Errorf("%w: %s has %d pages, limit is %d", ErrInvalidDocument, path, pageCount, MaxPDFPages)
	}
	return pageCount, nil
}

// KeyFor returns the object key for a local file: its base name, under
// prefix when one is given.
func KeyFor(prefix, path string) string {
	base := filepath.Base(path)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return base
	}
	return prefix + "/" + base
}

func contentType(path string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
