// Package s3 implements the artifact cache on an S3-compatible backend (AWS
// S3 or MinIO). The entry header travels in object metadata, so sufficiency
// checks cost one HeadObject and never download a payload.
package s3

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"siegelcore/internal/cache/core"
)

const (
	metaPrecision = "precision"
	metaChecksum  = "checksum"
	metaWrittenAt = "written-at"
)

// Store implements core.Store against a single bucket. Identity hashes map to
// object keys directly. PutObject replaces atomically, which gives the
// overwrite-without-overclaim guarantee for free.
type Store struct {
	client *s3.Client
	bucket string
}

// Config holds explicit construction parameters (mostly for tests). For prod
// we rely primarily on environment variables.
type Config struct {
	Region    string
	Bucket    string
	Endpoint  string // optional; if set enables custom endpoint (e.g. MinIO)
	PathStyle bool
}

// Environment variables (documented in README):
//
//	SIEGELCORE_CACHE_DRIVER=s3
//	SIEGELCORE_CACHE_S3_BUCKET=<bucket> (required)
//	SIEGELCORE_CACHE_S3_REGION=<region> (default us-east-1)
//	SIEGELCORE_CACHE_S3_ENDPOINT=<url> (optional, for MinIO)
//	SIEGELCORE_CACHE_S3_PATH_STYLE=true|false (default false)
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// New creates an S3 cache store from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// OpenFromEnv constructs an S3 cache store from process environment.
func OpenFromEnv(ctx context.Context) (*Store, error) {
	bucket := os.Getenv("SIEGELCORE_CACHE_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("SIEGELCORE_CACHE_S3_BUCKET required for s3 driver")
	}
	cfg := Config{
		Bucket:    bucket,
		Region:    os.Getenv("SIEGELCORE_CACHE_S3_REGION"),
		Endpoint:  os.Getenv("SIEGELCORE_CACHE_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("SIEGELCORE_CACHE_S3_PATH_STYLE"), "true"),
	}
	return New(ctx, cfg)
}

func (s *Store) Driver() core.Driver { return core.DriverS3 }

// Ping checks that the bucket answers.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &s.bucket})
	if err != nil {
		return fmt.Errorf("bucket %s unreachable: %w", s.bucket, err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, hash string, precision int, payload []byte) (core.Entry, error) {
	entry := core.Entry{
		Hash:      hash,
		Precision: precision,
		Size:      int64(len(payload)),
		Checksum:  payloadChecksum(payload),
		WrittenAt: time.Now().UTC(),
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &hash,
		Body:   bytes.NewReader(payload),
		Metadata: map[string]string{
			metaPrecision: strconv.Itoa(precision),
			metaChecksum:  entry.Checksum,
			metaWrittenAt: entry.WrittenAt.Format(time.RFC3339Nano),
		},
	})
	if err != nil {
		return core.Entry{}, fmt.Errorf("put %s: %w", hash, err)
	}
	return entry, nil
}

func (s *Store) Load(ctx context.Context, hash string) (core.Entry, []byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &hash})
	if err != nil {
		if isNotFound(err) {
			return core.Entry{}, nil, core.ErrNotFound
		}
		return core.Entry{}, nil, fmt.Errorf("get %s: %w", hash, err)
	}
	defer func() { _ = out.Body.Close() }()
	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return core.Entry{}, nil, fmt.Errorf("read %s: %w", hash, err)
	}
	entry, err := entryFromMetadata(hash, int64(len(payload)), out.Metadata, out.LastModified)
	if err != nil {
		return core.Entry{}, nil, err
	}
	return entry, payload, nil
}

func (s *Store) Head(ctx context.Context, hash string) (core.Entry, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &hash})
	if err != nil {
		if isNotFound(err) {
			return core.Entry{}, core.ErrNotFound
		}
		return core.Entry{}, fmt.Errorf("head %s: %w", hash, err)
	}
	size := int64(0)
	if out.ContentLength != nil {
		size = *out.ContentLength
	}
	return entryFromMetadata(hash, size, out.Metadata, out.LastModified)
}

func (s *Store) Sufficient(ctx context.Context, hash string, target int) (bool, error) {
	entry, err := s.Head(ctx, hash)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return core.Sufficient(entry, target), nil
}

func (s *Store) Delete(ctx context.Context, hash string) (bool, error) {
	// Head first so the report of whether an entry existed is accurate.
	_, err := s.Head(ctx, hash)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &hash}); err != nil {
		return false, fmt.Errorf("delete %s: %w", hash, err)
	}
	return true, nil
}

func (s *Store) List(ctx context.Context) ([]core.Entry, error) {
	var entries []core.Entry
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, ContinuationToken: token})
		if err != nil {
			return nil, fmt.Errorf("list bucket %s: %w", s.bucket, err)
		}
		for _, obj := range out.Contents {
			entry, err := s.Head(ctx, aws.ToString(obj.Key))
			if errors.Is(err, core.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			entries = append(entries, entry)
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Hash < entries[j].Hash })
	return entries, nil
}

// entryFromMetadata rebuilds the header from object metadata. Objects without
// a precision entry were not written by this store and read as misses.
func entryFromMetadata(hash string, size int64, md map[string]string, lastModified *time.Time) (core.Entry, error) {
	precStr, ok := md[metaPrecision]
	if !ok {
		return core.Entry{}, core.ErrNotFound
	}
	prec, err := strconv.Atoi(precStr)
	if err != nil {
		return core.Entry{}, fmt.Errorf("object %s: invalid precision %q", hash, precStr)
	}
	writtenAt := time.Time{}
	if ts, ok := md[metaWrittenAt]; ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			writtenAt = parsed
		}
	}
	if writtenAt.IsZero() && lastModified != nil {
		writtenAt = *lastModified
	}
	return core.Entry{
		Hash:      hash,
		Precision: prec,
		Size:      size,
		Checksum:  md[metaChecksum],
		WrittenAt: writtenAt,
	}, nil
}

func isNotFound(err error) bool {
	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "404"
	}
	return false
}

func payloadChecksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
