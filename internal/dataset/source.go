package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// TableSource provides read access to the raw CSV extracts. The pipeline
// reads each table exactly once per run; sources hold no table state.
type TableSource interface {
	// Open returns a reader for the named file (e.g. "orders.csv").
	Open(ctx context.Context, filename string) (io.ReadCloser, error)
	// Signature returns a fingerprint of the current state of all table
	// files. It changes whenever any file is modified, and is the
	// modification-signature component of cache keys.
	Signature(ctx context.Context) (string, error)
	// Location describes the source for error messages and logs.
	Location() string
}

// TableFilenames returns the file names of the six logical tables.
func TableFilenames() []string {
	return []string{
		TableOrders + ".csv",
		TableOrderItems + ".csv",
		TableProducts + ".csv",
		TableCustomers + ".csv",
		TableReviews + ".csv",
		TablePayments + ".csv",
	}
}

// LocalSource reads table files from a directory on disk.
type LocalSource struct {
	dir string
}

// NewLocalSource creates a source rooted at dir.
func NewLocalSource(dir string) *LocalSource {
	return &LocalSource{dir: dir}
}

func (s *LocalSource) Open(_ context.Context, filename string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.dir, filename))
}

func (s *LocalSource) Location() string { return s.dir }

// Signature hashes the size and mtime of every table file. Missing files
// contribute a marker so that adding the file later changes the signature.
func (s *LocalSource) Signature(_ context.Context) (string, error) {
	parts := make([]string, 0, 6)
	for _, name := range TableFilenames() {
		info, err := os.Stat(filepath.Join(s.dir, name))
		if err != nil {
			parts = append(parts, name+":absent")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%d:%d", name, info.Size(), info.ModTime().UnixNano()))
	}
	return hashParts(s.dir, parts), nil
}

// S3Source reads table files from an S3 bucket prefix.
type S3Source struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Source creates an S3-backed source using the default credential chain,
// or the named profile when one is configured.
func NewS3Source(ctx context.Context, bucket, prefix, region, profile string) (*S3Source, error) {
	var cfg aws.Config
	var err error

	if profile != "" {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
			awsconfig.WithSharedConfigProfile(profile),
		)
	} else {
		cfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &S3Source{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: strings.TrimSuffix(prefix, "/"),
	}, nil
}

func (s *S3Source) key(filename string) string {
	if s.prefix == "" {
		return filename
	}
	return s.prefix + "/" + filename
}

func (s *S3Source) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(filename)),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (s *S3Source) Location() string { return "s3://" + s.bucket + "/" + s.prefix }

// Signature hashes the ETag and size of every table object.
func (s *S3Source) Signature(ctx context.Context) (string, error) {
	parts := make([]string, 0, 6)
	for _, name := range TableFilenames() {
		head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(name)),
		})
		if err != nil {
			parts = append(parts, name+":absent")
			continue
		}
		etag := aws.ToString(head.ETag)
		parts = append(parts, fmt.Sprintf("%s:%d:%s", name, aws.ToInt64(head.ContentLength), etag))
	}
	return hashParts(s.Location(), parts), nil
}

func hashParts(location string, parts []string) string {
	sort.Strings(parts)
	h := sha256.New()
	h.Write([]byte(location))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
