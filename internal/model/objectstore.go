package model

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/klauspost/compress/zstd"

	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
	"github.com/unklab-dev/kampusbot-go/internal/logger"
)

// ObjectStoreConfig holds S3-compatible storage settings for syncing
// trained artifacts between the train and serve machines.
type ObjectStoreConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
}

// ObjectStore pushes and pulls the artifact directory as a single
// zstd-compressed tar object.
type ObjectStore struct {
	s3     *s3.Client
	bucket string
	log    *logger.Logger
}

// NewObjectStore creates an S3-backed artifact store.
func NewObjectStore(ctx context.Context, cfg ObjectStoreConfig, log *logger.Logger) (*ObjectStore, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.BucketName == "" {
		return nil, errors.New("object store: all config fields are required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("object store: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &ObjectStore{
		s3:     client,
		bucket: cfg.BucketName,
		log:    log.WithModule("objectstore"),
	}, nil
}

// Push archives the artifact files in dir and uploads them under key.
func (o *ObjectStore) Push(ctx context.Context, dir, key string) error {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("object store: zstd writer: %w", err)
	}
	tw := tar.NewWriter(enc)

	for _, name := range []string{ManifestFile, VectorizerFile, ClassifierFile} {
		if err := addFile(tw, dir, name); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("object store: close tar: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("object store: close zstd: %w", err)
	}

	_, err = o.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/zstd"),
	})
	if err != nil {
		return fmt.Errorf("object store: upload %q: %w", key, err)
	}

	o.log.WithField("key", key).WithField("bytes", buf.Len()).Info("artifacts pushed")
	return nil
}

// Pull downloads the artifact archive at key and unpacks it into dir.
// Returns ErrNotFound when no snapshot has been pushed yet.
func (o *ObjectStore) Pull(ctx context.Context, key, dir string) error {
	result, err := o.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("object store: no snapshot at %q: %w", key, apperrors.ErrNotFound)
		}
		return fmt.Errorf("object store: download %q: %w", key, err)
	}
	defer result.Body.Close()

	dec, err := zstd.NewReader(result.Body)
	if err != nil {
		return fmt.Errorf("object store: zstd reader: %w", err)
	}
	defer dec.Close()

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("object store: create dir: %w", err)
	}

	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("object store: read tar: %w", err)
		}
		name := filepath.Base(hdr.Name)
		if strings.Contains(hdr.Name, "..") || name != hdr.Name {
			return fmt.Errorf("object store: refusing entry %q", hdr.Name)
		}
		out, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
		if err != nil {
			return fmt.Errorf("object store: create %s: %w", name, err)
		}
		if _, err := io.Copy(out, tr); err != nil { //nolint:gosec // artifact archives are produced by our own trainer
			out.Close()
			return fmt.Errorf("object store: extract %s: %w", name, err)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("object store: close %s: %w", name, err)
		}
	}

	o.log.WithField("key", key).Info("artifacts pulled")
	return nil
}

func addFile(tw *tar.Writer, dir, name string) error {
	raw, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("object store: read %s: %w", name, err)
	}
	if err := tw.WriteHeader(&tar.Header{
		Name: name,
		Mode: 0o640,
		Size: int64(len(raw)),
	}); err != nil {
		return fmt.Errorf("object store: tar header %s: %w", name, err)
	}
	if _, err := tw.Write(raw); err != nil {
		return fmt.Errorf("object store: tar write %s: %w", name, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	return false
}
