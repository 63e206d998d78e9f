package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/einar-hansen/cachepool/internal/port/outbound"
)

// expiresAtKey is the object metadata entry holding the expiry in unix nanoseconds.
const expiresAtKey = "expires-at"

// deleteBatchSize is the DeleteObjects limit.
const deleteBatchSize = 1000

// API is the subset of *s3.Client used by the store.
type API interface {
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Store implements outbound.StorePort with one object per key under a prefix.
// Object storage has no native TTL per object, so expiry travels in metadata
// and expired objects are treated as absent.
type Store struct {
	client API
	bucket string
	prefix string
	now    func() time.Time
}

// NewStore creates an S3-backed store.
func NewStore(client API, bucket, prefix string) *Store {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Store{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

func (s *Store) live(metadata map[string]string) bool {
	raw, ok := metadata[expiresAtKey]
	if !ok || raw == "" {
		return true
	}
	expiresAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	return expiresAt == 0 || s.now().UnixNano() < expiresAt
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

func (s *Store) head(ctx context.Context, key string) (bool, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("head object: %w", err)
	}
	return s.live(out.Metadata), nil
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	return s.head(ctx, key)
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, outbound.ErrCacheMiss
		}
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer out.Body.Close()

	if !s.live(out.Metadata) {
		return nil, outbound.ErrCacheMiss
	}

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	return data, nil
}

// Put stores value with expiry metadata of now+ttl. A non-positive ttl removes the key.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		_, err := s.Forget(ctx, key)
		return err
	}
	return s.put(ctx, key, value, s.expiresAt(ttl))
}

// maxExpiry is the latest time whose unix nanoseconds fit in an int64.
var maxExpiry = time.Unix(0, math.MaxInt64)

// expiresAt returns now+ttl in unix nanoseconds, clamped to maxExpiry.
func (s *Store) expiresAt(ttl time.Duration) int64 {
	t := s.now().Add(ttl)
	if !t.Before(maxExpiry) {
		return math.MaxInt64
	}
	return t.UnixNano()
}

func (s *Store) Forever(ctx context.Context, key string, value []byte) error {
	return s.put(ctx, key, value, 0)
}

func (s *Store) put(ctx context.Context, key string, value []byte, expiresAt int64) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(key)),
		Body:          bytes.NewReader(value),
		ContentLength: aws.Int64(int64(len(value))),
		ContentType:   aws.String("application/octet-stream"),
		Metadata:      map[string]string{expiresAtKey: strconv.FormatInt(expiresAt, 10)},
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

// Forget deletes the object. DeleteObject does not report whether anything
// was removed, so presence is checked first.
func (s *Store) Forget(ctx context.Context, key string) (bool, error) {
	present, err := s.head(ctx, key)
	if err != nil {
		return false, err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		return false, fmt.Errorf("delete object: %w", err)
	}
	return present, nil
}

// Flush deletes every object under the store prefix.
func (s *Store) Flush(ctx context.Context) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	var objects []types.ObjectIdentifier
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects: %w", err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}
	}

	for i := 0; i < len(objects); i += deleteBatchSize {
		end := min(i+deleteBatchSize, len(objects))

		_, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects[i:end],
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return fmt.Errorf("delete objects: %w", err)
		}
	}
	return nil
}

// Compile-time checks
var (
	_ outbound.StorePort = (*Store)(nil)
	_ API                = (*s3.Client)(nil)
)
