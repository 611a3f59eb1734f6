package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

// ErrArtifactNotFound is returned when no rejected-rows file exists for a destination
var ErrArtifactNotFound = errors.New("rejected rows file not found")

// ArtifactStore keeps the latest rejected-rows file per import destination
type ArtifactStore interface {
	Save(ctx context.Context, kind Kind, destination uuid.UUID, data []byte) error
	Load(ctx context.Context, kind Kind, destination uuid.UUID) ([]byte, error)
	Delete(ctx context.Context, kind Kind, destination uuid.UUID) error
}

// ArtifactKey is the storage key of the rejected rows of kind for destination
func ArtifactKey(kind Kind, destination uuid.UUID) string {
	return fmt.Sprintf("rejected_rows:%s:%s", kind, destination)
}

// Publish stores the rejected rows of result, or removes a stale file when
// nothing was rejected, so a download never returns rows of an older import.
func Publish(ctx context.Context, store ArtifactStore, destination uuid.UUID, result *Result) error {
	if !result.HasRejections() {
		return store.Delete(ctx, result.Kind, destination)
	}

	data, err := result.RejectedCSV()
	if err != nil {
		return err
	}
	return store.Save(ctx, result.Kind, destination, data)
}

// RedisArtifactStore keeps files in Redis without expiry
type RedisArtifactStore struct {
	client *redis.Client
}

func NewRedisArtifactStore(client *redis.Client) *RedisArtifactStore {
	return &RedisArtifactStore{client: client}
}

func (s *RedisArtifactStore) Save(ctx context.Context, kind Kind, destination uuid.UUID, data []byte) error {
	if err := s.client.Set(ctx, ArtifactKey(kind, destination), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store rejected rows: %w", err)
	}
	return nil
}

func (s *RedisArtifactStore) Load(ctx context.Context, kind Kind, destination uuid.UUID) ([]byte, error) {
	data, err := s.client.Get(ctx, ArtifactKey(kind, destination)).Bytes()
	if err == redis.Nil {
		return nil, ErrArtifactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rejected rows: %w", err)
	}
	return data, nil
}

func (s *RedisArtifactStore) Delete(ctx context.Context, kind Kind, destination uuid.UUID) error {
	if err := s.client.Del(ctx, ArtifactKey(kind, destination)).Err(); err != nil {
		return fmt.Errorf("failed to delete rejected rows: %w", err)
	}
	return nil
}

// S3ArtifactStore keeps files as objects in a bucket, behind a circuit breaker
type S3ArtifactStore struct {
	client  s3iface.S3API
	bucket  string
	breaker *utils.CircuitBreaker
}

// NewS3ArtifactStore creates a store writing to bucket in region
func NewS3ArtifactStore(region, bucket string) (*S3ArtifactStore, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return newS3ArtifactStore(s3.New(sess), bucket), nil
}

func newS3ArtifactStore(client s3iface.S3API, bucket string) *S3ArtifactStore {
	return &S3ArtifactStore{
		client:  client,
		bucket:  bucket,
		breaker: utils.NewCircuitBreaker("s3-artifacts", 5, 30*time.Second),
	}
}

func (s *S3ArtifactStore) objectKey(kind Kind, destination uuid.UUID) string {
	return ArtifactKey(kind, destination) + ".csv"
}

func (s *S3ArtifactStore) Save(ctx context.Context, kind Kind, destination uuid.UUID, data []byte) error {
	err := s.breaker.Call(func() error {
		_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(s.objectKey(kind, destination)),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("text/csv"),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upload rejected rows: %w", err)
	}
	return nil
}

func (s *S3ArtifactStore) Load(ctx context.Context, kind Kind, destination uuid.UUID) ([]byte, error) {
	var data []byte
	err := s.breaker.Call(func() error {
		out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(kind, destination)),
		})
		if err != nil {
			if isS3NotFound(err) {
				// a missing object is an answer, not a failure of the dependency
				return nil
			}
			return err
		}
		defer out.Body.Close()
		data, err = io.ReadAll(out.Body)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download rejected rows: %w", err)
	}
	if data == nil {
		return nil, ErrArtifactNotFound
	}
	return data, nil
}

func (s *S3ArtifactStore) Delete(ctx context.Context, kind Kind, destination uuid.UUID) error {
	err := s.breaker.Call(func() error {
		_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.objectKey(kind, destination)),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete rejected rows: %w", err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}
	return false
}

// NewArtifactStore picks the backend named by backend ("redis" or "s3")
func NewArtifactStore(backend, region, bucket string, client *redis.Client) (ArtifactStore, error) {
	switch backend {
	case "", "redis":
		if client == nil {
			return nil, fmt.Errorf("redis artifact store needs a Redis client")
		}
		return NewRedisArtifactStore(client), nil
	case "s3":
		if bucket == "" {
			return nil, fmt.Errorf("ARTIFACT_BUCKET must be set for the s3 artifact store")
		}
		logrus.Infof("Storing rejected rows in s3://%s", bucket)
		return NewS3ArtifactStore(region, bucket)
	}
	return nil, fmt.Errorf("unknown artifact backend %q", backend)
}
