package vigil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang/snappy"
)

// ArchiveConfig configures S3 snapshot archiving.
type ArchiveConfig struct {
	// Bucket is the target S3 bucket.
	Bucket string

	// Region is the AWS region.
	Region string

	// Endpoint overrides the S3 endpoint, for MinIO and compatible stores.
	Endpoint string

	// Prefix is prepended to every object key. Default: "vigil/".
	Prefix string

	// AccessKeyID and SecretAccessKey are optional static credentials.
	// Prefer IAM roles or the environment; leave empty to use the default
	// credential chain.
	AccessKeyID     string
	SecretAccessKey string

	// UsePathStyle forces path-style addressing, required by most
	// S3-compatible stores.
	UsePathStyle bool

	// Encryptor, when set, encrypts snapshots at rest.
	Encryptor *Encryptor
}

// Snapshot is an archived view of the engine's adaptive state: fitted
// baselines per stream plus the alerts emitted since the previous snapshot.
type Snapshot struct {
	TakenAtMs int64                    `json:"taken_at_ms"`
	Baselines map[string]BaselineStats `json:"baselines"`
	Alerts    []AlertRecord            `json:"alerts,omitempty"`
}

// Archive writes snappy-compressed, optionally encrypted snapshots to S3.
type Archive struct {
	config ArchiveConfig
	client *s3.Client
	logger *slog.Logger
}

// NewArchive creates an archive backed by S3 or a compatible object store.
func NewArchive(ctx context.Context, config ArchiveConfig) (*Archive, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	if config.Prefix == "" {
		config.Prefix = "vigil/"
	}
	if !strings.HasSuffix(config.Prefix, "/") {
		config.Prefix += "/"
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if config.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(config.Region))
	}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
		o.UsePathStyle = config.UsePathStyle
	})

	return &Archive{
		config: config,
		client: client,
		logger: slog.Default().With("component", "archive"),
	}, nil
}

// SnapshotPipeline builds a snapshot from the pipeline's fitted baselines.
func SnapshotPipeline(p *AlertPipeline, alerts []AlertRecord) *Snapshot {
	return &Snapshot{
		TakenAtMs: time.Now().UnixMilli(),
		Baselines: p.Baselines(),
		Alerts:    alerts,
	}
}

// Put archives the snapshot and returns the object key.
func (a *Archive) Put(ctx context.Context, snap *Snapshot) (string, error) {
	if snap.TakenAtMs == 0 {
		snap.TakenAtMs = time.Now().UnixMilli()
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	payload := snappy.Encode(nil, raw)
	if a.config.Encryptor != nil {
		payload, err = a.config.Encryptor.Encrypt(payload)
		if err != nil {
			return "", fmt.Errorf("encrypt snapshot: %w", err)
		}
	}

	key := a.snapshotKey(time.UnixMilli(snap.TakenAtMs))
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.config.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(payload),
	})
	if err != nil {
		return "", fmt.Errorf("put snapshot: %w", err)
	}

	a.logger.Info("snapshot archived", "key", key,
		"baselines", len(snap.Baselines), "alerts", len(snap.Alerts), "bytes", len(payload))
	return key, nil
}

// Get fetches and decodes an archived snapshot by key.
func (a *Archive) Get(ctx context.Context, key string) (*Snapshot, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if a.config.Encryptor != nil {
		payload, err = a.config.Encryptor.Decrypt(payload)
		if err != nil {
			return nil, fmt.Errorf("decrypt snapshot: %w", err)
		}
	}
	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// List returns all snapshot keys under the archive prefix, oldest first.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.config.Bucket),
		Prefix: aws.String(a.config.Prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Latest fetches the most recent archived snapshot, or nil when the archive
// is empty.
func (a *Archive) Latest(ctx context.Context) (*Snapshot, error) {
	keys, err := a.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}
	return a.Get(ctx, keys[len(keys)-1])
}

func (a *Archive) snapshotKey(t time.Time) string {
	return fmt.Sprintf("%ssnapshots/%s.snap", a.config.Prefix, t.UTC().Format("20060102T150405.000"))
}
