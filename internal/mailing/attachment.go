package mailing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/legacycamp/camp-api/internal/config"
	"github.com/legacycamp/camp-api/internal/domain"
	"github.com/legacycamp/camp-api/internal/pkg/httpretry"
)

// maxAttachmentBytes bounds a downloaded contract.
const maxAttachmentBytes = 15 << 20

// AttachmentSource produces the document attached to contract emails.
type AttachmentSource interface {
	Load(ctx context.Context) (*domain.Attachment, error)
}

// s3Getter is the subset of *s3.Client used for contracts stored in S3.
type s3Getter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ContractLoader loads the contract PDF from, in order: an s3:// URL, an
// http(s) URL, the configured path, or the first default path that exists.
type ContractLoader struct {
	url      string
	path     string
	filename string
	region   string

	http httpretry.HTTPDoer

	s3mu sync.Mutex
	s3   s3Getter

	searchPaths []string
}

// NewContractLoader builds a loader from cfg. A nil client gets a retrying
// client with a 30s timeout.
func NewContractLoader(cfg config.ContractConfig, client httpretry.HTTPDoer) *ContractLoader {
	if client == nil {
		client = httpretry.NewRetryClient(nil, 2)
	}
	filename := cfg.Filename
	if filename == "" {
		filename = "Contrato-Legacy-Camp.pdf"
	}
	return &ContractLoader{
		url:      cfg.URL,
		path:     cfg.Path,
		filename: filename,
		region:   cfg.S3Region,
		http:     client,
		searchPaths: []string{
			"assets/contrato-legacy-camp.pdf",
			"public/contrato-legacy-camp.pdf",
			"assets/contrato.pdf",
		},
	}
}

// Load implements AttachmentSource.
func (l *ContractLoader) Load(ctx context.Context) (*domain.Attachment, error) {
	var (
		data   []byte
		source string
		err    error
	)
	switch {
	case strings.HasPrefix(l.url, "s3://"):
		data, err = l.fromS3(ctx)
		source = l.url
	case l.url != "":
		data, err = l.fromHTTP(ctx)
		source = l.url
	default:
		data, source, err = l.fromDisk()
	}
	if err != nil {
		return nil, fmt.Errorf("load contract: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("load contract: %s is empty", source)
	}
	return &domain.Attachment{
		Filename:    l.filename,
		ContentType: "application/pdf",
		Content:     data,
		Source:      source,
	}, nil
}

func (l *ContractLoader) fromHTTP(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d", l.url, resp.StatusCode)
	}
	return readLimited(resp.Body)
}

func (l *ContractLoader) fromS3(ctx context.Context) ([]byte, error) {
	u, err := url.Parse(l.url)
	if err != nil {
		return nil, err
	}
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 url %q must be s3://bucket/key", l.url)
	}

	client, err := l.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", l.url, err)
	}
	defer out.Body.Close()
	return readLimited(out.Body)
}

func (l *ContractLoader) s3Client(ctx context.Context) (s3Getter, error) {
	l.s3mu.Lock()
	defer l.s3mu.Unlock()
	if l.s3 != nil {
		return l.s3, nil
	}
	region := l.region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	l.s3 = s3.NewFromConfig(awsCfg)
	return l.s3, nil
}

func (l *ContractLoader) fromDisk() ([]byte, string, error) {
	candidates := l.searchPaths
	if l.path != "" {
		candidates = append([]string{l.path}, candidates...)
	}
	for _, p := range candidates {
		data, err := os.ReadFile(filepath.Clean(p))
		if err == nil {
			return data, p, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, p, err
		}
	}
	log.Printf("[Contract] No contract file found in %v", candidates)
	return nil, "", fmt.Errorf("no contract file found (set CONTRACT_URL or CONTRACT_PATH)")
}

func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxAttachmentBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxAttachmentBytes {
		return nil, fmt.Errorf("contract exceeds %d bytes", maxAttachmentBytes)
	}
	return data, nil
}
