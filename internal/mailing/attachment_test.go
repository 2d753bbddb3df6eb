package mailing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/legacycamp/camp-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	bucket, key string
	body        string
	err         error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = aws.ToString(in.Bucket), aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestContractLoaderFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contrato.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 local"), 0o600))

	l := NewContractLoader(config.ContractConfig{Path: path}, nil)
	att, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Contrato-Legacy-Camp.pdf", att.Filename)
	assert.Equal(t, "application/pdf", att.ContentType)
	assert.Equal(t, "%PDF-1.4 local", string(att.Content))
	assert.Equal(t, path, att.Source)
}

func TestContractLoaderMissingFile(t *testing.T) {
	l := NewContractLoader(config.ContractConfig{Path: filepath.Join(t.TempDir(), "nope.pdf")}, nil)
	l.searchPaths = nil
	_, err := l.Load(context.Background())
	assert.Error(t, err)
}

func TestContractLoaderFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/contrato.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("%PDF-1.4 remote"))
	}))
	defer srv.Close()

	l := NewContractLoader(config.ContractConfig{URL: srv.URL + "/contrato.pdf", Filename: "Contrato.pdf"}, srv.Client())
	att, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Contrato.pdf", att.Filename)
	assert.Equal(t, "%PDF-1.4 remote", string(att.Content))

	l = NewContractLoader(config.ContractConfig{URL: srv.URL + "/missing.pdf"}, srv.Client())
	_, err = l.Load(context.Background())
	assert.Error(t, err)
}

func TestContractLoaderFromS3(t *testing.T) {
	f := &fakeS3{body: "%PDF-1.4 s3"}
	l := NewContractLoader(config.ContractConfig{URL: "s3://camp-docs/contratos/2026.pdf"}, nil)
	l.s3 = f

	att, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "camp-docs", f.bucket)
	assert.Equal(t, "contratos/2026.pdf", f.key)
	assert.Equal(t, "%PDF-1.4 s3", string(att.Content))

	l.s3 = &fakeS3{err: errors.New("AccessDenied")}
	_, err = l.Load(context.Background())
	assert.Error(t, err)
}
