package catalog

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLoader is a mock implementation of the Loader interface for testing.
type mockLoader struct {
	loadFunc func(ctx context.Context, path string) ([]Option, error)
}

func (m *mockLoader) Load(ctx context.Context, path string) ([]Option, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx, path)
	}
	return nil, errors.New("not implemented")
}

// fakeS3 serves objects from memory.
type fakeS3 struct {
	objects map[string][]byte
	gotKeys []string
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(params.Key)
	f.gotKeys = append(f.gotKeys, key)
	body, ok := f.objects[key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(body))}, nil
}

func TestS3Loader_Load(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{
		"catalog/options.csv.gz": gzipLines(t, "car_model,roadster,Roadster,900"),
	}}
	loader := newS3Loader(client, "atelier-catalog", zerolog.Nop())

	options, err := loader.Load(context.Background(), "catalog/options.csv.gz")
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, "roadster", options[0].ID)

	_, err = loader.Load(context.Background(), "catalog/missing.csv.gz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket=atelier-catalog")
}

func TestFallbackLoader(t *testing.T) {
	s3Options := []Option{{Kind: KindCarModel, ID: "from-s3"}}
	localOptions := []Option{{Kind: KindCarModel, ID: "from-disk"}}

	tests := []struct {
		name      string
		s3Loader  Loader
		s3Enabled bool
		fileErr   error
		expected  string
		wantErr   bool
	}{
		{
			name: "S3 success uses prefixed key",
			s3Loader: &mockLoader{loadFunc: func(ctx context.Context, path string) ([]Option, error) {
				assert.Equal(t, "catalog/options.csv.gz", path)
				return s3Options, nil
			}},
			s3Enabled: true,
			expected:  "from-s3",
		},
		{
			name: "S3 failure falls back to disk",
			s3Loader: &mockLoader{loadFunc: func(ctx context.Context, path string) ([]Option, error) {
				return nil, errors.New("S3 connection failed")
			}},
			s3Enabled: true,
			expected:  "from-disk",
		},
		{
			name: "S3 disabled",
			s3Loader: &mockLoader{loadFunc: func(ctx context.Context, path string) ([]Option, error) {
				t.Error("S3 loader should not be called when S3 is disabled")
				return nil, errors.New("should not be called")
			}},
			expected: "from-disk",
		},
		{
			name:      "S3 loader nil",
			s3Enabled: true,
			expected:  "from-disk",
		},
		{
			name: "Both fail",
			s3Loader: &mockLoader{loadFunc: func(ctx context.Context, path string) ([]Option, error) {
				return nil, errors.New("S3 error")
			}},
			s3Enabled: true,
			fileErr:   errors.New("file not found"),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileLoader := &mockLoader{loadFunc: func(ctx context.Context, path string) ([]Option, error) {
				assert.Equal(t, "options.csv.gz", path, "local path should not have prefix")
				if tt.fileErr != nil {
					return nil, tt.fileErr
				}
				return localOptions, nil
			}}

			fallback := NewFallbackLoader(tt.s3Loader, fileLoader, "catalog/", tt.s3Enabled, zerolog.Nop())

			options, err := fallback.Load(context.Background(), "options.csv.gz")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, options, 1)
			assert.Equal(t, tt.expected, options[0].ID)
		})
	}
}
