package fixture

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"testing"

	"fahndungsportal/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockObjectGetter is a mock implementation of objectGetter.
type mockObjectGetter struct {
	mock.Mock
}

func (m *mockObjectGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, aws.ToString(params.Bucket), aws.ToString(params.Key))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.GetObjectOutput), args.Error(1)
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestS3Loader_Load(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name     string
		key      string
		body     []byte
		encoding *string
	}{
		{name: "Plain JSON", key: "fallback/fahndungen.json", body: []byte(testDataset)},
		{name: "Gzip by suffix", key: "fallback/fahndungen.json.gz", body: gzipBytes(t, testDataset)},
		{name: "Gzip by content encoding", key: "fallback/fahndungen.json", body: gzipBytes(t, testDataset), encoding: aws.String("gzip")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mockObjectGetter)
			client.On("GetObject", mock.Anything, "portal-data", tt.key).Return(&s3.GetObjectOutput{
				Body:            io.NopCloser(bytes.NewReader(tt.body)),
				ContentEncoding: tt.encoding,
			}, nil)

			loader := newS3Loader(client, "portal-data", logger)

			items, err := loader.Load(context.Background(), tt.key)
			require.NoError(t, err)
			assert.Len(t, items, 2)
			client.AssertExpectations(t)
		})
	}
}

func TestS3Loader_Load_GetObjectFails(t *testing.T) {
	client := new(mockObjectGetter)
	client.On("GetObject", mock.Anything, "portal-data", "missing.json").Return(nil, errors.New("NoSuchKey"))

	loader := newS3Loader(client, "portal-data", zerolog.Nop())

	items, err := loader.Load(context.Background(), "missing.json")
	assert.Error(t, err)
	assert.Nil(t, items)
	assert.Contains(t, err.Error(), "NoSuchKey")
}

func datasetLoader(items []model.FahndungItem, err error, check func(key string)) *mockLoader {
	return &mockLoader{loadFunc: func(ctx context.Context, key string) ([]model.FahndungItem, error) {
		if check != nil {
			check(key)
		}
		return items, err
	}}
}

func TestFallbackLoader_S3Success(t *testing.T) {
	logger := zerolog.Nop()

	s3Items := []model.FahndungItem{{ID: 1, Title: "aus S3"}}
	s3Loader := datasetLoader(s3Items, nil, func(key string) {
		assert.Equal(t, "fallback/data.json", key, "S3 key should have prefix")
	})
	fileLoader := datasetLoader(nil, errors.New("should not be called"), func(string) {
		t.Error("file loader should not be called when S3 succeeds")
	})

	fallback := NewFallbackLoader(s3Loader, fileLoader, "fallback/", true, logger)

	items, err := fallback.Load(context.Background(), "data.json")
	require.NoError(t, err)
	assert.Equal(t, s3Items, items)
}

func TestFallbackLoader_S3FailsFallsBackToLocal(t *testing.T) {
	logger := zerolog.Nop()

	localItems := []model.FahndungItem{{ID: 2, Title: "lokal"}}
	s3Loader := datasetLoader(nil, errors.New("S3 connection failed"), nil)
	fileLoader := datasetLoader(localItems, nil, func(key string) {
		assert.Equal(t, "data.json", key, "local file path should not have prefix")
	})

	fallback := NewFallbackLoader(s3Loader, fileLoader, "fallback/", true, logger)

	items, err := fallback.Load(context.Background(), "data.json")
	require.NoError(t, err)
	assert.Equal(t, localItems, items)
}

func TestFallbackLoader_LocalOnly(t *testing.T) {
	logger := zerolog.Nop()
	localItems := []model.FahndungItem{{ID: 3, Title: "lokal"}}

	t.Run("S3 disabled", func(t *testing.T) {
		s3Loader := datasetLoader(nil, nil, func(string) {
			t.Error("S3 loader should not be called when S3 is disabled")
		})
		fallback := NewFallbackLoader(s3Loader, datasetLoader(localItems, nil, nil), "fallback/", false, logger)

		items, err := fallback.Load(context.Background(), "data.json")
		require.NoError(t, err)
		assert.Equal(t, localItems, items)
	})

	t.Run("S3 loader nil", func(t *testing.T) {
		fallback := NewFallbackLoader(nil, datasetLoader(localItems, nil, nil), "fallback/", true, logger)

		items, err := fallback.Load(context.Background(), "data.json")
		require.NoError(t, err)
		assert.Equal(t, localItems, items)
	})
}

func TestFallbackLoader_BothFail(t *testing.T) {
	fallback := NewFallbackLoader(
		datasetLoader(nil, errors.New("S3 error"), nil),
		datasetLoader(nil, errors.New("file not found"), nil),
		"fallback/", true, zerolog.Nop(),
	)

	items, err := fallback.Load(context.Background(), "data.json")
	assert.Error(t, err)
	assert.Nil(t, items)
	assert.Contains(t, err.Error(), "file not found")
}
