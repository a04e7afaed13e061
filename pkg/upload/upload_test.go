package upload

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploaderFunc(t *testing.T) {
	var got []byte
	var u Uploader = UploaderFunc(func(ctx context.Context, data []byte) (string, error) {
		got = data
		return "mock://upload", nil
	})

	url, err := u.Upload(context.Background(), []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, "mock://upload", url)
	assert.Equal(t, []byte("payload"), got)
}

func TestObjectKey(t *testing.T) {
	key, contentType := objectKey("grids/2026", pngHeader)
	assert.True(t, strings.HasPrefix(key, "grids/2026/grid-"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.Equal(t, "image/png", contentType)

	other, _ := objectKey("grids/2026", pngHeader)
	assert.NotEqual(t, key, other, "キーは毎回ユニークであるべき")

	jpgKey, jpgType := objectKey("", []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"))
	assert.True(t, strings.HasSuffix(jpgKey, ".jpg"), jpgKey)
	assert.Equal(t, "image/jpeg", jpgType)
}

func TestS3Uploader_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("エンドポイントとバケットから URL を組み立てる", func(t *testing.T) {
		client := &mockS3{}
		u := NewS3UploaderWithClient(client, nil, S3Config{Endpoint: "http://localhost:9000/", Bucket: "grids", Prefix: "in"})

		url, err := u.Upload(ctx, pngHeader)
		require.NoError(t, err)
		require.NotNil(t, client.input)
		assert.Equal(t, "grids", *client.input.Bucket)
		assert.Equal(t, "image/png", *client.input.ContentType)
		assert.Equal(t, pngHeader, client.body)
		assert.Equal(t, "http://localhost:9000/grids/"+*client.input.Key, url)
	})

	t.Run("PublicBaseURL を優先する", func(t *testing.T) {
		client := &mockS3{}
		u := NewS3UploaderWithClient(client, nil, S3Config{Bucket: "grids", PublicBaseURL: "https://cdn.example/"})

		url, err := u.Upload(ctx, pngHeader)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example/"+*client.input.Key, url)
	})

	t.Run("エンドポイント未指定なら AWS の仮想ホスト形式", func(t *testing.T) {
		client := &mockS3{}
		u := NewS3UploaderWithClient(client, nil, S3Config{Bucket: "grids", Region: "ap-northeast-1"})

		url, err := u.Upload(ctx, pngHeader)
		require.NoError(t, err)
		assert.Equal(t, "https://grids.s3.ap-northeast-1.amazonaws.com/"+*client.input.Key, url)
	})

	t.Run("PresignExpiry があれば署名付き URL を返す", func(t *testing.T) {
		client := &mockS3{}
		presigner := &mockPresigner{}
		u := NewS3UploaderWithClient(client, presigner, S3Config{Bucket: "grids", PresignExpiry: time.Hour})

		url, err := u.Upload(ctx, pngHeader)
		require.NoError(t, err)
		assert.Equal(t, *client.input.Key, presigner.key)
		assert.Contains(t, url, "X-Amz-Signature")
	})

	t.Run("PutObject の失敗を返す", func(t *testing.T) {
		putErr := errors.New("access denied")
		u := NewS3UploaderWithClient(&mockS3{err: putErr}, nil, S3Config{Bucket: "grids"})

		_, err := u.Upload(ctx, pngHeader)
		assert.ErrorIs(t, err, putErr)
	})
}

func TestNewS3Uploader_RequiresBucket(t *testing.T) {
	_, err := NewS3Uploader(context.Background(), S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestMinioUploader_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("バケットがなければ作成してからアップロードする", func(t *testing.T) {
		client := &mockMinio{}
		u := NewMinioUploaderWithClient(client, MinioConfig{Endpoint: "minio:9000", Bucket: "grids"})

		url, err := u.Upload(ctx, pngHeader)
		require.NoError(t, err)
		assert.Equal(t, "grids", client.madeBucket)
		assert.Equal(t, int64(len(pngHeader)), client.putSize)
		assert.Equal(t, "image/png", client.contentType)
		assert.Equal(t, "http://minio:9000/grids/"+client.putKey, url)
	})

	t.Run("SSL と署名付き URL", func(t *testing.T) {
		client := &mockMinio{exists: true}
		u := NewMinioUploaderWithClient(client, MinioConfig{Endpoint: "minio:9000", Bucket: "grids", UseSSL: true, PresignExpiry: time.Minute})

		url, err := u.Upload(ctx, pngHeader)
		require.NoError(t, err)
		assert.Empty(t, client.madeBucket)
		assert.Equal(t, "https://minio.example/grids/"+client.putKey+"?sig=1", url)
	})
}

func TestHTTPUploader_Upload(t *testing.T) {
	ctx := context.Background()

	t.Run("ヘッダーを付けて送信し URL を返す", func(t *testing.T) {
		doer := &mockDoer{resp: []byte(`{"id":"img-1","url":"http://example.com/output.png"}`)}
		u, err := NewHTTPUploader(doer, HTTPConfig{
			Endpoint:    "http://localhost:8080/upload",
			APIKey:      "api-key",
			BearerToken: "token",
			Headers:     map[string]string{"X-Test": "1"},
		})
		require.NoError(t, err)

		url, err := u.Upload(ctx, pngHeader)
		require.NoError(t, err)
		assert.Equal(t, "http://example.com/output.png", url)

		require.NotNil(t, doer.req)
		assert.Equal(t, http.MethodPost, doer.req.Method)
		assert.Equal(t, "api-key", doer.req.Header.Get("X-API-Key"))
		assert.Equal(t, "Bearer token", doer.req.Header.Get("Authorization"))
		assert.Equal(t, "1", doer.req.Header.Get("X-Test"))
		assert.Equal(t, "image/png", doer.req.Header.Get("Content-Type"))
		assert.Equal(t, pngHeader, doer.body)
	})

	t.Run("id か url がなければエラー", func(t *testing.T) {
		doer := &mockDoer{resp: []byte(`{"id":"img-1"}`)}
		u, _ := NewHTTPUploader(doer, HTTPConfig{Endpoint: "http://localhost:8080/upload"})

		_, err := u.Upload(ctx, pngHeader)
		assert.EqualError(t, err, "upload response missing id or url")
	})

	t.Run("送信エラーを返す", func(t *testing.T) {
		sendErr := errors.New("status 500")
		u, _ := NewHTTPUploader(&mockDoer{err: sendErr}, HTTPConfig{Endpoint: "http://localhost:8080/upload"})

		_, err := u.Upload(ctx, pngHeader)
		assert.ErrorIs(t, err, sendErr)
	})

	t.Run("必須設定の確認", func(t *testing.T) {
		_, err := NewHTTPUploader(nil, HTTPConfig{Endpoint: "x"})
		assert.Error(t, err)
		_, err = NewHTTPUploader(&mockDoer{}, HTTPConfig{})
		assert.Error(t, err)
	})
}
