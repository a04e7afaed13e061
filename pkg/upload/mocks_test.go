package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
)

// --- Mocks ---

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00\x90w\x53\xde")

type mockS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	m.input = params
	if params.Body != nil {
		m.body, _ = io.ReadAll(params.Body)
	}
	if m.err != nil {
		return nil, m.err
	}
	return &s3.PutObjectOutput{}, nil
}

type mockPresigner struct {
	key string
}

func (m *mockPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	m.key = *params.Key
	return &v4.PresignedHTTPRequest{URL: "https://signed.example/" + *params.Key + "?X-Amz-Signature=abc", Method: http.MethodGet}, nil
}

type mockMinio struct {
	exists      bool
	madeBucket  string
	putBucket   string
	putKey      string
	putSize     int64
	contentType string
}

func (m *mockMinio) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return m.exists, nil
}

func (m *mockMinio) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	m.madeBucket = bucketName
	return nil
}

func (m *mockMinio) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	m.putBucket = bucketName
	m.putKey = objectName
	m.putSize = objectSize
	m.contentType = opts.ContentType
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: objectSize}, nil
}

func (m *mockMinio) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error) {
	if expires <= 0 {
		return nil, errors.New("invalid expiry")
	}
	return url.Parse("https://minio.example/" + bucketName + "/" + objectName + "?sig=1")
}

type mockDoer struct {
	req  *http.Request
	body []byte
	resp []byte
	err  error
}

func (m *mockDoer) DoRequest(req *http.Request) ([]byte, error) {
	m.req = req
	if req.Body != nil {
		m.body, _ = io.ReadAll(req.Body)
	}
	return m.resp, m.err
}
