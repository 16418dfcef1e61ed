package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tencentyun/cos-go-sdk-v5"
)

type COSConfig struct {
	// https://<bucket>-<appid>.cos.<region>.myqcloud.com
	BucketURL string `env:"COS_BUCKET_URL"`
	SecretID  string `env:"COS_SECRET_ID"`
	SecretKey string `env:"COS_SECRET_KEY"`
}

// COSStore stores objects in a Tencent Cloud COS bucket.
type COSStore struct {
	base string
	cli  *cos.Client
}

func NewCOSStore(cfg COSConfig) (*COSStore, error) {
	if cfg.BucketURL == "" {
		return nil, errors.New("cos store requires a bucket url")
	}
	u, err := url.Parse(cfg.BucketURL)
	if err != nil {
		return nil, err
	}
	cli := cos.NewClient(&cos.BaseURL{BucketURL: u}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})
	return &COSStore{base: strings.TrimRight(cfg.BucketURL, "/"), cli: cli}, nil
}

func (s *COSStore) Write(ctx context.Context, key string, r io.Reader, contentType string) error {
	opt := &cos.ObjectPutOptions{ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{ContentType: contentType}}
	_, err := s.cli.Object.Put(ctx, key, r, opt)
	return err
}

func (s *COSStore) Read(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	resp, err := s.cli.Object.Get(ctx, key, nil)
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

func (s *COSStore) Delete(ctx context.Context, key string) error {
	_, err := s.cli.Object.Delete(ctx, key)
	return err
}

func (s *COSStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.cli.Object.IsExist(ctx, key)
}

func (s *COSStore) PublicURL(key string) string {
	return s.base + "/" + key
}
