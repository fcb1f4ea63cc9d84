package service

import (
	"context"
	"errors"
	"io"
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/util"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// StorageProvider 定义通用存储接口
type StorageProvider interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// LocalStorageProvider 本地存储实现，文件通过 /uploads 静态路由访问
type LocalStorageProvider struct {
	Root string
}

// path 先按绝对路径清理，key 不能跳出 Root
func (p *LocalStorageProvider) path(key string) (string, error) {
	if key == "" {
		return "", errors.New("empty storage key")
	}
	return filepath.Join(p.Root, filepath.Clean("/"+key)), nil
}

func (p *LocalStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	dst, err := p.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, reader)
	return err
}

func (p *LocalStorageProvider) Delete(ctx context.Context, key string) error {
	dst, err := p.path(key)
	if err != nil {
		return err
	}
	return os.Remove(dst)
}

func (p *LocalStorageProvider) URL(ctx context.Context, key string) (string, error) {
	return "/uploads/" + strings.TrimPrefix(key, "/"), nil
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Bucket string
	Client *minio.Client
	Expiry time.Duration
}

func NewMinioStorageProvider(ctx context.Context, cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &MinioStorageProvider{Bucket: cfg.MinioBucket, Client: client, Expiry: 15 * time.Minute}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := p.Client.PutObject(ctx, p.Bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (p *MinioStorageProvider) Delete(ctx context.Context, key string) error {
	return p.Client.RemoveObject(ctx, p.Bucket, key, minio.RemoveObjectOptions{})
}

// URL 返回限时的预签名下载地址
func (p *MinioStorageProvider) URL(ctx context.Context, key string) (string, error) {
	params := url.Values{}
	params.Set("response-content-disposition", "attachment; filename=\""+filepath.Base(key)+"\"")
	u, err := p.Client.PresignedGetObject(ctx, p.Bucket, key, p.Expiry, params)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// StorageService 存储服务
type StorageService struct {
	Provider StorageProvider
}

// NewStorageService minio 不可用时返回错误，由调用方决定是否降级
func NewStorageService(ctx context.Context, cfg *config.Config) (*StorageService, error) {
	switch cfg.Storage.Type {
	case util.StorageMinio:
		p, err := NewMinioStorageProvider(ctx, &cfg.Storage)
		if err != nil {
			return nil, err
		}
		return &StorageService{Provider: p}, nil
	default:
		return &StorageService{Provider: &LocalStorageProvider{Root: cfg.Storage.LocalPath}}, nil
	}
}

func (s *StorageService) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	return s.Provider.Upload(ctx, key, reader, size, contentType)
}

func (s *StorageService) Delete(ctx context.Context, key string) error {
	return s.Provider.Delete(ctx, key)
}

func (s *StorageService) URL(ctx context.Context, key string) (string, error) {
	return s.Provider.URL(ctx, key)
}
