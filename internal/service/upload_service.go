package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// UploadService 保养附件上传，对象存到MinIO，返回的链接写入工单 attachment_link
type UploadService struct {
	client *minio.Client
	bucket string
}

// NewUploadService 创建附件上传服务
func NewUploadService(client *minio.Client, bucket string) *UploadService {
	return &UploadService{client: client, bucket: bucket}
}

// UploadAttachment 上传附件并返回对象链接
func (s *UploadService) UploadAttachment(ctx context.Context, reader io.Reader, fileName string, fileSize int64, contentType string) (string, error) {
	if s.client == nil {
		return "", NewValidationError("附件存储未配置")
	}

	objectName := fmt.Sprintf("maintenance/%s/%s%s",
		time.Now().Format("2006/01/02"),
		uuid.New().String()[:8],
		filepath.Ext(fileName),
	)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, fileSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传附件失败: %w", err)
	}
	return fmt.Sprintf("/%s/%s", s.bucket, objectName), nil
}

// DownloadAttachment 按对象名读取附件
func (s *UploadService) DownloadAttachment(ctx context.Context, objectName string) (io.ReadCloser, error) {
	if s.client == nil {
		return nil, NewValidationError("附件存储未配置")
	}
	object, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("读取附件失败: %w", err)
	}
	return object, nil
}
