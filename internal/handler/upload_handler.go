package handler

import (
	"io"
	"path"
	"strings"

	"github.com/donkilove/ZYKJ-MES/internal/service"
	"github.com/gin-gonic/gin"
)

// UploadHandler 保养附件处理器
type UploadHandler struct {
	svc *service.UploadService
}

// NewUploadHandler 创建附件处理器
func NewUploadHandler(svc *service.UploadService) *UploadHandler {
	return &UploadHandler{svc: svc}
}

// Upload 上传保养附件，返回可写入工单的附件链接
func (h *UploadHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "File is required: "+err.Error())
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	link, err := h.svc.UploadAttachment(c.Request.Context(), file, header.Filename, header.Size, contentType)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Created(c, gin.H{"attachment_link": link})
}

// Download 下载保养附件
func (h *UploadHandler) Download(c *gin.Context) {
	objectName := strings.TrimPrefix(c.Param("object"), "/")
	if objectName == "" {
		BadRequest(c, "Object name is required")
		return
	}

	reader, err := h.svc.DownloadAttachment(c.Request.Context(), objectName)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", "attachment; filename="+path.Base(objectName))
	io.Copy(c.Writer, reader)
}
