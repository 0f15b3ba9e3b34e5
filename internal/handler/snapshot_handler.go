package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/vouchersys/vouchergate/internal/filestore"
	"github.com/vouchersys/vouchergate/internal/pkg/response"
)

// SnapshotHandler accepts the PNG a client rasterized from a voucher
// layout and keeps it alongside the record for later reference.
type SnapshotHandler struct {
	store filestore.Store
}

func NewSnapshotHandler(store filestore.Store) *SnapshotHandler {
	return &SnapshotHandler{store: store}
}

var snapshotExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
}

func (h *SnapshotHandler) Upload(c *gin.Context) {
	kind, ok := parseKind(c, c.Param("kind"))
	if !ok {
		return
	}
	id := c.Param("id")
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "file is required")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "failed to open file")
		return
	}
	defer opened.Close()

	contentType, err := sniffContentType(opened)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "failed to read file")
		return
	}
	ext, ok := snapshotExtensions[contentType]
	if !ok {
		response.Error(c, http.StatusBadRequest, "snapshot must be a png or jpeg image")
		return
	}
	key := string(kind) + "_" + id + "_" + randomHex(8) + ext
	if err := h.store.Save(c.Request.Context(), key, opened, file.Size); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to store snapshot")
		return
	}
	response.Success(c, gin.H{"key": key, "content_type": contentType})
}

func (h *SnapshotHandler) Get(c *gin.Context) {
	if h.store.Type() != "local" {
		c.Status(http.StatusNotFound)
		return
	}
	key := c.Param("key")
	file, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	defer file.Close()
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = file.Seek(0, io.SeekStart)
	_, _ = io.Copy(c.Writer, file)
}

func sniffContentType(file filestore.ReadSeekCloser) (string, error) {
	buf := make([]byte, 512)
	read, err := file.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:read]), nil
}

func randomHex(size int) string {
	buf := make([]byte, size)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
