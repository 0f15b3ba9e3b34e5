package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/vouchersys/vouchergate/internal/ledger"
	"github.com/vouchersys/vouchergate/internal/pkg/response"
)

const (
	maxImageBytes     = 20 << 20
	imageCacheControl = "public, max-age=31536000, immutable"
)

type cachedImage struct {
	contentType string
	body        []byte
}

// ImageHandler serves remote images through the gateway so the browser's
// canvas export never touches a cross-origin URL.
type ImageHandler struct {
	client *http.Client
	ledger *ledger.Client
	cache  *expirable.LRU[string, cachedImage]
}

func NewImageHandler(client *http.Client, ledgerClient *ledger.Client, cacheEntries int, cacheTTL time.Duration) *ImageHandler {
	return &ImageHandler{
		client: client,
		ledger: ledgerClient,
		cache:  expirable.NewLRU[string, cachedImage](cacheEntries, nil, cacheTTL),
	}
}

func (h *ImageHandler) Proxy(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		response.Error(c, http.StatusBadRequest, "Image URL is missing")
		return
	}
	if img, ok := h.cache.Get(target); ok {
		c.Header("Cache-Control", imageCacheControl)
		c.Data(http.StatusOK, img.contentType, img.body)
		return
	}
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, target, nil)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "Image URL is invalid")
		return
	}
	resp, err := h.client.Do(req)
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Error("proxy image fetch failed",
			zap.String("url", target), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "Failed to fetch image")
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		response.Error(c, http.StatusInternalServerError, "Failed to fetch image: "+resp.Status)
		return
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "Failed to read image")
		return
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.cache.Add(target, cachedImage{contentType: contentType, body: body})
	c.Header("Cache-Control", imageCacheControl)
	c.Data(http.StatusOK, contentType, body)
}

// Signature streams signature images hosted next to the record store API.
func (h *ImageHandler) Signature(c *gin.Context) {
	filename := c.Param("filename")
	if filename == "" {
		response.Error(c, http.StatusBadRequest, "filename is required")
		return
	}
	resp, err := h.ledger.OpenStatic(c.Request.Context(), "signatures", filename)
	if err != nil {
		handleError(c, err)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		c.Status(resp.StatusCode)
		return
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", imageCacheControl)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, resp.Body)
}
