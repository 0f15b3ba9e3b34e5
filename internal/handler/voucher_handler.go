package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vouchersys/vouchergate/internal/ledger"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// VoucherHandler forwards CRUD calls to the record store unchanged; the
// gateway adds nothing to voucher payloads.
type VoucherHandler struct {
	ledger *ledger.Client
}

func NewVoucherHandler(client *ledger.Client) *VoucherHandler {
	return &VoucherHandler{ledger: client}
}

func (h *VoucherHandler) List(c *gin.Context) {
	kind, ok := parseKind(c, c.Param("kind"))
	if !ok {
		return
	}
	page := atoiDefault(c.Query("page"), 1)
	perPage := atoiDefault(c.Query("per_page"), defaultPerPage)
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	raw, err := h.ledger.ListVouchers(c.Request.Context(), kind, page, perPage)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

func (h *VoucherHandler) Get(c *gin.Context) {
	kind, ok := parseKind(c, c.Param("kind"))
	if !ok {
		return
	}
	raw, err := h.ledger.GetVoucher(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

// Update forwards a JSON update (status changes, field edits).
func (h *VoucherHandler) Update(c *gin.Context) {
	kind, ok := parseKind(c, c.Param("kind"))
	if !ok {
		return
	}
	raw, err := h.ledger.UpdateVoucher(c.Request.Context(), kind, c.Param("id"), c.Request.Body)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

// UpdateMultipart forwards a multipart form; the record store treats a
// POST carrying _method=PUT as an update with file attachments.
func (h *VoucherHandler) UpdateMultipart(c *gin.Context) {
	kind, ok := parseKind(c, c.Param("kind"))
	if !ok {
		return
	}
	// the raw header keeps the boundary parameter; gin's ContentType()
	// strips it and the record store could not parse the form without it
	raw, err := h.ledger.UpdateVoucherMultipart(c.Request.Context(), kind, c.Param("id"), c.GetHeader("Content-Type"), c.Request.Body)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

func (h *VoucherHandler) Create(c *gin.Context) {
	kind, ok := parseKind(c, c.Param("kind"))
	if !ok {
		return
	}
	var body io.Reader = c.Request.Body
	raw, err := h.ledger.CreateVoucher(c.Request.Context(), kind, c.GetHeader("Content-Type"), body)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

func atoiDefault(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
