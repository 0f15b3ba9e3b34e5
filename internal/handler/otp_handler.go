package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appErr "github.com/vouchersys/vouchergate/internal/pkg/errors"
	"github.com/vouchersys/vouchergate/internal/pkg/response"
	"github.com/vouchersys/vouchergate/internal/service"
)

type OTPHandler struct {
	challenges *service.ChallengeService
	deletions  *service.DeletionService
}

func NewOTPHandler(challenges *service.ChallengeService, deletions *service.DeletionService) *OTPHandler {
	return &OTPHandler{challenges: challenges, deletions: deletions}
}

type sendOTPRequest struct {
	VoucherID   string `json:"voucher_id"`
	VoucherType string `json:"voucher_type"`
	VoucherNo   string `json:"voucher_no"`
}

// Send issues a deletion code. Calling it again for the same voucher
// sends a fresh email and invalidates the previous code; resend rides on
// this same endpoint.
func (h *OTPHandler) Send(c *gin.Context) {
	var req sendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.VoucherID == "" || req.VoucherType == "" {
		response.Error(c, http.StatusBadRequest, "Voucher ID and type are required")
		return
	}
	kind, ok := parseKind(c, req.VoucherType)
	if !ok {
		return
	}
	res, err := h.challenges.Issue(c.Request.Context(), kind, req.VoucherID, req.VoucherNo)
	if err != nil {
		if errors.Is(err, appErr.ErrUpstream) {
			response.Error(c, http.StatusInternalServerError, "Failed to send OTP")
			return
		}
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"message":    "OTP sent successfully",
		"email":      res.Email,
		"expires_in": res.ExpiresIn,
	})
}

type verifyOTPRequest struct {
	VoucherID   string `json:"voucher_id"`
	VoucherType string `json:"voucher_type"`
	OTP         string `json:"otp"`
}

// Verify is advisory: it consumes the challenge and confirms the code is
// good, but the deletion endpoint re-validates on its own.
func (h *OTPHandler) Verify(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.VoucherID == "" || req.VoucherType == "" || req.OTP == "" {
		response.Error(c, http.StatusBadRequest, "All fields are required")
		return
	}
	kind, ok := parseKind(c, req.VoucherType)
	if !ok {
		return
	}
	ref, err := h.challenges.Verify(c.Request.Context(), kind, req.VoucherID, req.OTP)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"message": "OTP verified successfully. You can now delete the voucher.",
		"voucher": ref,
	})
}

type deleteVoucherRequest struct {
	VoucherID string `json:"voucher_id"`
	OTP       string `json:"otp"`
}

func (h *OTPHandler) Delete(c *gin.Context) {
	var req deleteVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.VoucherID == "" || req.OTP == "" {
		response.Error(c, http.StatusBadRequest, "Voucher ID and OTP are required")
		return
	}
	kind, ok := parseKind(c, c.Param("kind"))
	if !ok {
		return
	}
	raw, err := h.deletions.Delete(c.Request.Context(), kind, req.VoucherID, req.OTP)
	if err != nil {
		handleError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}
