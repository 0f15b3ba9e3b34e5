package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/vouchersys/vouchergate/internal/ledger"
	"github.com/vouchersys/vouchergate/internal/model"
	appErr "github.com/vouchersys/vouchergate/internal/pkg/errors"
	"github.com/vouchersys/vouchergate/internal/pkg/response"
)

// handleError translates service failures into the wire contract. The
// three challenge failures share a 401 status and differ only by message.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))

	var upstream *ledger.UpstreamError
	if errors.As(err, &upstream) {
		body := gin.H{"message": upstream.Message}
		if len(upstream.Errors) > 0 {
			body["errors"] = upstream.Errors
		}
		c.JSON(upstream.StatusCode, body)
		return
	}
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusUnauthorized, "OTP not found. Please request a new OTP.")
	case errors.Is(err, appErr.ErrExpired):
		response.Error(c, http.StatusUnauthorized, "OTP has expired. Please request a new OTP.")
	case errors.Is(err, appErr.ErrMismatch):
		response.Error(c, http.StatusUnauthorized, "Invalid OTP. Please try again.")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, "invalid request")
	case errors.Is(err, appErr.ErrConfig):
		response.Error(c, http.StatusInternalServerError, "Server configuration error")
	default:
		response.Error(c, http.StatusInternalServerError, "Internal server error")
	}
}

func parseKind(c *gin.Context, raw string) (model.VoucherKind, bool) {
	kind, ok := model.ParseVoucherKind(raw)
	if !ok {
		response.Error(c, http.StatusBadRequest, "voucher type must be cash or cheque")
		return "", false
	}
	return kind, true
}
