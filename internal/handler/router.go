package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vouchersys/vouchergate/internal/middleware"
)

type RouterDeps struct {
	OTP       *OTPHandler
	Vouchers  *VoucherHandler
	Images    *ImageHandler
	Snapshots *SnapshotHandler

	// SendCooldown throttles repeated OTP issuance per client; zero
	// disables the throttle (resend semantics stay untouched).
	SendCooldown time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/otp/send", middleware.RateLimit(deps.SendCooldown), deps.OTP.Send)
	api.POST("/otp/verify", deps.OTP.Verify)
	api.POST("/admin/:kind/delete", deps.OTP.Delete)

	api.GET("/vouchers/:kind", deps.Vouchers.List)
	api.POST("/vouchers/:kind", deps.Vouchers.Create)
	api.GET("/vouchers/:kind/:id", deps.Vouchers.Get)
	api.PUT("/vouchers/:kind/:id", deps.Vouchers.Update)
	api.POST("/vouchers/:kind/:id", deps.Vouchers.UpdateMultipart)

	api.GET("/images/proxy", deps.Images.Proxy)
	api.GET("/signatures/:filename", deps.Images.Signature)
	api.GET("/cheque-signatures/:filename", deps.Images.Signature)

	if deps.Snapshots != nil {
		api.POST("/vouchers/:kind/:id/snapshot", deps.Snapshots.Upload)
		api.GET("/snapshots/:key", deps.Snapshots.Get)
	}
}
