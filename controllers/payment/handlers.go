package paymentControllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/apperr"
	"github.com/Nnamdionwukwe/gestechbackend-sub000/internal/paystack"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GET /user/payments/verify/:reference
// Called when the payer's browser returns from the gateway. A timeout or
// gateway error surfaces as "verification pending, retry", never as a
// silent failure.
func VerifyHandler(db *gorm.DB, gateway paystack.Gateway, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reference := c.Param("reference")
		if reference == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference is required"})
			return
		}

		verified, err := gateway.Verify(c.Request.Context(), reference)
		if err != nil {
			logger.Warn("gateway verification unavailable",
				zap.String("reference", reference), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{
				"status":  "pending",
				"message": "verification is pending, please retry shortly",
			})
			return
		}

		result, err := ApplyOutcome(db, logger, reference, Outcome{
			Status:      verified.Status,
			AmountMinor: verified.AmountMinor,
			PaidAt:      verified.PaidAt,
			Channel:     verified.Channel,
			Reason:      verified.GatewayResponse,
			Raw:         verified.Raw,
		})
		if err != nil {
			apperr.Respond(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"payment_status": result.Order.PaymentStatus,
			"order_status":   result.Order.Status,
			"message":        result.Message,
		})
	}
}

// webhookEvent is the gateway's webhook body. The signature middleware has
// already authenticated the raw bytes before this is parsed.
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference       string `json:"reference"`
		Status          string `json:"status"`
		Amount          int64  `json:"amount"`
		PaidAt          string `json:"paid_at"`
		Channel         string `json:"channel"`
		GatewayResponse string `json:"gateway_response"`
	} `json:"data"`
}

// POST /payments/webhook
// Always acknowledged with 200 once authenticated, even for unknown
// references, so the provider stops retrying deliveries we cannot use.
func WebhookHandler(db *gorm.DB, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
			return
		}

		var event webhookEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			logger.Warn("unparseable webhook payload", zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"message": "ignored"})
			return
		}
		if event.Data.Reference == "" {
			c.JSON(http.StatusOK, gin.H{"message": "ignored"})
			return
		}

		outcome := Outcome{
			AmountMinor: event.Data.Amount,
			Channel:     event.Data.Channel,
			Reason:      event.Data.GatewayResponse,
			Raw:         string(raw),
		}
		switch {
		case event.Event == "charge.success" || event.Data.Status == "success":
			outcome.Status = paystack.OutcomeSuccess
		case event.Event == "charge.failed" || event.Data.Status == "failed" || event.Data.Status == "abandoned":
			outcome.Status = paystack.OutcomeFailed
		default:
			outcome.Status = paystack.OutcomePending
		}
		if event.Data.PaidAt != "" {
			if ts, err := time.Parse(time.RFC3339, event.Data.PaidAt); err == nil {
				outcome.PaidAt = ts
			}
		}

		result, err := ApplyOutcome(db, logger, event.Data.Reference, outcome)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				// The order may simply not exist yet due to delivery ordering;
				// the provider's retry mechanism covers that case.
				logger.Warn("webhook for unrecognized reference",
					zap.String("reference", event.Data.Reference))
				c.JSON(http.StatusOK, gin.H{"message": "reference not recognized"})
				return
			}
			logger.Error("webhook reconciliation failed",
				zap.String("reference", event.Data.Reference), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": result.Message})
	}
}
