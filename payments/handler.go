package payments

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type paymentsHandler struct {
	client *Client
}

func NewPaymentsHandler(client *Client) *paymentsHandler {
	return &paymentsHandler{client: client}
}

func (ph *paymentsHandler) CheckoutHandler(ctx *gin.Context) {
	id := ctx.GetString("id")
	if id == "" {
		ctx.String(http.StatusUnauthorized, "unauthenticated")
		return
	}

	var body struct {
		PriceId string `json:"priceId"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil || body.PriceId == "" {
		ctx.String(http.StatusBadRequest, "bad-request-format")
		return
	}

	redirectURL, err := ph.client.CreateCheckoutSession(ctx.Request.Context(), id, body.PriceId)
	if err != nil {
		ctx.String(http.StatusBadGateway, "checkout-failed")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"url": redirectURL})
}
