package gateway

import (
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/service"
	"github.com/gin-gonic/gin"
)

const headerIdempotencyKey = "Idempotency-Key"

type placeOrderRequest struct {
	Items          []service.OrderItemInput `json:"items"`
	Amount         float64                  `json:"amount"`
	Address        models.Address           `json:"address"`
	IdempotencyKey string                   `json:"idempotencyKey"`
}

type verifyRequest struct {
	Reference string `json:"reference"`
}

type statusRequest struct {
	OrderID string             `json:"orderId"`
	Status  models.OrderStatus `json:"status"`
}

type historyRequest struct {
	OrderID string `json:"orderId"`
}

func (g *Gateway) bindOrder(c *gin.Context) (service.PlaceOrderInput, bool) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return service.PlaceOrderInput{}, false
	}

	key := req.IdempotencyKey
	if key == "" {
		key = c.GetHeader(headerIdempotencyKey)
	}
	return service.PlaceOrderInput{
		AccountID:      accountID(c),
		Items:          req.Items,
		Amount:         req.Amount,
		Address:        req.Address,
		IdempotencyKey: key,
	}, true
}

// @Summary   Place a cash on delivery order
// @Tags      order
// @Accept    json
// @Produce   json
// @Security  Bearer
// @Param     body  body  placeOrderRequest  true  "order"
// @Param     Idempotency-Key  header  string  false  "replay protection key"
// @Success   200  {object}  map[string]interface{}
// @Router    /api/order/place [post]
func (g *Gateway) placeOrder(c *gin.Context) {
	input, bound := g.bindOrder(c)
	if !bound {
		return
	}

	order, err := g.services.Orders.PlaceOrder(c.Request.Context(), input)
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Order Placed", "orderId": order.ID})
}

// @Summary   Place an order paid through the payment gateway
// @Tags      order
// @Accept    json
// @Produce   json
// @Security  Bearer
// @Param     body  body  placeOrderRequest  true  "order"
// @Success   200  {object}  map[string]interface{}
// @Router    /api/order/gateway [post]
func (g *Gateway) placeGatewayOrder(c *gin.Context) {
	input, bound := g.bindOrder(c)
	if !bound {
		return
	}

	checkout, err := g.services.Payments.PlaceGatewayOrder(c.Request.Context(), input)
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{
		"orderId":          checkout.Order.ID,
		"reference":        checkout.Reference,
		"authorizationUrl": checkout.AuthorizationURL,
	})
}

// @Summary   Verify a gateway payment
// @Tags      order
// @Accept    json
// @Produce   json
// @Security  Bearer
// @Param     body  body  verifyRequest  true  "reference"
// @Success   200  {object}  map[string]interface{}
// @Router    /api/order/verify [post]
func (g *Gateway) verifyPayment(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	p, err := g.services.Payments.Verify(c.Request.Context(), accountID(c), req.Reference)
	if err != nil {
		g.fail(c, err)
		return
	}

	msg := "Payment pending"
	switch p.Status {
	case models.PaymentCompleted:
		msg = "Payment successful"
	case models.PaymentFailed:
		msg = "Payment failed"
	}
	ok(c, gin.H{"message": msg, "paymentStatus": p.Status})
}

// @Summary   Orders of the signed in account, newest first
// @Tags      order
// @Produce   json
// @Security  Bearer
// @Success   200  {object}  map[string]interface{}
// @Router    /api/order/userorders [post]
func (g *Gateway) userOrders(c *gin.Context) {
	orders, err := g.services.Orders.ListOrdersForAccount(c.Request.Context(), accountID(c))
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"orders": orders})
}

// @Summary   All orders, newest first (admin)
// @Tags      order
// @Produce   json
// @Security  Bearer
// @Success   200  {object}  map[string]interface{}
// @Router    /api/order/list [post]
func (g *Gateway) allOrders(c *gin.Context) {
	orders, err := g.services.Orders.ListAllOrders(c.Request.Context())
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"orders": orders})
}

// @Summary   Change the fulfillment status of an order (admin)
// @Tags      order
// @Accept    json
// @Produce   json
// @Security  Bearer
// @Param     body  body  statusRequest  true  "status"
// @Success   200  {object}  map[string]interface{}
// @Router    /api/order/status [post]
func (g *Gateway) updateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := g.services.Orders.UpdateStatus(c.Request.Context(), req.OrderID, req.Status); err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"message": "Status Updated"})
}

// @Summary   Audit trail of an order, newest first (admin)
// @Tags      order
// @Accept    json
// @Produce   json
// @Security  Bearer
// @Param     body  body  historyRequest  true  "order"
// @Success   200  {object}  map[string]interface{}
// @Router    /api/order/history [post]
func (g *Gateway) orderHistory(c *gin.Context) {
	var req historyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	history, err := g.services.Orders.History(c.Request.Context(), req.OrderID)
	if err != nil {
		g.fail(c, err)
		return
	}
	ok(c, gin.H{"history": history})
}
