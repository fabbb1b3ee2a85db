package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"atelier/internal/domain"
	"atelier/internal/service"
)

// Design handlers
type designReq struct {
	StudioProductID string `json:"studio_product_id" binding:"required"`
	Name            string `json:"name" binding:"required"`
	ArtworkURL      string `json:"artwork_url"`
	Placement       string `json:"placement"`
}

// @Summary Create design
// @Tags designs
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body designReq true "Design"
// @Success 201 {object} domain.Design
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /designs [post]
func (s *Server) createDesign(c *gin.Context) {
	var req designReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	d, err := s.svc.Designs.Create(c.Request.Context(), actorFrom(c), domain.Design{
		StudioProductID: req.StudioProductID,
		Name:            req.Name,
		ArtworkURL:      req.ArtworkURL,
		Placement:       req.Placement,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// @Summary List own designs
// @Tags designs
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Design
// @Router /designs [get]
func (s *Server) listDesigns(c *gin.Context) {
	list, err := s.svc.Designs.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get design by id
// @Tags designs
// @Produce json
// @Security BearerAuth
// @Param id path string true "Design ID"
// @Success 200 {object} domain.Design
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /designs/{id} [get]
func (s *Server) getDesign(c *gin.Context) {
	d, err := s.svc.Designs.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary Delete design
// @Tags designs
// @Security BearerAuth
// @Param id path string true "Design ID"
// @Success 204
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /designs/{id} [delete]
func (s *Server) deleteDesign(c *gin.Context) {
	if err := s.svc.Designs.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Order handlers

// orderItemReq is one cart line. Prices sent by the client are ignored.
type orderItemReq struct {
	Product  string `json:"product"`
	Design   string `json:"design"`
	Quantity int64  `json:"quantity" binding:"gt=0,lte=10000" minimum:"1" maximum:"10000"`
	Size     string `json:"size"`
	Color    string `json:"color"`
	Notes    string `json:"notes"`
}

type paymentReq struct {
	Method        string `json:"method"`
	TransactionID string `json:"transaction_id"`
}

type placeOrderReq struct {
	Items           []orderItemReq  `json:"items" binding:"dive"`
	ShippingAddress *domain.Address `json:"shipping_address"`
	Payment         paymentReq      `json:"payment"`
	Tax             decimal.Decimal `json:"tax" swaggertype:"string" example:"3.00"`
	Shipping        decimal.Decimal `json:"shipping" swaggertype:"string" example:"5.00"`
}

func (r placeOrderReq) toInput() service.PlaceOrderInput {
	lines := make([]service.CartLine, 0, len(r.Items))
	for _, it := range r.Items {
		lines = append(lines, service.CartLine{
			ProductID: it.Product,
			DesignID:  it.Design,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
			Notes:     it.Notes,
		})
	}
	return service.PlaceOrderInput{
		Lines:           lines,
		ShippingAddress: r.ShippingAddress,
		PaymentMethod:   r.Payment.Method,
		TransactionID:   r.Payment.TransactionID,
		Tax:             r.Tax,
		Shipping:        r.Shipping,
	}
}

// @Summary Place order
// @Description Validates the cart against the catalog, prices it on the server and reserves stock atomically.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body placeOrderReq true "Order"
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /orders [post]
func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.svc.Orders.PlaceOrder(c.Request.Context(), actorFrom(c), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary List own orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Order
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	list, err := s.svc.Orders.ListOrders(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	o, err := s.svc.Orders.GetOrder(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type noteReq struct {
	Note string `json:"note"`
}

// @Summary Cancel order
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param input body noteReq false "Reason"
// @Success 200 {object} domain.Order
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/cancel [post]
func (s *Server) cancelOrder(c *gin.Context) {
	var req noteReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	o, err := s.svc.Orders.CancelOrder(c.Request.Context(), actorFrom(c), c.Param("id"), req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary List all orders
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Order
// @Failure 403 {object} map[string]string
// @Router /admin/orders [get]
func (s *Server) listAllOrders(c *gin.Context) {
	list, err := s.svc.Orders.ListAllOrders(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type statusReq struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note"`
}

// @Summary Update order status
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param input body statusReq true "New status"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/orders/{id}/status [put]
func (s *Server) updateOrderStatus(c *gin.Context) {
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.svc.Orders.UpdateStatus(c.Request.Context(), actorFrom(c), c.Param("id"), req.Status, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type paymentUpdateReq struct {
	Method        string               `json:"method"`
	Status        domain.PaymentStatus `json:"status" binding:"required"`
	TransactionID string               `json:"transaction_id"`
}

// @Summary Update payment
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param input body paymentUpdateReq true "Payment"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/orders/{id}/payment [put]
func (s *Server) updatePayment(c *gin.Context) {
	var req paymentUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.svc.Orders.UpdatePayment(c.Request.Context(), actorFrom(c), c.Param("id"), service.PaymentUpdate{
		Method:        req.Method,
		Status:        req.Status,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Delete order
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /admin/orders/{id} [delete]
func (s *Server) deleteOrder(c *gin.Context) {
	if err := s.svc.Orders.DeleteOrder(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
