package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"atelier/internal/domain"
	"atelier/internal/repository"
	"atelier/internal/service"
)

// Services are the application services the HTTP layer exposes.
type Services struct {
	Products *service.ProductService
	Studio   *service.StudioService
	Designs  *service.DesignService
	Orders   *service.OrderService
}

type Server struct {
	engine *gin.Engine
	auth   *Authenticator
	svc    Services
}

func NewServer(svc Services, auth *Authenticator) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	s := &Server{engine: r, auth: auth, svc: svc}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := s.engine.Group("/api")
	api.GET("/health", s.health)

	user := s.auth.RequireUser()
	admin := []gin.HandlerFunc{user, RequireAdmin()}

	products := api.Group("/products")
	{
		products.GET("", s.listProducts)
		products.GET(":id", s.getProduct)
		products.POST("", append(admin, s.createProduct)...)
		products.PUT(":id", append(admin, s.updateProduct)...)
		products.DELETE(":id", append(admin, s.deleteProduct)...)
	}

	studio := api.Group("/studio-products")
	{
		studio.GET("", s.listStudioProducts)
		studio.GET(":id", s.getStudioProduct)
		studio.POST("", append(admin, s.createStudioProduct)...)
		studio.PUT(":id", append(admin, s.updateStudioProduct)...)
	}

	designs := api.Group("/designs", user)
	{
		designs.POST("", s.createDesign)
		designs.GET("", s.listDesigns)
		designs.GET(":id", s.getDesign)
		designs.DELETE(":id", s.deleteDesign)
	}

	orders := api.Group("/orders", user)
	{
		orders.POST("", s.placeOrder)
		orders.GET("", s.listOrders)
		orders.GET(":id", s.getOrder)
		orders.POST(":id/cancel", s.cancelOrder)
	}

	adminOrders := api.Group("/admin/orders", admin...)
	{
		adminOrders.GET("", s.listAllOrders)
		adminOrders.PUT(":id/status", s.updateOrderStatus)
		adminOrders.PUT(":id/payment", s.updatePayment)
		adminOrders.DELETE(":id", s.deleteOrder)
	}
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Product handlers
type productReq struct {
	Name     string          `json:"name" binding:"required"`
	SKU      string          `json:"sku" binding:"required"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price" swaggertype:"string" example:"29.99"`
	Stock    int64           `json:"stock" binding:"gte=0"`
}

func (r productReq) toDomain(id string) domain.Product {
	return domain.Product{ID: id, Name: r.Name, SKU: r.SKU, Category: r.Category, Price: r.Price, Stock: r.Stock}
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body productReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.svc.Products.Create(c.Request.Context(), req.toDomain(""))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	p, err := s.svc.Products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param input body productReq true "Product"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.svc.Products.Update(c.Request.Context(), req.toDomain(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete product
// @Tags products
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	if err := s.svc.Products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List products
// @Tags products
// @Produce json
// @Param q query string false "Name contains"
// @Param category query string false "Category"
// @Param min_price query number false "Min price"
// @Param max_price query number false "Max price"
// @Success 200 {array} domain.Product
// @Failure 400 {object} map[string]string
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	f := repository.ProductFilter{NameSubstring: c.Query("q"), Category: c.Query("category")}
	for param, dst := range map[string]**decimal.Decimal{"min_price": &f.MinPrice, "max_price": &f.MaxPrice} {
		v := c.Query(param)
		if v == "" {
			continue
		}
		x, err := decimal.NewFromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + param})
			return
		}
		*dst = &x
	}
	list, err := s.svc.Products.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Studio product handlers
type studioProductReq struct {
	Name   string          `json:"name" binding:"required"`
	Price  decimal.Decimal `json:"price" swaggertype:"string" example:"18.50"`
	Active *bool           `json:"active"`
}

func (r studioProductReq) toDomain(id string) domain.StudioProduct {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return domain.StudioProduct{ID: id, Name: r.Name, Price: r.Price, Active: active}
}

// @Summary List studio products
// @Tags studio
// @Produce json
// @Success 200 {array} domain.StudioProduct
// @Router /studio-products [get]
func (s *Server) listStudioProducts(c *gin.Context) {
	list, err := s.svc.Studio.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get studio product by id
// @Tags studio
// @Produce json
// @Param id path string true "Studio product ID"
// @Success 200 {object} domain.StudioProduct
// @Failure 404 {object} map[string]string
// @Router /studio-products/{id} [get]
func (s *Server) getStudioProduct(c *gin.Context) {
	sp, err := s.svc.Studio.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sp)
}

// @Summary Create studio product
// @Tags studio
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body studioProductReq true "Studio product"
// @Success 201 {object} domain.StudioProduct
// @Failure 400 {object} map[string]string
// @Router /studio-products [post]
func (s *Server) createStudioProduct(c *gin.Context) {
	var req studioProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sp, err := s.svc.Studio.Create(c.Request.Context(), req.toDomain(""))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sp)
}

// @Summary Update studio product
// @Tags studio
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Studio product ID"
// @Param input body studioProductReq true "Studio product"
// @Success 200 {object} domain.StudioProduct
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /studio-products/{id} [put]
func (s *Server) updateStudioProduct(c *gin.Context) {
	var req studioProductReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sp, err := s.svc.Studio.Update(c.Request.Context(), req.toDomain(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sp)
}

func respondError(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	c.JSON(status, gin.H{"error": errorMessage(status, err)})
}

// errorMessage hides the cause of unexpected failures from clients and logs it instead.
func errorMessage(status int, err error) string {
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		return "internal error"
	}
	return err.Error()
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, repository.ErrInvalidID),
		errors.Is(err, repository.ErrInvalidValue):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, service.ErrInvalidState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
