package mockapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/foodiehq/storefront/models"
	"github.com/foodiehq/storefront/utils"
)

// Server is an in-process stand-in for the production backend, used for
// local development and integration tests. It implements exactly the
// surface the storefront consumes: order CRUD, a health probe, a login
// endpoint, and the push channel.
type Server struct {
	DB  *gorm.DB
	Hub *Hub
}

var errNoPermission = errors.New("you don't have permission to perform this action")

func NewServer(db *gorm.DB) (*Server, error) {
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Server{DB: db, Hub: NewHub()}, nil
}

// SeedUser creates a login account and returns its id.
func (s *Server) SeedUser(name, email, password, role string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	user := apiUser{
		ID:           newObjectID(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         role,
		CreatedAt:    time.Now(),
	}
	if err := s.DB.Create(&user).Error; err != nil {
		return "", err
	}
	return user.ID, nil
}

// Router wires the API routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			utils.RespondJSON(c, http.StatusOK, "ok", nil)
		})
		api.POST("/auth/login", s.login)
		api.POST("/orders", s.createOrder)

		authed := api.Group("", s.authMiddleware())
		{
			authed.GET("/orders", s.listOrders)
			authed.GET("/orders/:order_id", s.getOrder)
			authed.PUT("/orders/:order_id", s.updateOrder)
			authed.DELETE("/orders", s.clearOrders)
		}
	}

	r.GET("/ws", s.serveWS)
	return r
}

// authMiddleware rejects requests without a valid session token. The
// guest storefront has no token, so point lookups come back 401 and the
// client falls back to its local cache.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization header missing"))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid or expired token"))
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func (s *Server) login(c *gin.Context) {
	type request struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var user apiUser
	if err := s.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid email or password"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid email or password"))
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Login success", gin.H{
		"token": token,
		"user": models.User{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		},
	})
}

func (s *Server) createOrder(c *gin.Context) {
	var order models.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if len(order.Items) == 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("order has no items"))
		return
	}

	order.ID = newObjectID()
	if order.Status == "" {
		order.Status = models.StatusPending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = time.Now()
	order.Normalize()

	record, err := recordFrom(&order)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if err := s.DB.Create(record).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	s.Hub.BroadcastOrderUpdate(order)
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

func (s *Server) listOrders(c *gin.Context) {
	role, _ := c.Get("role")
	userID, _ := c.Get("user_id")

	query := s.DB.Order("created_at asc")
	if role != models.RoleAdmin {
		query = query.Where("user_id = ?", userID)
	}

	var records []orderRecord
	if err := query.Find(&records).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	orders := make([]models.Order, 0, len(records))
	for i := range records {
		order, err := records[i].order()
		if err != nil {
			continue
		}
		orders = append(orders, *order)
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

func (s *Server) getOrder(c *gin.Context) {
	record, order, ok := s.findOrder(c)
	if !ok {
		return
	}

	role, _ := c.Get("role")
	userID, _ := c.Get("user_id")
	if role != models.RoleAdmin && record.UserID != userID {
		utils.RespondError(c, http.StatusNotFound, errors.New("order not found"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

func (s *Server) updateOrder(c *gin.Context) {
	type updateReq struct {
		Status             *models.OrderStatus `json:"status"`
		CancellationReason string              `json:"cancellationReason"`
		CancelledBy        string              `json:"cancelledBy"`
		PaymentStatus      *string             `json:"paymentStatus"`
	}
	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	record, order, ok := s.findOrder(c)
	if !ok {
		return
	}

	role, _ := c.Get("role")
	userID, _ := c.Get("user_id")
	isAdmin := role == models.RoleAdmin
	if !isAdmin && record.UserID != userID {
		utils.RespondError(c, http.StatusNotFound, errors.New("order not found"))
		return
	}

	if req.Status != nil {
		status := *req.Status
		if !models.ValidStatus(status) {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("unknown status %q", status))
			return
		}
		if !isAdmin {
			// Customers may only cancel, and only before preparation.
			if status != models.StatusCancelled {
				utils.RespondError(c, http.StatusForbidden, errNoPermission)
				return
			}
			if !models.CanCancel(order.Status) {
				utils.RespondError(c, http.StatusBadRequest,
					fmt.Errorf("a %s order can no longer be cancelled", order.Status))
				return
			}
		}
		if isAdmin && status == models.StatusCancelled && strings.TrimSpace(req.CancellationReason) == "" {
			utils.RespondError(c, http.StatusBadRequest, errors.New("a cancellation reason is required"))
			return
		}

		order.Status = status
		if status == models.StatusCancelled {
			order.CancellationReason = strings.TrimSpace(req.CancellationReason)
			order.CancelledBy = req.CancelledBy
			if order.CancelledBy == "" {
				order.CancelledBy = fmt.Sprint(role)
			}
		}
	}

	if req.PaymentStatus != nil {
		order.PaymentStatus = *req.PaymentStatus
	}
	order.UpdatedAt = time.Now()

	updated, err := recordFrom(order)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	updated.CreatedAt = record.CreatedAt
	if err := s.DB.Save(updated).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	s.Hub.BroadcastOrderUpdate(*order)
	utils.RespondJSON(c, http.StatusOK, "Order updated", order)
}

func (s *Server) clearOrders(c *gin.Context) {
	role, _ := c.Get("role")
	if role != models.RoleAdmin {
		utils.RespondError(c, http.StatusForbidden, errNoPermission)
		return
	}

	result := s.DB.Where("1 = 1").Delete(&orderRecord{})
	if result.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, result.Error)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Orders cleared", gin.H{
		"deletedCount": result.RowsAffected,
	})
}

func (s *Server) findOrder(c *gin.Context) (*orderRecord, *models.Order, bool) {
	id := c.Param("order_id")

	var record orderRecord
	if err := s.DB.First(&record, "id = ?", id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("order not found"))
		return nil, nil, false
	}

	order, err := record.order()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return nil, nil, false
	}
	return &record, order, true
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) serveWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	s.Hub.Register(conn)

	// Drain the connection until the client goes away.
	go func() {
		defer s.Hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
