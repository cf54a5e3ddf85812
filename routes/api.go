package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Sadiakamal27/one-rupee-game/models"
	"github.com/Sadiakamal27/one-rupee-game/services"
	"github.com/Sadiakamal27/one-rupee-game/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type APIRoutes struct {
	paymentService *services.PaymentService
	// WebSocket hub
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]string
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mutex      sync.Mutex
}

func NewAPIRoutes(paymentService *services.PaymentService) *APIRoutes {
	ar := &APIRoutes{
		paymentService: paymentService,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // the game pages are served from multiple hosts
			},
		},
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan []byte),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}

	go ar.runWebSocketServer()

	return ar
}

// SetupRoutes registers the game API.
func (ar *APIRoutes) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/orders", ar.GetOrders)
		api.POST("/orders", ar.CreateOrder)

		// Callable via either verb so a page load can fire-and-forget it
		api.GET("/reset-plans", ar.ResetPlans)
		api.POST("/reset-plans", ar.ResetPlans)

		api.GET("/plans", ar.GetPlans)
		api.GET("/plans/:id", ar.GetPlan)
		api.POST("/plans/:id/pay", ar.PayForPlan)
		api.POST("/plans/:id/winner", ar.PickWinner)

		api.GET("/results", ar.GetResults)
		api.GET("/orders/:code", ar.GetOrderByCode)
	}

	// WebSocket route
	router.GET("/ws", ar.WebSocketHandler)

	// Entry QR code for a plan's payment page
	router.GET("/qrcode", ar.GenerateQRCode)
}

// GetOrders lists all orders, newest first, with plan and cycle info.
func (ar *APIRoutes) GetOrders(c *gin.Context) {
	orders, err := services.ListOrders(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// CreateOrder creates a pending entry order from the checkout form.
func (ar *APIRoutes) CreateOrder(c *gin.Context) {
	var input services.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := ar.paymentService.CreateOrder(input)
	if err != nil {
		if errors.Is(err, services.ErrMissingFields) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, order)
}

// GetOrderByCode returns one order by its 7-digit code (confirmation page).
func (ar *APIRoutes) GetOrderByCode(c *gin.Context) {
	order, err := ar.paymentService.GetOrderByCode(c.Param("code"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, order)
}

// ResetPlans rolls any expired plan into a fresh cycle. Idempotent:
// concurrent page loads hitting this together perform at most one reset
// per plan, and a quiet call returns an empty list.
func (ar *APIRoutes) ResetPlans(c *gin.Context) {
	resetIDs, err := services.CheckAndResetExpiredPlans(time.Now())
	if err != nil {
		log.Errorf("Error resetting plans: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reset plans",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Plans checked and reset successfully",
		"resetPlans": resetIDs,
	})
}

// GetPlans returns every plan with progress, milestones and live
// participants for the home page.
func (ar *APIRoutes) GetPlans(c *gin.Context) {
	views, err := services.ListPlanViews(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, views)
}

// GetPlan returns one plan (payment page).
func (ar *APIRoutes) GetPlan(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan id"})
		return
	}

	var plan models.GamePlan
	if err := utils.DB.First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, plan)
}

// PayForPlan runs the whole entry flow for one plan: create the pending
// order, charge it through the gateway, and answer with the settled order.
func (ar *APIRoutes) PayForPlan(c *gin.Context) {
	// The gateway can stall; cap the whole flow at 15 seconds
	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan id"})
		return
	}

	var req struct {
		Name             string `json:"name" binding:"required"`
		EasypaisaAccount string `json:"easypaisa_account" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	var plan models.GamePlan
	if err := utils.DB.First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	order, err := ar.paymentService.CreateOrder(services.CreateOrderInput{
		Name:             req.Name,
		EasypaisaAccount: req.EasypaisaAccount,
		PlanID:           plan.ID,
		Amount:           float64(plan.Price),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type result struct {
		order *models.Order
		err   error
	}
	resultChan := make(chan result, 1)

	go func() {
		settled, errPay := ar.paymentService.ProcessPayment(ctx, order.ID)
		resultChan <- result{settled, errPay}
	}()

	select {
	case res := <-resultChan:
		if res.err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": res.err.Error()})
			return
		}
		if res.order.PaymentStatus == models.StatusCompleted {
			ar.BroadcastNewOrder(res.order)
		}
		c.JSON(http.StatusOK, res.order)
	case <-ctx.Done():
		c.JSON(http.StatusRequestTimeout, gin.H{"error": "payment timed out, please try again"})
	}
}

// PickWinner draws (or returns the recorded) winner for a plan's current
// cycle. An empty pool is a neutral result, not an error.
func (ar *APIRoutes) PickWinner(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan id"})
		return
	}

	winner, err := services.PickWinner(uint(id), time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if winner == nil {
		c.JSON(http.StatusOK, gin.H{"winner": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"winner": winner})
}

// GetResults lists plans ending within two days with their countdowns.
func (ar *APIRoutes) GetResults(c *gin.Context) {
	results, err := services.ListEndingSoon(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// GenerateQRCode renders an entry QR code pointing at a plan's payment page.
func (ar *APIRoutes) GenerateQRCode(c *gin.Context) {
	planID, err := strconv.Atoi(c.Query("plan"))
	if err != nil || planID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing plan parameter"})
		return
	}

	var plan models.GamePlan
	if err := utils.DB.First(&plan, planID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "plan not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	payURL := fmt.Sprintf("http://%s/payment?plan=%d&amount=%d", c.Request.Host, plan.ID, plan.Price)

	qrBytes, err := utils.GenerateQRCode(payURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "image/png")
	c.Writer.Write(qrBytes)
}

// runWebSocketServer owns the client set and fans broadcast frames out to
// every connection. A ticker prunes dead connections.
func (ar *APIRoutes) runWebSocketServer() {
	log.Info("WebSocket server started")

	cleanupTicker := time.NewTicker(30 * time.Second)
	defer cleanupTicker.Stop()

	for {
		select {
		case client := <-ar.register:
			connID := utils.GenerateConnID()
			ar.mutex.Lock()
			ar.clients[client] = connID
			clientCount := len(ar.clients)
			ar.mutex.Unlock()
			log.Infof("WebSocket client %s connected (%d total)", connID, clientCount)

			go ar.sendInitialData(client)

		case client := <-ar.unregister:
			ar.mutex.Lock()
			if connID, ok := ar.clients[client]; ok {
				delete(ar.clients, client)
				client.Close()
				log.Infof("WebSocket client %s disconnected (%d total)", connID, len(ar.clients))
			}
			ar.mutex.Unlock()

		case message := <-ar.broadcast:
			ar.mutex.Lock()
			for client, connID := range ar.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					log.Warnf("Broadcast to client %s failed: %v", connID, err)
					client.Close()
					delete(ar.clients, client)
				}
			}
			ar.mutex.Unlock()

		case <-cleanupTicker.C:
			ar.cleanupInvalidConnections()
		}
	}
}

// cleanupInvalidConnections pings every client and drops the dead ones.
func (ar *APIRoutes) cleanupInvalidConnections() {
	ar.mutex.Lock()
	defer ar.mutex.Unlock()

	before := len(ar.clients)
	for client := range ar.clients {
		if err := client.WriteMessage(websocket.PingMessage, nil); err != nil {
			client.Close()
			delete(ar.clients, client)
		}
	}

	if dropped := before - len(ar.clients); dropped > 0 {
		log.Infof("Cleaned up %d dead WebSocket connections, %d remain", dropped, len(ar.clients))
	}
}

// sendInitialData pushes the current plan state to a new connection.
func (ar *APIRoutes) sendInitialData(client *websocket.Conn) {
	views, err := services.ListPlanViews(time.Now())
	if err != nil {
		log.Errorf("Error getting initial plan views: %v", err)
		return
	}

	initialData := map[string]interface{}{
		"type":      "initial_data",
		"plans":     views,
		"timestamp": time.Now().Unix(),
	}

	message, err := json.Marshal(initialData)
	if err != nil {
		log.Errorf("Error marshaling initial data: %v", err)
		return
	}

	if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
		log.Warnf("Error sending initial data: %v", err)
		client.Close()
		ar.mutex.Lock()
		delete(ar.clients, client)
		ar.mutex.Unlock()
	}
}

// WebSocketHandler upgrades the connection and parks it in the hub until
// the peer goes away.
func (ar *APIRoutes) WebSocketHandler(c *gin.Context) {
	conn, err := ar.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("Error upgrading to WebSocket: %v", err)
		return
	}

	ar.register <- conn

	for {
		messageType, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warnf("WebSocket error: %v", err)
			}
			break
		}

		// Clients only listen; answer pings, ignore the rest
		if messageType == websocket.PingMessage {
			if err := conn.WriteMessage(websocket.PongMessage, nil); err != nil {
				break
			}
		}
	}

	ar.unregister <- conn
}

// BroadcastNewOrder pushes a completed entry to every connected page so
// participant lists and progress bars refresh without polling.
func (ar *APIRoutes) BroadcastNewOrder(order *models.Order) {
	message := map[string]interface{}{
		"type":      "new_order",
		"order":     order,
		"sent_at":   utils.Now(),
		"timestamp": time.Now().Unix(),
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Errorf("Error marshaling order broadcast: %v", err)
		return
	}

	ar.broadcast <- data
}
