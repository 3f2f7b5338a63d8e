// Package api exposes the state cores over HTTP. Handlers only translate
// DTOs; every rule lives in the cores themselves.
package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/clawlab/companion/domain/entities"
	"github.com/clawlab/companion/domain/repositories"
	"github.com/clawlab/companion/internal/auth"
	"github.com/clawlab/companion/internal/websocket"
	"github.com/clawlab/companion/usecase"
)

// InitRoutes registers all API routes against the core registry. The store
// backs the view-preference endpoints; everything else goes through a core.
func InitRoutes(e *echo.Echo, cores *usecase.Registry, store repositories.KeyValueStore, hub *websocket.Hub, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "clawlab-companion",
		})
	})

	h := &handlers{cores: cores, store: store, logger: logger}

	v1 := e.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/login", h.login)
	authGroup.POST("/register", h.register)
	authGroup.POST("/logout", h.logout)
	authGroup.GET("/me", h.me)
	authGroup.PATCH("/profile", h.updateProfile, requireSession(logger))
	authGroup.POST("/membership", h.upgradeMembership, requireSession(logger))

	cart := v1.Group("/cart")
	cart.GET("", h.getCart)
	cart.POST("/items", h.addItem)
	cart.PUT("/items/:productId", h.updateQuantity)
	cart.DELETE("/items/:productId", h.removeItem)
	cart.DELETE("", h.clearCart)
	cart.POST("/checkout", h.checkout)

	hardware := v1.Group("/hardware")
	hardware.GET("", h.getHardware)
	hardware.POST("/dialog", h.setDialog)
	hardware.POST("/model", h.selectModel)
	hardware.POST("/connect", h.connect)
	hardware.POST("/disconnect", h.disconnect)
	hardware.PUT("/parameters/:name", h.updateParameter)
	hardware.POST("/status/refresh", h.refreshStatus)

	// View preferences: free-form string flags like newVersionBadgeVisible.
	// Keys owned by the cores are off limits.
	prefs := v1.Group("/prefs")
	prefs.GET("/:key", h.getPref)
	prefs.PUT("/:key", h.setPref)
	prefs.DELETE("/:key", h.removePref)

	// WebSocket endpoint: notification and telemetry push
	e.GET("/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(hub, c, logger)
	})
}

// requireSession validates the Bearer session token minted at login.
func requireSession(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			token := ""
			if strings.HasPrefix(header, "Bearer ") {
				token = strings.TrimPrefix(header, "Bearer ")
			}
			if token == "" {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "missing_token",
					Message: "Session token is required in Authorization header",
				})
			}

			claims, err := auth.ValidateSessionToken(token)
			if err != nil {
				logger.Warn("Rejected invalid session token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "invalid_token",
					Message: "Invalid or expired session token",
				})
			}

			c.Set("userID", claims.UserID)
			return next(c)
		}
	}
}

type handlers struct {
	cores  *usecase.Registry
	store  repositories.KeyValueStore
	logger *zap.Logger
}

// reservedKeys are owned by the cores and must not be touched through the
// preference endpoints.
var reservedKeys = map[string]bool{
	"user": true,
	"cart": true,
}

func (h *handlers) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}

	token, err := h.cores.Session.Login(req.Email, req.Password)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, AuthResponse{
		Token: token,
		User:  h.cores.Session.Snapshot().User,
	})
}

func (h *handlers) register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}

	token, err := h.cores.Session.Register(req.Name, req.Email, req.Password)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusCreated, AuthResponse{
		Token: token,
		User:  h.cores.Session.Snapshot().User,
	})
}

func (h *handlers) logout(c echo.Context) error {
	h.cores.Session.Logout()
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) me(c echo.Context) error {
	return c.JSON(http.StatusOK, h.cores.Session.Snapshot())
}

func (h *handlers) updateProfile(c echo.Context) error {
	var patch entities.ProfilePatch
	if err := c.Bind(&patch); err != nil {
		return badRequest(c, "Invalid request format")
	}

	if err := h.cores.Session.UpdateProfile(patch); err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, h.cores.Session.Snapshot())
}

func (h *handlers) upgradeMembership(c echo.Context) error {
	var req MembershipRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}

	if err := h.cores.Session.UpgradeMembership(req.Tier); err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, h.cores.Session.Snapshot())
}

func (h *handlers) getCart(c echo.Context) error {
	return c.JSON(http.StatusOK, h.cores.Cart.Snapshot())
}

func (h *handlers) addItem(c echo.Context) error {
	var req AddItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}
	if req.ProductID == "" || req.Name == "" || req.UnitPrice < 0 {
		return badRequest(c, "Product id, name and a non-negative price are required")
	}

	h.cores.Cart.AddItem(entities.Product{
		ProductID: req.ProductID,
		Name:      req.Name,
		ImageURL:  req.ImageURL,
		UnitPrice: req.UnitPrice,
	})
	return c.JSON(http.StatusOK, h.cores.Cart.Snapshot())
}

func (h *handlers) updateQuantity(c echo.Context) error {
	var req UpdateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}

	h.cores.Cart.UpdateQuantity(c.Param("productId"), req.Quantity)
	return c.JSON(http.StatusOK, h.cores.Cart.Snapshot())
}

func (h *handlers) removeItem(c echo.Context) error {
	h.cores.Cart.RemoveItem(c.Param("productId"))
	return c.JSON(http.StatusOK, h.cores.Cart.Snapshot())
}

func (h *handlers) clearCart(c echo.Context) error {
	h.cores.Cart.ClearCart()
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) checkout(c echo.Context) error {
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}

	orderID, err := h.cores.Cart.Checkout(req.Shipping, req.PaymentMethodID)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, CheckoutResponse{OrderID: orderID})
}

func (h *handlers) getHardware(c echo.Context) error {
	return c.JSON(http.StatusOK, h.cores.Hardware.Snapshot())
}

func (h *handlers) setDialog(c echo.Context) error {
	var req DialogRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}

	if req.Visible {
		h.cores.Hardware.OpenConnectionDialog()
	} else {
		h.cores.Hardware.SetDialogVisible(false)
	}
	return c.JSON(http.StatusOK, h.cores.Hardware.Snapshot())
}

func (h *handlers) selectModel(c echo.Context) error {
	var req SelectModelRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}

	h.cores.Hardware.SetSelectedModel(req.Model)
	return c.JSON(http.StatusOK, h.cores.Hardware.Snapshot())
}

func (h *handlers) connect(c echo.Context) error {
	var req ConnectRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}

	if err := h.cores.Hardware.Connect(req.Transport); err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusAccepted, h.cores.Hardware.Snapshot())
}

func (h *handlers) disconnect(c echo.Context) error {
	h.cores.Hardware.Disconnect()
	return c.JSON(http.StatusOK, h.cores.Hardware.Snapshot())
}

func (h *handlers) updateParameter(c echo.Context) error {
	var req ParameterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}

	name := entities.ParameterName(c.Param("name"))
	if _, ok := entities.ParameterRanges[name]; !ok {
		return badRequest(c, "Unknown hardware parameter")
	}

	h.cores.Hardware.UpdateParameter(name, req.Value)
	return c.JSON(http.StatusOK, h.cores.Hardware.Snapshot())
}

func (h *handlers) refreshStatus(c echo.Context) error {
	if err := h.cores.Hardware.RefreshStatus(); err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, h.cores.Hardware.Snapshot())
}

func (h *handlers) getPref(c echo.Context) error {
	key := c.Param("key")
	if reservedKeys[key] {
		return badRequest(c, "Key is reserved")
	}

	value, ok := h.store.Get(key)
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Preference is not set",
		})
	}
	return c.JSON(http.StatusOK, PrefResponse{Key: key, Value: value})
}

func (h *handlers) setPref(c echo.Context) error {
	key := c.Param("key")
	if reservedKeys[key] {
		return badRequest(c, "Key is reserved")
	}

	var req PrefRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "Invalid request format")
	}

	h.store.Set(key, req.Value)
	return c.JSON(http.StatusOK, PrefResponse{Key: key, Value: req.Value})
}

func (h *handlers) removePref(c echo.Context) error {
	key := c.Param("key")
	if reservedKeys[key] {
		return badRequest(c, "Key is reserved")
	}

	h.store.Remove(key)
	return c.NoContent(http.StatusNoContent)
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: message,
	})
}

// coreError maps a core failure onto an HTTP status plus its stable code.
func coreError(c echo.Context, err error) error {
	status := http.StatusBadRequest
	code := "invalid_request"

	switch {
	case errors.Is(err, entities.ErrCommandInFlight):
		status, code = http.StatusConflict, "command_in_flight"
	case errors.Is(err, entities.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, entities.CodeInvalidCredentials
	case errors.Is(err, entities.ErrMissingFields):
		code = entities.CodeMissingFields
	case errors.Is(err, entities.ErrNotAuthenticated):
		status, code = http.StatusUnauthorized, entities.CodeNotAuthenticated
	case errors.Is(err, entities.ErrInvalidTier):
		code = entities.CodeMissingFields
	case errors.Is(err, entities.ErrEmptyCart):
		code = entities.CodeEmptyCart
	case errors.Is(err, entities.ErrInvalidShipping):
		code = entities.CodeInvalidShipping
	case errors.Is(err, entities.ErrPaymentFailed):
		status, code = http.StatusPaymentRequired, entities.CodePaymentFailed
	case errors.Is(err, entities.ErrNoModelSelected):
		code = entities.CodeNoModelSelected
	case errors.Is(err, entities.ErrNotConnected):
		status, code = http.StatusConflict, entities.CodeNotConnected
	}

	return c.JSON(status, ErrorResponse{Error: code, Message: err.Error()})
}
