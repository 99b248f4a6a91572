package http

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"user-api/internal/domain"
	"user-api/internal/service"
)

const (
	statusOK     = "OK"
	statusFailed = "FAILED"

	msgMissingUserID = "Parameter ':userId' can not be empty"
	msgMissingFields = "One of the following keys is missing or is empty in request body: 'name', 'email', 'password', 'mobile', 'description'"
	msgInvalidBody   = "Request body must be a JSON object"
)

// Handler wires HTTP routes to the user service.
type Handler struct {
	users  service.UserService
	logger *logrus.Logger
}

func NewHandler(users service.UserService, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:  users,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, failure("Route not found"))
	})

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, envelope{Status: statusOK})
		})

		// both /api/users and /api/users/ are served directly; a redirect
		// would answer without the envelope
		users := api.Group("/users")
		users.GET("", h.getAllUsers)
		users.GET("/", h.getAllUsers)
		users.GET("/:userId", h.getOneUser)
		users.POST("", h.createNewUser)
		users.POST("/", h.createNewUser)
		users.PATCH("/:userId", h.updateOneUser)
		users.PUT("/:userId", h.updateOneUser)
		users.DELETE("/:userId", h.deleteOneUser)
	}
}

// envelope is the uniform response wrapper.
type envelope struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

type errorData struct {
	Error string `json:"error"`
}

func success(data any) envelope {
	return envelope{Status: statusOK, Data: data}
}

func failure(message string) envelope {
	return envelope{Status: statusFailed, Data: errorData{Error: message}}
}

type createUserRequest struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	Mobile      string `json:"mobile" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// updateUserRequest lists the mutable fields; anything else in the body,
// id and timestamps included, is ignored.
type updateUserRequest struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Password    *string `json:"password"`
	Mobile      *string `json:"mobile"`
	Description *string `json:"description"`
}

type UserResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Mobile      string `json:"mobile"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func userToResponse(user domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Password:    user.Password,
		Mobile:      user.Mobile,
		Description: user.Description,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

func (h *Handler) getAllUsers(c *gin.Context) {
	users, err := h.users.ListUsers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := make([]UserResponse, len(users))
	for i := range users {
		resp[i] = userToResponse(users[i])
	}
	c.JSON(http.StatusOK, success(resp))
}

func (h *Handler) getOneUser(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(userToResponse(*user)))
}

func (h *Handler) createNewUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failure(msgMissingFields))
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), domain.NewUser{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Mobile:      req.Mobile,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, success(userToResponse(*user)))
}

func (h *Handler) updateOneUser(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	// an empty body, chunked or not, merges nothing
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, failure(msgInvalidBody))
		return
	}

	user, err := h.users.UpdateUser(c.Request.Context(), userID, domain.UserChanges{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		Mobile:      req.Mobile,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, success(userToResponse(*user)))
}

func (h *Handler) deleteOneUser(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.users.DeleteUser(c.Request.Context(), userID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusNoContent, envelope{Status: statusOK})
}

// requireUserID answers 400 and reports false when the path id is blank.
// Any other id is returned untouched.
func requireUserID(c *gin.Context) (string, bool) {
	userID := c.Param("userId")
	if strings.TrimSpace(userID) == "" {
		c.JSON(http.StatusBadRequest, failure(msgMissingUserID))
		return "", false
	}
	return userID, true
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		message := de.Message
		if de.Kind == domain.ErrorKindInternal {
			message = de.Error()
		}
		c.JSON(de.Status(), failure(message))
		return
	}
	c.JSON(http.StatusInternalServerError, failure(err.Error()))
}

// Recovery answers panics with the failure envelope instead of an empty 500.
func Recovery(logger *logrus.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(logger.WriterLevel(logrus.ErrorLevel), func(c *gin.Context, recovered any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, failure("Internal server error"))
	})
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": time.Since(start).String(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case status >= http.StatusBadRequest:
			entry.Warn("request rejected")
		default:
			entry.Info("request handled")
		}
	}
}
