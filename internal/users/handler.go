package users

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KimiAn12/StartUpIdea/internal/shared/server/middleware"
	"github.com/KimiAn12/StartUpIdea/internal/shared/server/respond"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches account routes to the /api/auth group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/signin", h.signIn)
	rg.POST("/signup", h.signUp)
	rg.GET("/me", h.me)
}

type signInRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Username        string `json:"username"`
	Password        string `json:"password"`
}

type signUpRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type profileResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	login := req.UsernameOrEmail
	if strings.TrimSpace(login) == "" {
		login = req.Username
	}
	session, err := h.Svc.SignIn(c.Request.Context(), login, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", trimSentinel(err, ErrInvalidInput), nil)
		case errors.Is(err, ErrInvalidCredentials):
			respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password", nil)
		default:
			telemetry.Error("users.signin_failed", map[string]any{"error": err.Error()})
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to sign in", nil)
		}
		return
	}
	respond.OK(c, gin.H{
		"accessToken": session.Token,
		"type":        "Bearer",
		"id":          session.User.ID,
		"username":    session.User.Username,
		"email":       session.User.Email,
		"role":        session.User.Role,
	})
}

func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	_, err := h.Svc.SignUp(c.Request.Context(), SignUpInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", trimSentinel(err, ErrInvalidInput), nil)
		case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrEmailTaken):
			respond.Error(c, http.StatusBadRequest, "duplicate_account", err.Error(), nil)
		default:
			telemetry.Error("users.signup_failed", map[string]any{"error": err.Error()})
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to register user", nil)
		}
		return
	}
	respond.Message(c, http.StatusOK, "User registered successfully!")
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.Svc.GetByID(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
		return
	}
	respond.OK(c, profileResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	})
}

func trimSentinel(err, sentinel error) string {
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}
