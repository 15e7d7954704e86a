package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/zapdoc-api/internal/handler"
	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/service/auth"
	"github.com/jwalitptl/zapdoc-api/pkg/httputil"
	"github.com/jwalitptl/zapdoc-api/pkg/validator"
)

type Handler struct {
	auth *auth.Service
}

func NewHandler(authSvc *auth.Service) *Handler {
	return &Handler{auth: authSvc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guards handler.Guards) {
	users := rg.Group("/users")
	{
		users.POST("/signup", guards.AuthLimit, h.Signup)
		users.POST("/login", guards.AuthLimit, h.Login)
	}
}

func (h *Handler) Signup(c *gin.Context) {
	var req model.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, validator.Translate(err))
		return
	}

	user, err := h.auth.Signup(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusCreated, "User created successfully", user)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, validator.Translate(err))
		return
	}

	resp, err := h.auth.LoginUser(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	resp.Message = "Login successful"
	httputil.RespondWithJSON(c, http.StatusOK, resp)
}
