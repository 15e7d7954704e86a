package contact

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/zapdoc-api/internal/handler"
	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/service/contact"
	"github.com/jwalitptl/zapdoc-api/pkg/httputil"
	"github.com/jwalitptl/zapdoc-api/pkg/validator"
)

type Handler struct {
	service *contact.Service
}

func NewHandler(service *contact.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, _ handler.Guards) {
	rg.POST("/contact/submit", h.Submit)
}

func (h *Handler) Submit(c *gin.Context) {
	var req model.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, validator.Translate(err))
		return
	}

	if _, err := h.service.Submit(c.Request.Context(), &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusCreated, "Message sent successfully", nil)
}
