package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/zapdoc-api/internal/handler"
	"github.com/jwalitptl/zapdoc-api/internal/middleware"
	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/service/appointment"
	"github.com/jwalitptl/zapdoc-api/pkg/httputil"
	"github.com/jwalitptl/zapdoc-api/pkg/validator"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guards handler.Guards) {
	appointments := rg.Group("/appointments")
	{
		appointments.GET("/doctor/:doctorId", h.AvailableSlots)
		appointments.GET("/doctor/:doctorId/appointments", guards.Authenticate, h.ListForDoctor)
		appointments.GET("/user/:userId", guards.Authenticate, h.ListForPatient)
		appointments.POST("/book", guards.Authenticate, h.Book)
		appointments.PUT("/cancel/:id", guards.Authenticate, h.Cancel)
	}
}

func (h *Handler) AvailableSlots(c *gin.Context) {
	availability, err := h.service.AvailableSlots(c.Request.Context(), c.Param("doctorId"), c.Query("date"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithJSON(c, http.StatusOK, availability)
}

func (h *Handler) Book(c *gin.Context) {
	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, validator.Translate(err))
		return
	}

	session, _ := middleware.SessionFrom(c)
	appointment, err := h.service.Book(c.Request.Context(), session, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusCreated, "Appointment booked successfully", appointment)
}

func (h *Handler) Cancel(c *gin.Context) {
	session, _ := middleware.SessionFrom(c)
	appointment, err := h.service.Cancel(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "Appointment cancelled successfully", appointment)
}

func (h *Handler) ListForPatient(c *gin.Context) {
	session, _ := middleware.SessionFrom(c)
	appointments, err := h.service.ListForPatient(c.Request.Context(), session, c.Param("userId"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}

func (h *Handler) ListForDoctor(c *gin.Context) {
	session, _ := middleware.SessionFrom(c)
	appointments, err := h.service.ListForDoctor(c.Request.Context(), session, c.Param("doctorId"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}
