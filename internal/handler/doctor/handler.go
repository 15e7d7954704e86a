package doctor

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/zapdoc-api/internal/handler"
	"github.com/jwalitptl/zapdoc-api/internal/middleware"
	"github.com/jwalitptl/zapdoc-api/internal/model"
	"github.com/jwalitptl/zapdoc-api/internal/service/application"
	"github.com/jwalitptl/zapdoc-api/internal/service/appointment"
	"github.com/jwalitptl/zapdoc-api/internal/service/auth"
	"github.com/jwalitptl/zapdoc-api/internal/service/doctor"
	"github.com/jwalitptl/zapdoc-api/pkg/errors"
	"github.com/jwalitptl/zapdoc-api/pkg/httputil"
	"github.com/jwalitptl/zapdoc-api/pkg/validator"
)

// CertificateStore persists uploaded certificates.
type CertificateStore interface {
	Save(filename string, r io.Reader) (string, error)
	Remove(path string) error
}

type Handler struct {
	directory    *doctor.Service
	applications *application.Service
	appointments *appointment.Service
	auth         *auth.Service
	certificates CertificateStore
}

func NewHandler(
	directory *doctor.Service,
	applications *application.Service,
	appointments *appointment.Service,
	authSvc *auth.Service,
	certificates CertificateStore,
) *Handler {
	return &Handler{
		directory:    directory,
		applications: applications,
		appointments: appointments,
		auth:         authSvc,
		certificates: certificates,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guards handler.Guards) {
	doctors := rg.Group("/doctors")
	{
		doctors.POST("/register", h.Register)
		doctors.POST("/login", guards.AuthLimit, h.Login)

		doctors.POST("/approve/:id", guards.Authenticate, guards.AdminOnly, h.Approve)
		doctors.POST("/reject/:id", guards.Authenticate, guards.AdminOnly, h.Reject)
		doctors.GET("/applications", guards.Authenticate, guards.AdminOnly, h.ListApplications)

		doctors.GET("/all", h.List)
		doctors.GET("/name/:name", h.GetByName)
		doctors.GET("/:id", h.Get)
	}
}

// Register accepts a multipart form with an optional certificate file, or
// a plain JSON body without one.
func (h *Handler) Register(c *gin.Context) {
	req, err := h.bindSubmission(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	app, err := h.applications.Submit(c.Request.Context(), req)
	if err != nil {
		if req.Certificate != nil {
			if rmErr := h.certificates.Remove(*req.Certificate); rmErr != nil {
				log.Warn().Err(rmErr).Str("path", *req.Certificate).Msg("failed to remove orphaned certificate")
			}
		}
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusCreated, "Application submitted successfully", app)
}

func (h *Handler) bindSubmission(c *gin.Context) (*model.ApplicationSubmission, error) {
	var req model.ApplicationSubmission
	if c.ContentType() == gin.MIMEJSON {
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, validator.Translate(err)
		}
		return &req, nil
	}

	req.Name = c.PostForm("name")
	req.Email = c.PostForm("email")
	req.Phone = c.PostForm("phone")
	req.ClinicName = c.PostForm("clinicName")
	req.ClinicAddress = c.PostForm("clinicAddress")
	req.Specialization = c.PostForm("specialization")
	req.Password = c.PostForm("password")

	if raw := strings.TrimSpace(c.PostForm("qualifications")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Qualifications); err != nil {
			return nil, errors.BadRequest("Invalid qualifications", err)
		}
	}

	file, err := c.FormFile("certificate")
	if err == http.ErrMissingFile || err == http.ErrNotMultipart {
		return &req, nil
	}
	if err != nil {
		return nil, errors.BadRequest("Invalid certificate upload", err)
	}

	f, err := file.Open()
	if err != nil {
		return nil, errors.BadRequest("Invalid certificate upload", err)
	}
	defer f.Close()

	path, err := h.certificates.Save(file.Filename, f)
	if err != nil {
		return nil, err
	}
	req.Certificate = &path
	return &req, nil
}

func (h *Handler) Approve(c *gin.Context) {
	session, _ := middleware.SessionFrom(c)
	app, doc, err := h.applications.Approve(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "Doctor application approved successfully", gin.H{
		"application": app,
		"doctor":      doc,
	})
}

func (h *Handler) Reject(c *gin.Context) {
	session, _ := middleware.SessionFrom(c)
	app, err := h.applications.Reject(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "Doctor application rejected successfully", app)
}

func (h *Handler) ListApplications(c *gin.Context) {
	session, _ := middleware.SessionFrom(c)
	apps, err := h.applications.ListPending(c.Request.Context(), session)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, apps)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, validator.Translate(err))
		return
	}

	resp, err := h.auth.LoginDoctor(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	resp.Message = "Login successful"
	httputil.RespondWithJSON(c, http.StatusOK, resp)
}

func (h *Handler) List(c *gin.Context) {
	var filter model.DoctorFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		httputil.RespondWithError(c, validator.Translate(err))
		return
	}

	doctors, err := h.directory.List(c.Request.Context(), &filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, doctors)
}

// Get returns the doctor profile, or the doctor's free slots when a date
// query parameter is present.
func (h *Handler) Get(c *gin.Context) {
	if date, ok := c.GetQuery("date"); ok {
		availability, err := h.appointments.AvailableSlots(c.Request.Context(), c.Param("id"), date)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithJSON(c, http.StatusOK, availability)
		return
	}

	doc, err := h.directory.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, doc)
}

func (h *Handler) GetByName(c *gin.Context) {
	doc, err := h.directory.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, doc)
}
