package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gallery/internal/bucket"
	"gallery/internal/catalog"
	"gallery/internal/gallery"
	"gallery/internal/models"
	"gallery/internal/upload"
)

const (
	maxUploadBytes = 25 << 20
	healthTimeout  = 2 * time.Second
)

// Catalog is the catalog client as the HTTP surface uses it.
type Catalog interface {
	upload.Catalog
	Delete(ctx context.Context, id string) error
}

// Inquirer accepts contact-form inquiries.
type Inquirer interface {
	Send(ctx context.Context, inq models.Inquiry) error
}

// Files serves stored bytes when the asset store keeps them in process.
type Files interface {
	Object(id string) ([]byte, bool)
}

// Deps are the collaborators behind the routes. Relay, Files and Health are
// optional.
type Deps struct {
	Catalog Catalog
	Uploads *upload.Orchestrator
	Relay   Inquirer
	Files   Files
	Health  func(ctx context.Context) error
}

type Server struct {
	cfg      *models.Config
	router   *gin.Engine
	http     *http.Server
	deps     Deps
	sessions *sessionStore
	logger   *slog.Logger
}

func NewServer(cfg *models.Config, deps Deps, logger *slog.Logger) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	r.MaxMultipartMemory = maxUploadBytes

	s := &Server{
		cfg:      cfg,
		router:   r,
		deps:     deps,
		sessions: newSessionStore(),
		logger:   logger,
		http: &http.Server{
			Addr:              cfg.ServerAddr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	r.GET("/healthz", s.handleHealth)
	if deps.Files != nil {
		r.GET("/files/:name", s.handleFile)
	}

	api := r.Group("/api")
	api.GET("/images", s.handleListImages)
	api.GET("/gallery", s.handleGallery)
	api.GET("/gallery/filters", s.handleFilters)
	api.GET("/hero", s.handleHero)
	api.POST("/contact", newIPLimiter(cfg.ContactRate).middleware(), s.handleContact)

	operator := api.Group("", requireOperator(cfg.AuthSecret))
	operator.GET("/uploads", s.handleGetUpload)
	operator.POST("/uploads", s.handleChoose)
	operator.PATCH("/uploads", s.handleAdjust)
	operator.POST("/uploads/confirm", s.handleConfirm)
	operator.DELETE("/uploads", s.handleCancel)
	operator.DELETE("/images/:id", s.handleDeleteImage)

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", slog.String("addr", s.cfg.ServerAddr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()
		if err := s.deps.Health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleFile(c *gin.Context) {
	id := strings.TrimSuffix(c.Param("name"), ".jpg")
	data, ok := s.deps.Files.Object(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

func (s *Server) handleListImages(c *gin.Context) {
	images, err := catalog.Collect(s.deps.Catalog.List(c.Request.Context(), c.Query("category")))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, images)
}

// handleGallery applies one visitor step to the reveal state the client
// echoed back: category and visible restore it, select switches tabs and
// action is "more" or "less".
func (s *Server) handleGallery(c *gin.Context) {
	view, err := viewFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	images, err := catalog.Collect(s.deps.Catalog.List(c.Request.Context(), ""))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view.Page(images))
}

func viewFromQuery(c *gin.Context) (*gallery.View, error) {
	category, rawVisible := c.Query("category"), c.Query("visible")

	view := gallery.NewView()
	if category != "" || rawVisible != "" {
		filter, err := gallery.ParseFilter(category)
		if err != nil {
			return nil, err
		}
		visible := 0
		if rawVisible != "" {
			if visible, err = strconv.Atoi(rawVisible); err != nil {
				return nil, errors.New("visible must be an integer")
			}
		}
		view = gallery.RestoreView(filter, visible)
	}

	if raw, ok := c.GetQuery("select"); ok {
		filter, err := gallery.ParseFilter(raw)
		if err != nil {
			return nil, err
		}
		view.Select(filter)
	}

	switch action := c.Query("action"); action {
	case "":
	case "more":
		view.ShowMore()
	case "less":
		view.ShowLess()
	default:
		return nil, fmt.Errorf("unknown action %q", action)
	}
	return view, nil
}

func (s *Server) handleFilters(c *gin.Context) {
	filters := gallery.Filters()
	names := make([]string, 0, len(filters))
	for _, f := range filters {
		names = append(names, f.String())
	}
	c.JSON(http.StatusOK, gin.H{"filters": names, "pageSize": gallery.PageSize})
}

func (s *Server) handleHero(c *gin.Context) {
	images, err := catalog.Collect(s.deps.Catalog.List(c.Request.Context(), bucket.HeroTag))
	if err != nil {
		s.writeError(c, err)
		return
	}
	hero, ok := gallery.HeroBanner(images)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no hero image"})
		return
	}
	c.JSON(http.StatusOK, hero)
}

func (s *Server) handleContact(c *gin.Context) {
	if s.deps.Relay == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "contact relay is not configured"})
		return
	}
	var inq models.Inquiry
	if err := c.ShouldBindJSON(&inq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.deps.Relay.Send(c.Request.Context(), inq); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (s *Server) handleGetUpload(c *gin.Context) {
	c.JSON(http.StatusOK, s.sessions.get(operatorID(c)).Snapshot())
}

func (s *Server) handleChoose(c *gin.Context) {
	const op = "server.handleChoose"

	b, err := bucket.Parse(c.PostForm("bucket"), c.PostForm("category"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("%s: %v", op, err)})
		return
	}

	snap, err := s.deps.Uploads.Choose(s.sessions.get(operatorID(c)), data, file.Filename, b)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type adjustRequest struct {
	Pan  models.Pan `json:"pan"`
	Zoom float64    `json:"zoom" binding:"required"`
}

func (s *Server) handleAdjust(c *gin.Context) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := s.sessions.get(operatorID(c))
	rect, err := s.deps.Uploads.Adjust(sess, req.Pan, req.Zoom)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess.Snapshot(), "rect": rect})
}

func (s *Server) handleConfirm(c *gin.Context) {
	res, err := s.deps.Uploads.Confirm(c.Request.Context(), s.sessions.get(operatorID(c)))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) handleCancel(c *gin.Context) {
	sess := s.sessions.get(operatorID(c))
	if err := s.deps.Uploads.Cancel(sess); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteImage(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if err := s.deps.Catalog.Delete(ctx, id); err != nil {
		s.writeError(c, err)
		return
	}
	s.logger.Info("image deleted", slog.String("id", id), slog.String("operator", operatorID(c)))

	images, err := catalog.Collect(s.deps.Catalog.List(ctx, ""))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInquiry):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUploadInProgress), errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidSelection),
		errors.Is(err, models.ErrRasterizationFailed),
		errors.Is(err, models.ErrEncodingFailed),
		errors.Is(err, models.ErrStoreRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}

	var stageErr *upload.StageError
	if errors.As(err, &stageErr) {
		body["stage"] = stageErr.Stage
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
	}
	c.JSON(status, body)
}
