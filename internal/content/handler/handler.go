package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/content"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/content/service"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/storage"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/logger"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/middleware"
)

const maxListLimit = 500

// Guards are the auth middlewares applied to the routes. Nil entries let
// every request through.
type Guards struct {
	// Admin must pass for every mutation.
	Admin gin.HandlerFunc
	// Optional identifies admins on reads so they also see drafts.
	Optional gin.HandlerFunc
}

func orPass(h gin.HandlerFunc) gin.HandlerFunc {
	if h == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return h
}

type kindHandler struct {
	kind string
	svc  *service.Service
}

// RegisterContentRoutes mounts the CRUD routes of every kind under /api/<kind>.
func RegisterContentRoutes(r gin.IRouter, svc *service.Service, guards Guards) {
	admin, optional := orPass(guards.Admin), orPass(guards.Optional)
	for _, k := range content.Kinds() {
		h := &kindHandler{kind: k.Name, svc: svc}
		g := r.Group("/api/" + k.Name)
		g.GET("", optional, h.list)
		g.POST("", admin, h.create)
		g.PUT("/order", admin, h.reorder)
		g.GET("/:id", optional, h.get)
		g.PATCH("/:id", admin, h.update)
		g.DELETE("/:id", admin, h.delete)
		g.POST("/:id/files", admin, h.attach)
		g.DELETE("/:id/files/:filename", admin, h.detach)
	}
}

// writeError maps service errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, content.ErrNotFound), errors.Is(err, content.ErrUnknownKind):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, content.ErrValidation),
		errors.Is(err, storage.ErrEmpty),
		errors.Is(err, storage.ErrUnsupportedType),
		errors.Is(err, storage.ErrInvalidPath):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	default:
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// filterFromQuery reads section, subsection, search, limit and published.
// Only admins may ask for drafts; everyone else sees published records.
func filterFromQuery(c *gin.Context, admin bool) content.Filter {
	f := content.Filter{
		Section:    c.Query("section"),
		Subsection: c.Query("subsection"),
		Search:     strings.TrimSpace(c.Query("search")),
	}
	if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
		if n > maxListLimit {
			n = maxListLimit
		}
		f.Limit = n
	}
	if admin {
		if p, err := strconv.ParseBool(c.Query("published")); err == nil {
			f.Published = &p
		}
	} else {
		pub := true
		f.Published = &pub
	}
	return f
}

func (h *kindHandler) list(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), h.kind, filterFromQuery(c, middleware.IsAuthenticated(c)))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *kindHandler) get(c *gin.Context) {
	r, err := h.svc.Get(c.Request.Context(), h.kind, c.Param("id"))
	if err == nil && !r.IsPublished && !middleware.IsAuthenticated(c) {
		err = content.ErrNotFound
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// bindInput accepts a JSON body, or a multipart form carrying either a
// "payload" JSON field or individual fields plus documents/images files.
func bindInput(c *gin.Context) (service.Input, []storage.Upload, []storage.Upload, error) {
	var in service.Input
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&in); err != nil {
			return in, nil, nil, err
		}
		return in, nil, nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return in, nil, nil, err
	}
	if payload := c.PostForm("payload"); payload != "" {
		if err := json.Unmarshal([]byte(payload), &in); err != nil {
			return in, nil, nil, err
		}
	} else {
		in.Title = c.PostForm("title")
		in.Description = c.PostForm("description")
		in.Slug = c.PostForm("slug")
		in.Section = c.PostForm("section")
		in.Subsection = c.PostForm("subsection")
		in.IsPublished, _ = strconv.ParseBool(c.PostForm("isPublished"))
		in.Order, _ = strconv.Atoi(c.PostForm("order"))
		if data := c.PostForm("data"); data != "" {
			if err := json.Unmarshal([]byte(data), &in.Data); err != nil {
				return in, nil, nil, err
			}
		}
	}
	return in, storage.FromFileHeaders(form.File[service.FieldDocuments]), storage.FromFileHeaders(form.File[service.FieldImages]), nil
}

func (h *kindHandler) create(c *gin.Context) {
	in, docs, images, err := bindInput(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := h.svc.Create(c.Request.Context(), h.kind, in, docs, images)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *kindHandler) update(c *gin.Context) {
	var p content.Patch
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := h.svc.Update(c.Request.Context(), h.kind, c.Param("id"), p)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *kindHandler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), h.kind, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *kindHandler) reorder(c *gin.Context) {
	var items []content.OrderItem
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, it := range items {
		if it.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
			return
		}
	}
	if err := h.svc.Reorder(c.Request.Context(), h.kind, items); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": len(items)})
}

func (h *kindHandler) attach(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	field := c.DefaultPostForm("field", service.FieldDocuments)
	files := form.File[field]
	if len(files) == 0 {
		files = form.File["files"]
	}
	r, err := h.svc.AttachFiles(c.Request.Context(), h.kind, c.Param("id"), field, storage.FromFileHeaders(files))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *kindHandler) detach(c *gin.Context) {
	r, err := h.svc.DetachFile(c.Request.Context(), h.kind, c.Param("id"), c.Param("filename"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
