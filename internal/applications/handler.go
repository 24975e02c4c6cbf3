package applications

import (
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/storage"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/logger"
)

// RegisterRoutes mounts the public submission endpoint and the admin
// review endpoints. limit guards submissions; admin guards everything else.
func RegisterRoutes(r gin.IRouter, svc *Service, store *storage.Store, admin, limit gin.HandlerFunc) {
	pass := func(c *gin.Context) { c.Next() }
	if admin == nil {
		admin = pass
	}
	if limit == nil {
		limit = pass
	}
	g := r.Group("/api/applications")

	g.POST("", limit, func(c *gin.Context) {
		var sub Submission
		if err := c.ShouldBind(&sub); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		var docs []storage.Upload
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			form, err := c.MultipartForm()
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			docs = storage.FromFileHeaders(form.File["documents"])
		}
		a, sent, err := svc.Submit(c.Request.Context(), sub, docs)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"id":        a.ID,
			"status":    a.Status,
			"emailSent": sent,
			"message":   "Application submitted successfully",
		})
	})

	g.GET("", admin, func(c *gin.Context) {
		f := Filter{Status: Status(c.Query("status")), Program: c.Query("program")}
		if n, err := strconv.Atoi(c.Query("limit")); err == nil && n > 0 {
			f.Limit = n
		}
		list, err := svc.List(c.Request.Context(), f)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	g.GET("/:id", admin, func(c *gin.Context) {
		a, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	})

	g.PATCH("/:id/status", admin, func(c *gin.Context) {
		var req struct {
			Status Status  `json:"status" binding:"required"`
			Notes  *string `json:"notes"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := svc.SetStatus(c.Request.Context(), c.Param("id"), req.Status, req.Notes)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	})

	g.DELETE("/:id", admin, func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	g.GET("/:id/files/:filename", admin, func(c *gin.Context) {
		meta, err := svc.Document(c.Request.Context(), c.Param("id"), c.Param("filename"))
		if err != nil {
			writeError(c, err)
			return
		}
		if store == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": meta.OriginalName}))
		storage.ServeFile(c, store, meta.Dir, meta.Filename)
	})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, ErrValidation),
		errors.Is(err, storage.ErrEmpty),
		errors.Is(err, storage.ErrUnsupportedType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	default:
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
