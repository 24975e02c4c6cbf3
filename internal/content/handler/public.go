package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/content"
	"github.com/fishcollege/fishcollege/backend/go-services/internal/content/service"
)

const latestNews = 5

// RegisterPublicRoutes mounts the read-only routes used by the public site.
// Only published records are ever returned.
func RegisterPublicRoutes(r gin.IRouter, svc *service.Service) {
	g := r.Group("/api/public")

	g.GET("/overview", func(c *gin.Context) {
		ctx := c.Request.Context()
		pub := true
		counts := map[string]int64{}
		for _, k := range content.Kinds() {
			n, err := svc.Count(ctx, k.Name, content.Filter{Published: &pub})
			if err != nil {
				writeError(c, err)
				return
			}
			counts[k.Name] = n
		}
		news, err := svc.List(ctx, "news", content.Filter{Published: &pub, Limit: latestNews})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"counts": counts, "latestNews": news})
	})

	g.GET("/:kind", func(c *gin.Context) {
		list, err := svc.List(c.Request.Context(), c.Param("kind"), filterFromQuery(c, false))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	g.GET("/:kind/:slug", func(c *gin.Context) {
		rec, err := svc.GetBySlug(c.Request.Context(), c.Param("kind"), c.Param("slug"))
		if err == nil && !rec.IsPublished {
			err = content.ErrNotFound
		}
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	})
}
