package storage

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fishcollege/fishcollege/backend/go-services/internal/fileurl"
	"github.com/fishcollege/fishcollege/backend/go-services/pkg/logger"
)

// RegisterRoutes serves stored files from the public upload directories at
// /uploads/:dir/:name.
func RegisterRoutes(r gin.IRoutes, store *Store) {
	public := map[string]bool{}
	for _, d := range PublicDirs {
		public[d] = true
	}
	r.GET(fileurl.Prefix+"/:dir/:name", func(c *gin.Context) {
		dir := c.Param("dir")
		if !public[dir] {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		ServeFile(c, store, dir, c.Param("name"))
	})
}

// ServeFile streams a stored file to the client.
func ServeFile(c *gin.Context, store *Store, dir, name string) {
	rc, size, err := store.Open(c.Request.Context(), dir, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidPath) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		logger.Errorf("open %s/%s: %v", dir, name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}
	defer rc.Close()
	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, size, TypeByName(name), rc, nil)
}
