package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// ImageHandler serves the locally stored property images.
type ImageHandler struct {
	dir string
}

func NewImageHandler(dir string) *ImageHandler {
	return &ImageHandler{dir: dir}
}

// Serve handles GET /images/:name.
func (h *ImageHandler) Serve(c *gin.Context) {
	name := c.Param("name")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		c.Status(http.StatusNotFound)
		return
	}

	path := filepath.Join(h.dir, name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		c.Status(http.StatusNotFound)
		return
	}

	// File names are random and never rewritten.
	c.Header("Cache-Control", "public, max-age=604800, immutable")
	c.File(path)
}
