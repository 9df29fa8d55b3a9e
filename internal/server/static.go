package server

import (
	"errors"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
)

const indexFile = "index.html"

// static serves the UI for anything no route matched. /api/* always gets a JSON 404.
// In production unknown GET paths fall back to index.html.
func (s *Server) static() gin.HandlerFunc {
	ui := s.opts.UI
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/") || p == "/api" || ui == nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": msgNotFound})
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": msgNotFound})
			return
		}

		name := strings.TrimPrefix(path.Clean(p), "/")
		if name == "" || name == indexFile {
			s.serveIndex(c, ui)
			return
		}
		if st, err := fs.Stat(ui, name); err == nil && !st.IsDir() {
			http.ServeFileFS(c.Writer, c.Request, ui, name)
			return
		}
		if s.opts.Production {
			s.serveIndex(c, ui)
			return
		}
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	}
}

// serveIndex writes index.html directly; http.FileServer would redirect /index.html to /.
func (s *Server) serveIndex(c *gin.Context, ui fs.FS) {
	b, err := fs.ReadFile(ui, indexFile)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fs.ErrNotExist) {
			status = http.StatusNotFound
		}
		s.logger.Error("static.index_error", "error", err)
		c.AbortWithStatusJSON(status, gin.H{"error": msgNotFound})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", b)
}
