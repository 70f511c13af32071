package main

import (
	"fmt"
	"image"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"cardscan/pkg/catalog"
	"cardscan/pkg/logger"
	"cardscan/pkg/ocr"
	"cardscan/pkg/scan"
)

const maxUploadBytes = 8 << 20

type server struct {
	orch    *scan.Orchestrator
	matcher *catalog.Matcher
	tally   *scan.Tally
	secret  []byte
	log     zerolog.Logger
}

func newServer(a *app) *server {
	return &server{
		orch:    a.orch,
		matcher: a.matcher,
		tally:   a.tally,
		secret:  []byte(a.cfg.JWTSecret),
		log:     logger.WithComponent("http"),
	}
}

func (s *server) engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log))
	setupRoutes(r, s)
	return r
}

func setupRoutes(r *gin.Engine, s *server) {
	r.GET("/healthz", s.healthHandler)
	api := r.Group("/api")
	api.Use(jwtAuthMiddleware(s.secret))
	api.POST("/scan", s.scanHandler)
	api.GET("/catalog/match", s.matchHandler)
	api.GET("/stats", s.statsHandler)
}

func requestLogger(l zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		l.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func (s *server) healthHandler(c *gin.Context) {
	caps := s.orch.Capabilities()
	status := http.StatusOK
	if !caps.Catalog || !(caps.Recognizer || caps.Paid) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"capabilities": caps,
		"catalog_size": s.matcher.Catalog().Len(),
	})
}

// scanHandler accepts one or more images under the "file" or "files" form
// fields and scans them in upload order. Every file yields an outcome, an
// unreadable one included.
func (s *server) scanHandler(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form expected"})
		return
	}
	files := append(form.File["file"], form.File["files"]...)
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	source := c.PostForm("source")

	items := make([]scan.Item, 0, len(files))
	for _, fh := range files {
		name := fh.Filename
		if source != "" {
			name = source + "/" + fh.Filename
		}
		items = append(items, scan.Item{Source: name, Open: openUpload(fh)})
	}
	outcomes := s.orch.Batch(c.Request.Context(), items, nil)
	c.JSON(http.StatusOK, gin.H{"outcomes": outcomes})
}

func openUpload(fh *multipart.FileHeader) func() (image.Image, error) {
	return func() (image.Image, error) {
		if fh.Size > maxUploadBytes {
			return nil, fmt.Errorf("file too large (max %d bytes)", maxUploadBytes)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ocr.DecodeImage(f)
	}
}

func (s *server) matchHandler(c *gin.Context) {
	id := c.Query("identifier")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identifier is required"})
		return
	}
	m := s.matcher.Match(id, c.Query("name"))
	if m.Status == catalog.StatusUnavailable {
		c.JSON(http.StatusServiceUnavailable, m)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *server) statsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tally":        s.tally.Snapshot(),
		"capabilities": s.orch.Capabilities(),
		"catalog": gin.H{
			"source":  s.matcher.Catalog().Source(),
			"records": s.matcher.Catalog().Len(),
		},
	})
}
