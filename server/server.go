// Package server exposes a Ballast over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	mlog "mosn.io/pkg/log"

	"mosn.io/ballast"
)

// Variant selects the route set served.
type Variant int

const (
	// Resource serves memory and cpu routes.
	Resource Variant = iota
	// MemoryOnly serves the memory routes only.
	MemoryOnly
)

const (
	resourceApp     = "resource-test-app"
	resourceVersion = "2.0.0"
	memoryApp       = "memory-test-app"
	memoryVersion   = "1.1.0"
)

// Server holds the handlers of one ballast.
type Server struct {
	b       *ballast.Ballast
	variant Variant
	logger  mlog.ErrorLogger
}

// New creates a server for b.
func New(b *ballast.Ballast, variant Variant, logger mlog.ErrorLogger) *Server {
	return &Server{
		b:       b,
		variant: variant,
		logger:  logger,
	}
}

// Handler builds the gin engine with every route of the variant.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(accessLog(s.logger), gin.Recovery())

	r.GET("/", s.root)
	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/memory", s.memory)
	r.GET("/allocate", s.allocateQuery)
	r.GET("/allocate/:mb", s.allocatePath)
	r.GET("/release", s.release)

	if s.variant == Resource {
		r.GET("/cpu", s.cpu)
		r.GET("/resources", s.resources)
		r.GET("/cpu/stress", s.stressQuery)
		r.GET("/cpu/stress/:threads", s.stressPath)
		r.GET("/cpu/stop", s.stop)
	}

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.b.Registry(), promhttp.HandlerOpts{})))
	return r
}

// statsKey is the name the stats snapshot is attached under.
func (s *Server) statsKey() string {
	if s.variant == MemoryOnly {
		return "memory_stats"
	}
	return "resource_stats"
}

func (s *Server) stats() interface{} {
	if s.variant == MemoryOnly {
		return s.b.MemoryStats()
	}
	return s.b.ResourceStats()
}

// reply attaches the stats snapshot to h and writes it.
func (s *Server) reply(c *gin.Context, h gin.H) {
	h[s.statsKey()] = s.stats()
	c.JSON(http.StatusOK, h)
}

func accessLog(logger mlog.ErrorLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Infof("[http] %s %s %d %s %v", c.Request.Method, c.Request.URL.RequestURI(),
			c.Writer.Status(), c.ClientIP(), time.Since(start))
	}
}
