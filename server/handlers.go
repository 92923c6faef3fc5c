package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"mosn.io/ballast"
)

// requestedStress echoes the stress parameters as the caller sent them,
// Threads is nil when the caller let it default.
type requestedStress struct {
	Threads   *int    `json:"threads"`
	Duration  int     `json:"duration"`
	Intensity float64 `json:"intensity"`
}

func (s *Server) health(c *gin.Context) {
	s.reply(c, gin.H{
		"status":    "healthy",
		"timestamp": float64(time.Now().UnixNano()) / float64(time.Second),
	})
}

func (s *Server) ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ready",
		"memory_allocated": s.b.Ready(),
	})
}

func (s *Server) memory(c *gin.Context) {
	c.JSON(http.StatusOK, s.b.MemoryStats())
}

func (s *Server) cpu(c *gin.Context) {
	c.JSON(http.StatusOK, s.b.CPUStats())
}

func (s *Server) resources(c *gin.Context) {
	c.JSON(http.StatusOK, s.b.ResourceStats())
}

func (s *Server) allocateQuery(c *gin.Context) {
	mb, ok := queryInt(c, "mb")
	if !ok {
		mb = s.b.Memory.DefaultTargetMB()
	}
	s.allocate(c, mb)
}

func (s *Server) allocatePath(c *gin.Context) {
	mb, ok := pathInt(c, "mb")
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	s.allocate(c, mb)
}

func (s *Server) allocate(c *gin.Context, mb int) {
	actual, err := s.b.Allocate(mb)
	success := err == nil
	if !success {
		actual = 0
	}
	s.reply(c, gin.H{
		"success":      success,
		"message":      "Memory allocation " + outcome(success, "completed", "failed"),
		"requested_mb": mb,
		"allocated_mb": actual,
	})
}

func (s *Server) release(c *gin.Context) {
	n := s.b.Release()
	s.logger.Infof("[http] released %d memory chunks", n)
	s.reply(c, gin.H{
		"success":         true,
		"chunks_released": n,
	})
}

func (s *Server) stressQuery(c *gin.Context) {
	var threads *int
	if n, ok := queryInt(c, "threads"); ok {
		threads = &n
	}
	s.stress(c, threads)
}

func (s *Server) stressPath(c *gin.Context) {
	n, ok := pathInt(c, "threads")
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	s.stress(c, &n)
}

func (s *Server) stress(c *gin.Context, threads *int) {
	def := s.b.CPU.DefaultParams()
	req := requestedStress{
		Threads:   threads,
		Duration:  def.DurationSec,
		Intensity: def.Intensity,
	}
	if d, ok := queryInt(c, "duration"); ok {
		req.Duration = d
	}
	if i, ok := queryFloat(c, "intensity"); ok {
		req.Intensity = i
	}

	params := ballast.StressParams{
		Threads:     def.Threads,
		DurationSec: req.Duration,
		Intensity:   req.Intensity,
	}
	if threads != nil {
		params.Threads = *threads
	}
	actual := s.b.StartStress(params)

	s.reply(c, gin.H{
		"success":   true,
		"message":   "CPU stress test started",
		"requested": req,
		"actual":    actual,
	})
}

func (s *Server) stop(c *gin.Context) {
	success := s.b.StopStress()
	s.reply(c, gin.H{
		"success": success,
		"message": "CPU stress test " + outcome(success, "stopped", "failed to stop completely"),
	})
}

func (s *Server) root(c *gin.Context) {
	if s.variant == MemoryOnly {
		s.memoryRoot(c)
		return
	}

	minMB, maxMB := s.b.Memory.Bounds()
	cores := s.b.CPU.Cores()
	s.reply(c, gin.H{
		"app":         resourceApp,
		"version":     resourceVersion,
		"description": "Memory and CPU testing application for OpenShift resource limits",
		"capabilities": gin.H{
			"memory_testing": fmt.Sprintf("Up to %gGB allocation", s.targetGB()),
			"cpu_testing":    fmt.Sprintf("Up to %d thread stress testing", cores),
		},
		"endpoints": gin.H{
			"/health":                                      "Health check with resource stats",
			"/ready":                                       "Readiness probe",
			"/memory":                                      "Memory statistics only",
			"/cpu":                                         "CPU statistics only",
			"/resources":                                   "Combined memory and CPU statistics",
			"/allocate":                                    fmt.Sprintf("Memory allocation (default %gGB)", s.targetGB()),
			"/allocate?mb=X":                               "Allocate X MB of memory",
			"/allocate/<mb>":                               "Allocate specific MB via path",
			"/release":                                     "Release allocated memory",
			"/cpu/stress":                                  "Start CPU stress test",
			"/cpu/stress?threads=X&duration=Y&intensity=Z": "CPU stress with params",
			"/cpu/stress/<threads>":                        "CPU stress with specific thread count",
			"/cpu/stop":                                    "Stop CPU stress test",
			"/metrics":                                     "Prometheus metrics",
		},
		"usage_examples": gin.H{
			"memory_allocate_default": fmt.Sprintf("/allocate (allocates %gGB)", s.targetGB()),
			"memory_allocate_query":   "/allocate?mb=500 (allocates 500MB)",
			"memory_allocate_path":    "/allocate/1024 (allocates 1GB)",
			"cpu_stress_default":      "/cpu/stress (30s, all cores, 100% intensity)",
			"cpu_stress_custom":       "/cpu/stress?threads=2&duration=60&intensity=0.5",
			"cpu_stress_path":         "/cpu/stress/4 (4 threads, 30s, 100% intensity)",
			"resource_stats":          "/resources (combined stats)",
		},
		"limits": gin.H{
			"memory_min_mb":        minMB,
			"memory_max_mb":        maxMB,
			"cpu_max_threads":      cores,
			"cpu_max_duration_sec": 300,
			"host_memory_mb":       s.b.HostMemoryBytes() / (1 << 20),
			"container_limits":     s.b.Limits(),
		},
	})
}

func (s *Server) memoryRoot(c *gin.Context) {
	minMB, maxMB := s.b.Memory.Bounds()
	s.reply(c, gin.H{
		"app":         memoryApp,
		"version":     memoryVersion,
		"description": fmt.Sprintf("Memory testing application - Max: %gGB", s.targetGB()),
		"endpoints": gin.H{
			"/health":        "Health check",
			"/ready":         "Readiness probe",
			"/memory":        "Memory statistics",
			"/allocate":      fmt.Sprintf("Trigger memory allocation (default %gGB)", s.targetGB()),
			"/allocate?mb=X": "Allocate X MB of memory",
			"/allocate/<mb>": "Allocate specific MB via path (e.g., /allocate/500)",
			"/release":       "Release allocated memory",
			"/metrics":       "Prometheus metrics",
		},
		"usage_examples": gin.H{
			"allocate_default": fmt.Sprintf("/allocate (allocates %gGB)", s.targetGB()),
			"allocate_query":   "/allocate?mb=500 (allocates 500MB)",
			"allocate_path":    "/allocate/1024 (allocates 1GB)",
			"memory_stats":     "/memory (current usage)",
		},
		"limits": gin.H{
			"min_mb":          minMB,
			"max_mb":          maxMB,
			"host_memory_mb":  s.b.HostMemoryBytes() / (1 << 20),
			"container_limit": s.b.Limits(),
		},
	})
}

func (s *Server) targetGB() float64 {
	return float64(s.b.Memory.DefaultTargetMB()) / 1024
}

func outcome(ok bool, good, bad string) string {
	if ok {
		return good
	}
	return bad
}

// queryInt reads an integer query value, unparsable values count as absent.
// Integers too large for int saturate and get clamped by the caller.
func queryInt(c *gin.Context, key string) (int, bool) {
	v, ok := c.GetQuery(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if errors.Is(err, strconv.ErrRange) {
		if strings.HasPrefix(v, "-") {
			return math.MinInt, true
		}
		return math.MaxInt, true
	}
	if err != nil {
		return 0, false
	}
	return n, true
}

// queryFloat reads a finite float query value.
func queryFloat(c *gin.Context, key string) (float64, bool) {
	v, ok := c.GetQuery(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// pathInt accepts unsigned decimal path values only, oversized ones saturate.
func pathInt(c *gin.Context, key string) (int, bool) {
	n, err := strconv.ParseUint(c.Param(key), 10, 0)
	if errors.Is(err, strconv.ErrRange) || (err == nil && n > math.MaxInt) {
		return math.MaxInt, true
	}
	if err != nil {
		return 0, false
	}
	return int(n), true
}
