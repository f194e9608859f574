// Package rtlhttp is a small read-only HTTP surface for status and
// device enumeration, independent of the byte-compatible rtl_tcp wire
// protocol. It never mutates tuner or device state.
package rtlhttp

import (
	"time"

	"github.com/gin-gonic/gin"

	"rtlsdr/internal/rtl"
	"rtlsdr/internal/rtltcp"
)

// StatusProvider is the minimal view the HTTP surface needs of the
// running tcp server and device, kept as an interface so tests can stub
// it without a real USB device.
type StatusProvider interface {
	CenterFreq() uint32
	SampleRate() uint32
}

// Server wraps a gin engine exposing /healthz, /status, and /devices.
type Server struct {
	engine    *gin.Engine
	sdr       StatusProvider
	tcpServer *rtltcp.Server
	startedAt time.Time
}

// NewServer builds the HTTP surface. sdr may be nil before the device is
// initialized; handlers degrade gracefully.
func NewServer(sdr StatusProvider, tcpServer *rtltcp.Server) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:    gin.New(),
		sdr:       sdr,
		tcpServer: tcpServer,
		startedAt: time.Now(),
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealthz)
	s.engine.GET("/status", s.handleStatus)
	s.engine.GET("/devices", s.handleDevices)
}

// Handler returns the underlying http.Handler for use with http.Server.
func (s *Server) Handler() *gin.Engine { return s.engine }

func (s *Server) handleHealthz(c *gin.Context) {
	if s.sdr == nil {
		c.JSON(503, gin.H{"status": "no device open"})
		return
	}
	c.JSON(200, gin.H{"status": "ok"})
}

type statusResponse struct {
	FrequencyHz  uint32 `json:"frequency_hz"`
	SampleRateHz uint32 `json:"sample_rate_hz"`
	SessionID    string `json:"session_id,omitempty"`
	UptimeSec    int64  `json:"uptime_seconds"`
}

func (s *Server) handleStatus(c *gin.Context) {
	resp := statusResponse{UptimeSec: int64(time.Since(s.startedAt).Seconds())}
	if s.sdr != nil {
		resp.FrequencyHz = s.sdr.CenterFreq()
		resp.SampleRateHz = s.sdr.SampleRate()
	}
	if s.tcpServer != nil {
		if v, ok := s.tcpServer.LastSessionID.Load().(interface{ String() string }); ok {
			resp.SessionID = v.String()
		}
	}
	c.JSON(200, resp)
}

func (s *Server) handleDevices(c *gin.Context) {
	devices, err := rtl.ListDevices()
	if err != nil {
		c.JSON(500, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, gin.H{"devices": devices})
}
