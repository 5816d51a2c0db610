package mcp

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Server exposes the Dispatcher over HTTP using Echo, the single
// "POST /mcp" endpoint required by the Streamable HTTP transport. A
// dedicated stdio server (pkg/mcp/stdio) handles the line-delimited
// transport used when launched as a subprocess.
type Server struct {
	echo       *echo.Echo
	dispatcher Handler
	logger     *zap.Logger
}

// NewServer wires Echo routes around dispatcher. dispatcher is typically a
// *Dispatcher, or a monitoring-wrapped Handler around one.
func NewServer(dispatcher Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, dispatcher: dispatcher, logger: logger}
	e.POST("/mcp", s.handleMCP)
	e.GET("/healthz", s.handleHealth)
	return s
}

// Echo exposes the underlying router so callers can attach middleware
// (rate limiting, OTel instrumentation) before Start.
func (s *Server) Echo() *echo.Echo { return s.echo }

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMCP(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, JSONRPCErrorResponse{
			JSONRPC: "2.0",
			Error:   &ErrorDetail{Code: ParseError, Message: "failed to read request body"},
		})
	}

	resp, hasResponse := s.dispatcher.Handle(c.Request().Context(), body)
	if !hasResponse {
		return c.NoContent(http.StatusAccepted)
	}
	return c.JSONBlob(http.StatusOK, resp)
}
