// Package stdio implements the line-delimited JSON-RPC transport used when
// the server is launched as an MCP subprocess (stdin/stdout) rather than a
// network service.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/contextframeai/contextframe-mcp/pkg/mcp"
)

const maxLineBytes = 10 << 20 // 10MB per message

// Codec reads one JSON-RPC message per line from r.
type Codec struct {
	scanner *bufio.Scanner
}

// NewCodec wraps r for line-delimited JSON-RPC reads.
func NewCodec(r io.Reader) *Codec {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Codec{scanner: s}
}

// ReadMessage returns the next non-blank line as a raw JSON message. It
// returns io.EOF when the underlying reader is exhausted.
func (c *Codec) ReadMessage() (json.RawMessage, error) {
	for c.scanner.Scan() {
		line := c.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		out := make(json.RawMessage, len(line))
		copy(out, line)
		return out, nil
	}
	if err := c.scanner.Err(); err != nil {
		return nil, fmt.Errorf("stdio: read failed: %w", err)
	}
	return nil, io.EOF
}

// Server drives a Dispatcher over stdin/stdout, one JSON-RPC message per
// line in, one per line out. Writes are serialized since stdout is a
// single shared stream.
type Server struct {
	dispatcher mcp.Handler
	in         io.Reader
	out        io.Writer
	logger     *zap.Logger
	writeMu    sync.Mutex
}

// NewServer builds a stdio server around dispatcher, reading in and writing
// responses to out. dispatcher is typically a *mcp.Dispatcher, or a
// monitoring-wrapped Handler around one.
func NewServer(dispatcher mcp.Handler, in io.Reader, out io.Writer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{dispatcher: dispatcher, in: in, out: out, logger: logger}
}

// Serve reads messages until ctx is canceled or the input stream is
// exhausted, dispatching each one and writing back any response. Each
// message is handled in its own goroutine so a slow tool call does not
// block subsequent requests from being read and queued.
func (s *Server) Serve(ctx context.Context) error {
	codec := NewCodec(s.in)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := codec.ReadMessage()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		wg.Add(1)
		go func(msg json.RawMessage) {
			defer wg.Done()
			resp, hasResponse := s.dispatcher.Handle(ctx, msg)
			if !hasResponse {
				return
			}
			if err := s.writeLine(resp); err != nil {
				s.logger.Error("stdio: failed to write response", zap.Error(err))
			}
		}(msg)
	}
}

func (s *Server) writeLine(msg json.RawMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(msg); err != nil {
		return err
	}
	_, err := s.out.Write([]byte("\n"))
	return err
}
