package serve

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/praetorian-inc/almanac/pkg/engine"
	"go.uber.org/zap"
)

// Version is the server protocol version
const Version = "1.0.0"

// maxLineSize bounds a single request line.
const maxLineSize = 1 << 20

// Server answers almanac requests over NDJSON
type Server struct {
	core    *engine.Core
	encoder *json.Encoder
	scanner *bufio.Scanner
	logger  *zap.Logger
}

// inbound is one decoded request line, or the reason it could not be decoded.
type inbound struct {
	req Request
	err error
}

// NewServer creates a new streaming server. A nil logger disables logging.
func NewServer(core *engine.Core, in io.Reader, out io.Writer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Server{
		core:    core,
		encoder: json.NewEncoder(out),
		scanner: scanner,
		logger:  logger,
	}
}

// Run starts the server main loop. Each input line is one request; a line
// that does not decode gets a "decode" error response and the session
// continues.
func (s *Server) Run(ctx context.Context) error {
	// Send ready signal
	s.sendReady()

	// Use buffered channels for incoming requests
	reqChan := make(chan inbound, 1)
	errChan := make(chan error, 1)

	go func() {
		for s.scanner.Scan() {
			line := bytes.TrimSpace(s.scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var in inbound
			in.err = json.Unmarshal(line, &in.req)
			select {
			case reqChan <- in:
			case <-ctx.Done():
				return
			}
		}
		err := s.scanner.Err()
		if err == nil {
			err = io.EOF
		}
		errChan <- err
	}()

	// Process requests until stdin closes or context cancels
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			// Drain any pending requests before handling EOF
			for {
				select {
				case in := <-reqChan:
					if s.handle(ctx, in) {
						return nil
					}
				default:
					// No more pending requests
					if err == io.EOF {
						return nil
					}
					s.sendError("read", err.Error())
					return nil
				}
			}
		case in := <-reqChan:
			if s.handle(ctx, in) {
				return nil
			}
		}
	}
}

func (s *Server) handle(ctx context.Context, in inbound) bool {
	if in.err != nil {
		s.logger.Debug("decode failed", zap.Error(in.err))
		s.sendError("decode", in.err.Error())
		return false
	}
	return s.processRequest(ctx, in.req)
}

// processRequest handles a single request and returns true if the server should exit
func (s *Server) processRequest(ctx context.Context, req Request) bool {
	s.logger.Debug("request", zap.String("type", req.Type))

	switch req.Type {
	case "lookup":
		s.handleLookup(req.Payload)
	case "resolve":
		s.handleResolve(ctx, req.Payload)
	case "solve":
		s.handleSolve(ctx)
	case "runs":
		s.handleRuns()
	case "close":
		return true
	default:
		s.sendError("unknown", "unknown request type: "+req.Type)
	}
	return false
}

func (s *Server) sendReady() {
	a := s.core.Almanac()
	s.send("ready", ReadyData{
		Version: Version,
		Almanac: a.Name,
		Stages:  a.StageNames(),
	})
}

func (s *Server) handleLookup(payload json.RawMessage) {
	var p LookupPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("lookup", err.Error())
		return
	}

	result, err := s.core.Lookup(p.Values)
	if err != nil {
		s.sendError("lookup", err.Error())
		return
	}
	s.send("lookup", result)
}

func (s *Server) handleResolve(ctx context.Context, payload json.RawMessage) {
	var p ResolvePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError("resolve", err.Error())
		return
	}

	result, err := s.core.Resolve(ctx, p.Ranges)
	if err != nil {
		s.sendError("resolve", err.Error())
		return
	}
	s.send("resolve", result)
}

func (s *Server) handleSolve(ctx context.Context) {
	ans, err := s.core.Solve(ctx)
	if err != nil {
		s.sendError("solve", err.Error())
		return
	}
	s.send("solve", ans)
}

func (s *Server) handleRuns() {
	runs, err := s.core.Runs()
	if err != nil {
		s.sendError("runs", err.Error())
		return
	}
	s.send("runs", runs)
}

func (s *Server) send(respType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.sendError(respType, err.Error())
		return
	}
	if err := s.encoder.Encode(Response{
		Success: true,
		Type:    respType,
		Data:    data,
	}); err != nil {
		s.logger.Warn("writing response", zap.String("type", respType), zap.Error(err))
	}
}

func (s *Server) sendError(reqType, msg string) {
	s.logger.Debug("request failed", zap.String("type", reqType), zap.String("error", msg))
	if err := s.encoder.Encode(Response{
		Success: false,
		Type:    reqType,
		Error:   msg,
	}); err != nil {
		s.logger.Warn("writing response", zap.String("type", reqType), zap.Error(err))
	}
}
