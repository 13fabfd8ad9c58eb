package frame

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/rbright/sttworkers/internal/protocol"
)

// Handler processes one decoded request against its audio payload. This is
// the same Handler/HandlerFunc adapter seam this codebase's lineage uses for
// its in-process command dispatch, generalized to a wire protocol: one
// handler per action, registered into a Mux.
type Handler interface {
	Handle(ctx context.Context, req protocol.Request, audio []byte) protocol.Response
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, req protocol.Request, audio []byte) protocol.Response

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req protocol.Request, audio []byte) protocol.Response {
	return f(ctx, req, audio)
}

// Mux routes decoded requests to a Handler by action name.
type Mux struct {
	logger   *slog.Logger
	handlers map[string]Handler
}

// NewMux builds an empty dispatcher. logger may be nil, in which case a
// discarding logger is used.
func NewMux(logger *slog.Logger) *Mux {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Mux{logger: logger, handlers: make(map[string]Handler)}
}

// Handle registers h for action.
func (m *Mux) Handle(action string, h Handler) {
	m.handlers[action] = h
}

// HandleFunc registers f for action.
func (m *Mux) HandleFunc(action string, f func(ctx context.Context, req protocol.Request, audio []byte) protocol.Response) {
	m.Handle(action, HandlerFunc(f))
}

// Serve reads frames from r until clean EOF, dispatches each to the
// registered handler for its action, and writes one reply frame per request
// to w. It returns nil on clean shutdown and a non-nil error on any
// session-fatal condition (SPEC_FULL.md §7 zone 3); the caller is expected to
// exit with status 1 in that case.
func (m *Mux) Serve(ctx context.Context, r io.Reader, w *bufio.Writer) error {
	for {
		req, eof, err := ReadRequest(r)
		if err != nil {
			m.logger.Error("session fatal frame error", slog.String("error", err.Error()))
			return err
		}
		if eof {
			return nil
		}

		resp := m.dispatch(ctx, req)

		body, err := json.Marshal(resp)
		if err != nil {
			// A response that fails to marshal is a programmer error in a
			// handler's result type, not a wire condition; treat it as
			// session-fatal rather than silently dropping the reply.
			m.logger.Error("marshal response", slog.String("error", err.Error()))
			return fmt.Errorf("frame: marshal response: %w", err)
		}
		if err := WriteResponse(w, body); err != nil {
			m.logger.Error("write response", slog.String("error", err.Error()))
			return err
		}
	}
}

// dispatch decodes the request JSON and routes to the registered handler,
// applying the per-frame error policy (SPEC_FULL.md §7 zone 2): a malformed
// single frame never aborts the session.
func (m *Mux) dispatch(ctx context.Context, req Request) protocol.Response {
	var decoded protocol.Request
	if err := json.Unmarshal(req.JSON, &decoded); err != nil {
		m.logger.Warn("request json parse failure", slog.String("error", err.Error()))
		return protocol.FailureMessage(protocol.UnknownID, err.Error())
	}
	decoded.ApplyDefaults()

	handler, ok := m.handlers[decoded.Action]
	if !ok {
		m.logger.Warn("unsupported action", slog.String("action", decoded.Action), slog.String("id", decoded.ID))
		return protocol.FailureMessage(decoded.ID, fmt.Sprintf("Unsupported action: %s", decoded.Action))
	}

	resp := handler.Handle(ctx, decoded, req.Audio)
	resp.ID = decoded.ID
	return resp
}
