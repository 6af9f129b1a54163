package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bastiangx/cardserve/internal/logger"
	"github.com/bastiangx/cardserve/pkg/catalog"
	"github.com/bastiangx/cardserve/pkg/config"
	"github.com/bastiangx/cardserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

const reloadEvery = 100

// maxQueryLength caps suggest queries and input values, in runes.
const maxQueryLength = 200

// Server handles the IPC for card suggestions.
type Server struct {
	engine     *suggest.Engine
	provider   *catalog.Provider
	board      *suggest.Board
	config     *config.Config
	configPath string
	logger     *log.Logger

	reader io.Reader
	writer *bufio.Writer

	requestCount int

	mu      sync.Mutex
	events  []Event
	submits []Submission
}

// Option configures a Server.
type Option func(*Server)

// WithIO replaces stdin and stdout.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(s *Server) {
		s.reader = r
		s.writer = bufio.NewWriter(w)
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a server over stdin and stdout. provider may be nil
// when no catalog is wired, which disables the cache action.
func NewServer(engine *suggest.Engine, provider *catalog.Provider, cfg *config.Config, configPath string, opts ...Option) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Server{
		engine:     engine,
		provider:   provider,
		config:     cfg,
		configPath: configPath,
		reader:     os.Stdin,
		writer:     bufio.NewWriter(os.Stdout),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.New("server")
	}
	s.board = suggest.NewBoard(engine, cfg.Suggest.MinMatchLength,
		suggest.WithBoardRenderer(s),
		suggest.WithBoardSubmitter(s))
	return s
}

// Board returns the fields driven by this server.
func (s *Server) Board() *suggest.Board {
	return s.board
}

// Start sends a ready status and serves requests until the input ends or
// ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Debug("Starting Server.")
	dec := msgpack.NewDecoder(bufio.NewReader(s.reader))
	enc := msgpack.NewEncoder(s.writer)

	if err := s.send(enc, StatusResponse{Status: "ready"}); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		raw, err := dec.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Debug("client disconnected")
				return nil
			}
			return fmt.Errorf("reading request: %w", err)
		}

		var req Request
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			s.logger.Errorf("decoding request: %v", err)
			if err := s.send(enc, errorResponse("", "invalid request", 400)); err != nil {
				return err
			}
			continue
		}

		if err := s.send(enc, s.Handle(ctx, req)); err != nil {
			return err
		}
	}
}

// Handle runs one request and returns the response to send.
func (s *Server) Handle(ctx context.Context, req Request) any {
	s.requestCount++
	if s.requestCount%reloadEvery == 0 {
		s.reloadConfig()
	}

	s.resetEvents()
	switch req.Action {
	case "", ActionSuggest:
		return s.handleSuggest(ctx, req)
	case ActionInput, ActionKey, ActionBlur, ActionDetach:
		return s.handleField(ctx, req)
	case ActionClick:
		return s.handleClick(req)
	case ActionCache:
		return s.handleCache(ctx, req)
	case ActionHealth:
		return StatusResponse{ID: req.ID, Status: "ok"}
	default:
		return errorResponse(req.ID, fmt.Sprintf("unknown action: %s", req.Action), 400)
	}
}

func (s *Server) handleSuggest(ctx context.Context, req Request) any {
	if tooLong(req.Query) {
		return errorResponse(req.ID, fmt.Sprintf("query exceeds maximum length of %d characters", maxQueryLength), 400)
	}

	limit := req.Limit
	if limit < 1 {
		limit = s.engine.MaxResults()
	}
	if limit < 1 || limit > s.config.Server.MaxLimit {
		limit = s.config.Server.MaxLimit
	}

	start := time.Now()
	candidates, err := s.engine.SuggestN(ctx, req.Prefix, req.Query, limit)
	elapsed := time.Since(start)

	resp := SuggestResponse{
		ID:          req.ID,
		Suggestions: toSuggestions(candidates),
		Count:       len(candidates),
		TimeTaken:   elapsed.Microseconds(),
	}
	if err != nil {
		resp.Warning = err.Error()
	}
	return resp
}

func (s *Server) handleField(ctx context.Context, req Request) any {
	if req.Field == "" {
		return errorResponse(req.ID, "missing field", 400)
	}

	if req.Action == ActionDetach {
		if !s.board.Detach(req.Field) {
			return errorResponse(req.ID, fmt.Sprintf("unknown field: %s", req.Field), 404)
		}
		return s.fieldResponse(req.ID, nil)
	}
	if req.Action == ActionInput && tooLong(req.Value) {
		return errorResponse(req.ID, fmt.Sprintf("value exceeds maximum length of %d characters", maxQueryLength), 400)
	}

	f, ok := s.board.Field(req.Field)
	if !ok {
		if req.Action != ActionInput {
			return errorResponse(req.ID, fmt.Sprintf("unknown field: %s", req.Field), 404)
		}
		var opts []suggest.FieldOption
		if req.Prefix != "" {
			opts = append(opts, suggest.WithPrefix(req.Prefix))
		}
		f = s.board.Attach(req.Field, opts...)
	}

	var (
		consumed bool
		err      error
	)
	switch req.Action {
	case ActionInput:
		err = f.Input(ctx, req.Value)
	case ActionKey:
		key := suggest.ParseKey(req.Key)
		if key == suggest.KeyUnknown {
			return errorResponse(req.ID, fmt.Sprintf("unknown key: %s", req.Key), 400)
		}
		consumed, err = f.Key(ctx, key)
	case ActionBlur:
		f.Blur()
	}

	resp := s.fieldResponse(req.ID, f)
	resp.Consumed = consumed
	if err != nil {
		resp.Warning = err.Error()
	}
	return resp
}

func tooLong(q string) bool {
	return utf8.RuneCountInString(q) > maxQueryLength
}

func (s *Server) handleClick(req Request) any {
	committed := s.board.Click(suggest.ParseTarget(req.Target))

	var f *suggest.Field
	if req.Field != "" {
		f, _ = s.board.Field(req.Field)
	}
	resp := s.fieldResponse(req.ID, f)
	resp.Committed = committed
	return resp
}

func (s *Server) handleCache(ctx context.Context, req Request) any {
	if s.provider == nil {
		return errorResponse(req.ID, "no catalog configured", 503)
	}

	resp := CacheResponse{ID: req.ID, Status: "ok"}
	switch req.Value {
	case "", "info":
	case "refresh":
		if _, err := s.provider.Refresh(ctx); err != nil {
			resp.Status = "error"
			resp.Error = err.Error()
		}
	default:
		return errorResponse(req.ID, fmt.Sprintf("unknown cache op: %s", req.Value), 400)
	}

	info := s.provider.Info()
	if !info.LastFetch.IsZero() {
		resp.LastFetch = info.LastFetch.UnixMilli()
	}
	resp.AgeSecs = int64(info.Age / time.Second)
	resp.Stale = info.Stale
	resp.Names = info.Names
	resp.Sets = info.Sets
	resp.Types = info.Types
	return resp
}

// fieldResponse snapshots f and drains the events recorded so far.
func (s *Server) fieldResponse(id string, f *suggest.Field) FieldResponse {
	resp := FieldResponse{ID: id, Focus: -1}
	if f != nil {
		sel := f.Selection()
		resp.Field = f.ID()
		resp.Value = f.Value()
		resp.Open = sel.IsOpen()
		resp.List = sel.ListID
		resp.Focus = sel.Focus
		resp.MinLen = sel.MinMatchLength
	}

	s.mu.Lock()
	resp.Events = s.events
	resp.Submits = s.submits
	s.events, s.submits = nil, nil
	s.mu.Unlock()
	return resp
}

// Render records a list for the client.
func (s *Server) Render(list suggest.List) {
	s.record(Event{Type: "render", List: list.ID, Field: list.Field, Focus: list.Focus, Suggestions: toSuggestions(list.Candidates)})
}

// Focus records a focus change.
func (s *Server) Focus(listID string, index int) {
	s.record(Event{Type: "focus", List: listID, Focus: index})
}

// Close records a removed list.
func (s *Server) Close(listID string) {
	s.record(Event{Type: "close", List: listID, Focus: -1})
}

// Submit records a commit.
func (s *Server) Submit(field, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submits = append(s.submits, Submission{Field: field, Value: value})
}

func (s *Server) record(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *Server) resetEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events, s.submits = nil, nil
}

func (s *Server) reloadConfig() {
	if s.configPath == "" {
		return
	}
	cfg, err := config.LoadConfig(s.configPath)
	if err != nil {
		s.logger.Warnf("reloading config: %v", err)
		return
	}
	s.config = cfg
	s.logger.Debug("config reloaded", "path", s.configPath)
}

func (s *Server) send(enc *msgpack.Encoder, response any) error {
	if err := enc.Encode(response); err != nil {
		s.logger.Errorf("encoding response: %v", err)
		return err
	}
	return s.writer.Flush()
}

func errorResponse(id, message string, code int) ErrorResponse {
	return ErrorResponse{ID: id, Error: message, Code: code}
}

func toSuggestions(candidates []suggest.Candidate) []Suggestion {
	out := make([]Suggestion, len(candidates))
	for i, c := range candidates {
		out[i] = Suggestion{
			Value:  c.Value,
			Text:   c.Text(),
			Markup: c.Markup(),
			Start:  c.Start,
			Length: c.Length,
		}
	}
	return out
}
