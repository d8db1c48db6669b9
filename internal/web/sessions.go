package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/chronos/internal/chat"
	"github.com/MrWong99/chronos/internal/debate"
	"github.com/MrWong99/chronos/internal/observe"
	"github.com/MrWong99/chronos/internal/persona"
	"github.com/MrWong99/chronos/internal/quiz"
	"github.com/MrWong99/chronos/internal/speech"
)

type createSessionRequest struct {
	Figure   string `json:"figure"`
	Language string `json:"language"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := s.cfg.Sessions.Create(r.Context(), req.Figure, req.Language)
	if err != nil {
		if errors.Is(err, chat.ErrUnknownLanguage) || errors.Is(err, persona.ErrEmptyFigure) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		observe.Logger(r.Context()).Error("create session", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*chat.Session, bool) {
	sess, err := s.cfg.Sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		writeJSON(w, http.StatusOK, sess.Snapshot())
	}
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Sessions.Close(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionSummary(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	page, err := sess.SummaryHTML(r.Context())
	if err != nil {
		writeError(w, modelStatus(err), "failed to generate summary")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

// inbound is a command or playback acknowledgement from the browser. Ref is
// echoed on the matching result or error.
type inbound struct {
	Type     string               `json:"type"`
	Ref      string               `json:"ref,omitempty"`
	ID       uint64               `json:"id,omitempty"`
	Text     string               `json:"text,omitempty"`
	Figure   string               `json:"figure,omitempty"`
	Language string               `json:"language,omitempty"`
	Index    int                  `json:"index,omitempty"`
	Question int                  `json:"question,omitempty"`
	Option   int                  `json:"option,omitempty"`
	Error    string               `json:"error,omitempty"`
	Voices   []speech.NativeVoice `json:"voices,omitempty"`
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.cfg.OriginPatterns})
	if err != nil {
		observe.Logger(r.Context()).Warn("websocket accept failed", "session", sess.ID(), "err", err)
		return
	}
	defer c.CloseNow()

	log := observe.Logger(r.Context()).With("session", sess.ID())
	conn := newWSConn(c)
	player := newWSPlayer(conn)

	sess.Subscribe(func(e chat.Event) {
		if !conn.trySend(outbound{Type: e.Type, Data: e.Data}) {
			log.Warn("dropped session event", "type", e.Type)
		}
	})
	sess.Attach(player)
	conn.trySend(outbound{Type: msgSnapshot, Data: sess.Snapshot()})
	log.Info("listener attached")

	// Commands outlive the connection: a reload must not abort a turn. The
	// worker drains whatever is queued after the socket goes away.
	cmds := make(chan inbound, commandQueueSize)
	go s.runCommands(context.WithoutCancel(r.Context()), sess, conn, cmds)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error { return conn.writeLoop(ctx) })
	g.Go(func() error { return s.readLoop(ctx, c, sess, conn, player, cmds) })
	err = g.Wait()
	close(cmds)

	sess.Subscribe(nil)
	sess.Detach(player)
	player.close()
	conn.close()

	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		log.Info("listener detached")
	default:
		log.Info("listener detached", "err", err)
	}
	c.Close(websocket.StatusNormalClosure, "")
}

// commandQueueSize bounds the commands waiting behind the running one.
const commandQueueSize = 64

var errQueueFull = errors.New("web: too many pending commands")

// readLoop handles playback acks, voice lists and stop inline so they are
// never held up by a running command. Everything else goes to cmds in
// arrival order.
func (s *Server) readLoop(ctx context.Context, c *websocket.Conn, sess *chat.Session, conn *wsConn, player *wsPlayer, cmds chan<- inbound) error {
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		var in inbound
		if err := json.Unmarshal(data, &in); err != nil {
			conn.trySend(outbound{Type: msgError, Error: "invalid message"})
			continue
		}
		switch in.Type {
		case "playback_done":
			player.ack(in.ID, nil)
		case "playback_error":
			player.ack(in.ID, fmt.Errorf("web: browser playback: %s", in.Error))
		case "voices":
			player.setVoices(in.Voices)
		case "stop":
			sess.StopAudio()
		default:
			select {
			case cmds <- in:
			default:
				conn.trySend(outbound{Type: msgError, Ref: in.Ref, Error: errQueueFull.Error()})
			}
		}
	}
}

// runCommands applies the commands of one connection one at a time, in the
// order they were sent, until cmds is closed and drained.
func (s *Server) runCommands(ctx context.Context, sess *chat.Session, conn *wsConn, cmds <-chan inbound) {
	for in := range cmds {
		s.run(ctx, sess, conn, in)
	}
}

func (s *Server) run(ctx context.Context, sess *chat.Session, conn *wsConn, in inbound) {
	data, err := dispatch(ctx, sess, in)
	if err != nil {
		msg, known := publicError(err)
		if !known {
			observe.Logger(ctx).Warn("session command failed", "session", sess.ID(), "command", in.Type, "err", err)
		}
		conn.trySend(outbound{Type: msgError, Ref: in.Ref, Error: msg})
		return
	}
	conn.trySend(outbound{Type: msgResult, Ref: in.Ref, Data: data})
}

func dispatch(ctx context.Context, sess *chat.Session, in inbound) (any, error) {
	switch in.Type {
	case "say":
		return nil, sess.Say(ctx, in.Text)
	case "add_figure":
		if err := sess.AddFigure(ctx, in.Figure); err != nil {
			return nil, err
		}
		return sess.Figures(), nil
	case "set_language":
		return nil, sess.SetLanguage(in.Language)
	case "read_aloud":
		err := sess.ReadAloud(ctx, in.Index)
		if errors.Is(err, speech.ErrPlaybackStopped) {
			err = nil
		}
		return nil, err
	case "translate":
		text, err := sess.TranslateMessage(ctx, in.Index)
		if err != nil {
			return nil, err
		}
		return map[string]any{"index": in.Index, "text": text}, nil
	case "clear":
		return nil, sess.Clear()
	case "quiz_start":
		return sess.StartQuiz(ctx)
	case "quiz_answer":
		return nil, sess.AnswerQuiz(in.Question, in.Option)
	case "quiz_finish":
		return sess.FinishQuiz(ctx)
	case "quiz_reset":
		sess.ResetQuiz()
		return nil, nil
	case "summary":
		return sess.Summary(ctx)
	case "progress":
		return sess.Progress(ctx)
	default:
		return nil, fmt.Errorf("%w %q", errUnknownCommand, in.Type)
	}
}

var errUnknownCommand = errors.New("web: unknown command")

// publicError returns the message shown to the browser for err and whether
// err is one of the expected ones. Upstream failures are never passed
// through.
func publicError(err error) (string, bool) {
	for _, known := range []error{
		debate.ErrBusy, debate.ErrEmptyMessage,
		persona.ErrEmptyFigure, persona.ErrDuplicateFigure,
		chat.ErrUnknownLanguage, chat.ErrNoMessage, chat.ErrNoQuiz, chat.ErrClosed,
		quiz.ErrFinished, quiz.ErrOutOfRange, quiz.ErrMalformedQuiz,
		errUnknownCommand,
	} {
		if errors.Is(err, known) {
			return known.Error(), true
		}
	}
	return "request failed", false
}
