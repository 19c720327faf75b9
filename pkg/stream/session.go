package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hervehildenbrand/looking-glass/pkg/table"
)

// Inbound actions
const (
	ActionLoadSources      = "load_sources"
	ActionSelectSource     = "select_source"
	ActionFetch            = "fetch"
	ActionPaginate         = "paginate"
	ActionSetFilter        = "set_filter"
	ActionApplyFilters     = "apply_filters"
	ActionBarClick         = "bar_click"
	ActionGoBackward       = "go_backward"
	ActionSpool            = "spool"
	ActionSelectValidation = "select_validation"
	ActionOpenMetadata     = "open_metadata"
	ActionCloseMetadata    = "close_metadata"
	ActionSort             = "sort"
)

// Outbound message types
const (
	TypeState = "state"
	TypeAlert = "alert"
	TypeError = "error"
)

// Command is one inbound client message.
type Command struct {
	Action    string `json:"action"`
	Value     string `json:"value,omitempty"`
	Key       string `json:"key,omitempty"`
	Index     int    `json:"index,omitempty"`
	Row       int    `json:"row,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// Message is one outbound server message.
type Message struct {
	Type    string      `json:"type"`
	State   *table.View `json:"state,omitempty"`
	Message string      `json:"message,omitempty"`
}

type session struct {
	srv   *Server
	id    uuid.UUID
	conn  *websocket.Conn
	table *table.Table

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	out    chan Message
	notify chan struct{} // coalesced state changes
}

func newSession(srv *Server, conn *websocket.Conn) *session {
	ctx, cancel := context.WithCancel(srv.ctx)
	s := &session{
		srv:    srv,
		id:     uuid.New(),
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		out:    make(chan Message, outboundSize),
		notify: make(chan struct{}, 1),
	}
	s.table = table.New(s.id, srv.backend, table.Options{
		Metadata: srv.opts.Metadata,
		Alerter:  s,
		Recorder: srv.opts.Recorder,
		OnChange: s.changed,
	})
	return s
}

// Alert implements table.Alerter.
func (s *session) Alert(message string) {
	atomic.AddUint64(&s.srv.alerts, 1)
	s.send(Message{Type: TypeAlert, Message: message})
}

func (s *session) changed() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// send queues msg without blocking; it is dropped if the client lags.
func (s *session) send(msg Message) {
	select {
	case s.out <- msg:
	default:
		if n := atomic.AddUint64(&s.srv.dropped, 1); n%100 == 1 {
			log.Printf("[session %s] Outbound queue full, dropping %s message", s.id, msg.Type)
		}
	}
}

func (s *session) run() {
	log.Printf("[session %s] Connected from %s", s.id, s.conn.RemoteAddr())

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop()
	}()

	// Close the connection on shutdown to unblock ReadMessage
	go func() {
		<-s.ctx.Done()
		s.conn.Close()
	}()

	s.changed()
	err := s.readLoop()

	s.cancel()
	s.wg.Wait()
	<-writerDone
	s.conn.Close()

	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && s.srv.ctx.Err() == nil {
		log.Printf("[session %s] Closed: %v", s.id, err)
	} else {
		log.Printf("[session %s] Closed", s.id)
	}
}

func (s *session) readLoop() error {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			atomic.AddUint64(&s.srv.commandErrors, 1)
			s.send(Message{Type: TypeError, Message: fmt.Sprintf("invalid command: %v", err)})
			continue
		}

		atomic.AddUint64(&s.srv.commands, 1)
		s.dispatchOrdered(cmd)
	}
}

func (s *session) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		var msg Message
		select {
		case <-s.ctx.Done():
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.cancel()
				return
			}
			continue
		case msg = <-s.out:
		case <-s.notify:
			view := s.table.Snapshot()
			msg = Message{Type: TypeState, State: &view}
		}

		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := s.conn.WriteJSON(msg); err != nil {
			s.cancel()
			return
		}
	}
}

// dispatchOrdered applies commands in arrival order. State edits run inline.
// Fetches run on their own goroutine so a newer one can supersede them, but
// the next command is read only after the fetch holds its request slot.
func (s *session) dispatchOrdered(cmd Command) {
	if !isFetch(cmd.Action) {
		s.handle(s.ctx, cmd)
		return
	}

	claimed := make(chan struct{})
	var once sync.Once
	release := func() { once.Do(func() { close(claimed) }) }
	ctx := table.WithClaimHook(s.ctx, release)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer release()
		s.handle(ctx, cmd)
	}()

	select {
	case <-claimed:
	case <-s.ctx.Done():
	}
}

func isFetch(action string) bool {
	switch action {
	case ActionLoadSources, ActionFetch, ActionPaginate, ActionApplyFilters,
		ActionBarClick, ActionGoBackward, ActionOpenMetadata:
		return true
	default:
		return false
	}
}

func (s *session) handle(ctx context.Context, cmd Command) {
	err := s.dispatch(ctx, cmd)
	s.changed()

	switch {
	case err == nil,
		errors.Is(err, table.ErrSuperseded),
		errors.Is(err, context.Canceled):
	case errors.Is(err, table.ErrNoDataSource), errors.Is(err, table.ErrFetchFailed):
		// already alerted
		log.Printf("[session %s] %s: %v", s.id, cmd.Action, err)
	default:
		atomic.AddUint64(&s.srv.commandErrors, 1)
		s.send(Message{Type: TypeError, Message: err.Error()})
	}
}

func (s *session) dispatch(ctx context.Context, cmd Command) error {
	t := s.table
	switch cmd.Action {
	case ActionLoadSources:
		return t.LoadDataSources(ctx)
	case ActionSelectSource:
		return t.SelectDataSource(cmd.Value)
	case ActionFetch:
		return t.FetchInitial(ctx)
	case ActionPaginate:
		return t.Paginate(ctx)
	case ActionSetFilter:
		return t.SetFilter(cmd.Key, cmd.Value)
	case ActionApplyFilters:
		return t.ApplyFilters(ctx)
	case ActionBarClick:
		return t.ClickBar(ctx, cmd.Index)
	case ActionGoBackward:
		return t.GoBackward(ctx)
	case ActionSpool:
		t.Spool(cmd.Direction)
		return nil
	case ActionSelectValidation:
		return t.SelectValidationSource(cmd.Value)
	case ActionOpenMetadata:
		return t.OpenMetadata(ctx, cmd.Row)
	case ActionCloseMetadata:
		t.CloseMetadata()
		return nil
	case ActionSort:
		return t.Sort(cmd.Key)
	default:
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
}
