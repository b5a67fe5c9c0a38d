package web

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"GeminiChat/internal/persona"
	"GeminiChat/internal/service/companion"
	"GeminiChat/internal/service/notify"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

//go:embed page.html
var page []byte

const (
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	maxFrame     = 64 << 10
)

// Типы сообщений браузер → сервер
const (
	inSend     = "send"
	inClear    = "clear"
	inPersona  = "persona"
	inKey      = "key"
	inPersonas = "personas"
)

type inbound struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Controller — то, что веб-интерфейс вызывает у контроллера диалога.
type Controller interface {
	Send(ctx context.Context, text string) error
	SetPersona(id string) (persona.Persona, error)
	Clear() error
	SetCredential(key string) error
	Personas() []persona.Persona
	Info() companion.Info
	Replay(r notify.Renderer)
}

var _ Controller = (*companion.Companion)(nil)

// Server отдаёт страницу чата и держит websocket-соединения.
type Server struct {
	addr     string
	srv      *http.Server
	hub      *Hub
	ctrl     Controller
	upgrader websocket.Upgrader
	logger   *zap.SugaredLogger
	running  atomic.Bool

	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewServer(addr string, hub *Hub, ctrl Controller, logger *zap.SugaredLogger) *Server {
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	s := &Server{
		addr:   addr,
		hub:    hub,
		ctrl:   ctrl,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     sameHost,
		},
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler — маршруты сервера; отдельно, чтобы тесты могли поднять httptest.Server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handlePage)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	go func() {
		s.logger.Infow("Веб-интерфейс запущен", "addr", "http://"+s.addr)
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("Веб-сервер остановлен с ошибкой", "error", err)
		} else {
			s.logger.Infow("Веб-сервер остановлен")
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Stop(context.WithoutCancel(ctx))
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.cancel()
	shutdownCtx, cancel := context.WithTimeoutCause(ctx, 5*time.Second, errors.New("web server shutdown timeout"))
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnw("graceful shutdown error", "error", err)
		return s.srv.Close()
	}
	return nil
}

func (s *Server) Addr() string { return s.addr }

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(page)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("WebSocket upgrade error", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := newClient(conn, s.logger)
	n := s.hub.add(c)
	s.logger.Infow("Клиент подключён", "client", c.id, "remote", r.RemoteAddr, "clients", n)

	conn.SetReadLimit(maxFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	done := make(chan struct{})
	go s.pingLoop(c, done)

	// Текущее состояние только новому клиенту
	c.sendPersonas(s.ctrl.Personas(), s.ctrl.Info().Persona.ID)
	s.ctrl.Replay(c)

	go func() {
		defer func() {
			close(done)
			left := s.hub.remove(c)
			_ = conn.Close()
			s.logger.Infow("Клиент отключён", "client", c.id, "clients", left)
		}()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Warnw("Ошибка чтения websocket", "client", c.id, "error", err)
				}
				return
			}
			var msg inbound
			if err := json.Unmarshal(raw, &msg); err != nil {
				s.logger.Warnw("Некорректное сообщение от клиента", "client", c.id, "error", err)
				continue
			}
			s.dispatch(c, msg)
		}
	}()
}

func (s *Server) pingLoop(c *client, done <-chan struct{}) {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-s.baseCtx.Done():
			return
		case <-t.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (s *Server) dispatch(c *client, msg inbound) {
	switch strings.ToLower(msg.Type) {
	case inSend:
		// Запрос к модели долгий, читающий цикл не блокируем
		go func() {
			err := s.ctrl.Send(s.baseCtx, msg.Text)
			if errors.Is(err, companion.ErrBusy) {
				c.ShowNotification("Подождите ответа на предыдущее сообщение.", notify.Warning)
			}
		}()
	case inClear:
		if err := s.ctrl.Clear(); errors.Is(err, companion.ErrBusy) {
			c.ShowNotification("Дождитесь ответа, потом очищайте историю.", notify.Warning)
		}
	case inPersona:
		p, err := s.ctrl.SetPersona(msg.Text)
		if errors.Is(err, companion.ErrBusy) {
			c.ShowNotification("Дождитесь ответа, потом меняйте стиль.", notify.Warning)
			c.sendPersonas(s.ctrl.Personas(), p.ID)
			return
		}
		s.hub.broadcastPersonas(s.ctrl.Personas(), p.ID)
	case inKey:
		_ = s.ctrl.SetCredential(msg.Text)
	case inPersonas:
		c.sendPersonas(s.ctrl.Personas(), s.ctrl.Info().Persona.ID)
	default:
		s.logger.Warnw("Неизвестный тип сообщения", "client", c.id, "type", msg.Type)
	}
}

// sameHost пропускает запросы без Origin и с Origin того же хоста.
func sameHost(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	origin = strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	return strings.EqualFold(origin, r.Host)
}
