package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/applaunchd/internal/domain/broadcast"
	"github.com/GriffinCanCode/applaunchd/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/applaunchd/internal/shared/id"
	"github.com/GriffinCanCode/applaunchd/internal/shared/types"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced by the CORS middleware
	},
}

// Subscriber streams lifecycle events to a session
type Subscriber interface {
	Subscribe(session broadcast.Session) error
}

// clientMessage is the only inbound message shape
type clientMessage struct {
	Type string `json:"type"`
}

// Handler manages WebSocket status streams
type Handler struct {
	subscriber Subscriber
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(subscriber Subscriber, metrics *monitoring.Metrics, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		subscriber: subscriber,
		metrics:    metrics,
		logger:     logger,
	}
}

// HandleConnection upgrades the request and streams events until either
// side goes away
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	subID := id.NewSubscriberID()
	log := h.logger.With(zap.String("subscriber", subID.String()), zap.String("remote", c.ClientIP()))
	log.Debug("Status stream opened")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := &connSession{conn: conn, ctx: ctx}
	go sess.readLoop(cancel, log)
	go sess.pingLoop()

	err = h.subscriber.Subscribe(sess)
	if ctx.Err() == nil {
		// Server side ended the stream
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
		if err != nil {
			msg = websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error())
		}
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	}
	log.Debug("Status stream closed", zap.Error(err))
}

// connSession adapts a WebSocket connection to broadcast.Session
type connSession struct {
	conn *websocket.Conn
	ctx  context.Context
	mu   sync.Mutex // serializes data frames
}

func (s *connSession) Context() context.Context {
	return s.ctx
}

func (s *connSession) Send(ev types.Event) error {
	data, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	return s.write(data)
}

func (s *connSession) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop answers pings and cancels the session when the peer leaves
func (s *connSession) readLoop(cancel context.CancelFunc, log *zap.Logger) {
	defer cancel()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("WebSocket read error", zap.Error(err))
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg clientMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			if err := s.write([]byte(`{"type":"pong"}`)); err != nil {
				return
			}
		}
	}
}

func (s *connSession) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
