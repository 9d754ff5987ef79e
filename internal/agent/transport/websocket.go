package transport

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/errs"
	"github.com/Vishwasrao1/Azure-IoT-Security-Agent-C-sub002/internal/observability"
)

// frame is the wire shape used by the loopback/dev transport's control
// channel. A real IoT-Hub SDK client replaces this entirely; the frame
// format here exists only to exercise the adapter state machine end to end.
type frame struct {
	Type       string          `json:"type"`
	Connected  bool            `json:"connected,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	State      string          `json:"state,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Result     string          `json:"result,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// WebsocketClient is a reference Client implementation over a websocket
// control channel, grounded on the binance adapter's streamManager: an
// exponential-backoff connect loop, an RWMutex-guarded connection handle,
// a ping/keepalive loop, and a read loop dispatching frames to callbacks.
type WebsocketClient struct {
	url string

	mu   sync.RWMutex
	conn *websocket.Conn

	connStatusCB ConnectionStatusCallback
	deviceTwinCB DeviceTwinCallback
	sendConfirmCB SendConfirmCallback

	sendLimiter *rate.Limiter

	cancel context.CancelFunc
	done   chan struct{}
}

// NewWebsocketClient constructs a client that will dial url on Open.
func NewWebsocketClient(url string) *WebsocketClient {
	return &WebsocketClient{
		url:         url,
		sendLimiter: rate.NewLimiter(rate.Limit(50), 10),
	}
}

func dial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *WebsocketClient) SetConnectionStatusCallback(cb ConnectionStatusCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connStatusCB = cb
}

func (c *WebsocketClient) SetDeviceTwinCallback(cb DeviceTwinCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deviceTwinCB = cb
}

func (c *WebsocketClient) SetSendConfirmCallback(cb SendConfirmCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendConfirmCB = cb
}

const maxDialAttempts = 5

// Open dials the control channel with exponential backoff and starts the
// read and keepalive loops. connectionString is accepted for interface
// parity with a real hub client; the loopback transport dials a fixed URL
// configured at construction instead of parsing DPS/connection-string auth.
func (c *WebsocketClient) Open(ctx context.Context, connectionString string) error {
	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.MaxInterval = 10 * time.Second

	var conn *websocket.Conn
	var dialErr error
	for attempt := 0; attempt < maxDialAttempts; attempt++ {
		conn, dialErr = dial(ctx, c.url)
		if dialErr == nil {
			break
		}
		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop {
			break
		}
		select {
		case <-ctx.Done():
			dialErr = ctx.Err()
		case <-time.After(sleep):
			continue
		}
		break
	}
	if dialErr != nil {
		go c.notifyStatus(false, ReasonNoNetwork)
		return errs.New("transport", errs.CodeConnectTimeout, errs.WithCause(dialErr))
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.readLoop(runCtx)
	go c.keepaliveLoop(runCtx)

	go c.notifyStatus(true, ReasonOK)
	return nil
}

// Close tears down the connection and stops all background goroutines.
func (c *WebsocketClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "adapter deinit")
}

func (c *WebsocketClient) readLoop(ctx context.Context) {
	defer close(c.done)
	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return
		}

		_, data, err := conn.Read(ctx)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			observability.Log().Error("transport read failed", observability.Field{Key: "error", Value: err.Error()})
			c.notifyStatus(false, ReasonCommunicationError)
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		c.dispatch(f)
	}
}

func (c *WebsocketClient) dispatch(f frame) {
	switch f.Type {
	case "connection_status":
		reason := ConnectionReason(f.Reason)
		if reason == "" {
			reason = ReasonOK
		}
		c.notifyStatus(f.Connected, reason)
	case "twin_update":
		state := TwinStateComplete
		if f.State == string(TwinStatePartial) {
			state = TwinStatePartial
		}
		c.mu.RLock()
		cb := c.deviceTwinCB
		c.mu.RUnlock()
		if cb != nil {
			payload := append([]byte(nil), f.Payload...)
			cb(state, payload)
		}
	case "send_confirm":
		result := SendOK
		if f.Result == string(SendError) {
			result = SendError
		}
		c.mu.RLock()
		cb := c.sendConfirmCB
		c.mu.RUnlock()
		if cb != nil {
			cb(result)
		}
	}
}

func (c *WebsocketClient) notifyStatus(connected bool, reason ConnectionReason) {
	c.mu.RLock()
	cb := c.connStatusCB
	c.mu.RUnlock()
	if cb != nil {
		cb(connected, reason)
	}
}

func (c *WebsocketClient) keepaliveLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()
			if conn == nil {
				return
			}
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_ = conn.Ping(pingCtx)
			cancel()
		}
	}
}

// SendEvent transmits one already-framed security-message envelope.
func (c *WebsocketClient) SendEvent(ctx context.Context, data []byte) error {
	return c.send(ctx, frame{Type: "event", Data: data})
}

// SendReportedProperties transmits the serialized twin back to the hub.
func (c *WebsocketClient) SendReportedProperties(ctx context.Context, data []byte) error {
	return c.send(ctx, frame{Type: "reported_properties", Data: data})
}

func (c *WebsocketClient) send(ctx context.Context, f frame) error {
	if err := c.sendLimiter.Wait(ctx); err != nil {
		return errs.New("transport", errs.CodeTransportError, errs.WithCause(err))
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return errs.New("transport", errs.CodeTransportError, errs.WithMessage("not connected"))
	}

	buf, err := json.Marshal(f)
	if err != nil {
		return errs.New("transport", errs.CodeTransportError, errs.WithCause(err))
	}
	if err := conn.Write(ctx, websocket.MessageText, buf); err != nil {
		return errs.New("transport", errs.CodeTransportError, errs.WithCause(err))
	}
	return nil
}
