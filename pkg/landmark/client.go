package landmark

import (
	"LivenessGolang/internal/entity"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

type Detector interface {
	Detect(ctx context.Context, frame []byte) (*entity.FaceLandmarks, error)
	Close() error
}

type Options struct {
	URL              string
	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	PingInterval     time.Duration
}

func DefaultOptions(url string) Options {
	return Options{
		URL:              url,
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// webSocketClient owns a single connection to the face mesh service. It is
// not meant to be shared; the Pool hands each instance to one caller at a
// time.
type webSocketClient struct {
	opts Options
	log  *logrus.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	stop chan struct{}
}

func NewWebSocketClient(opts Options, log *logrus.Logger) Detector {
	return &webSocketClient{
		opts: opts,
		log:  log,
	}
}

func (c *webSocketClient) Detect(ctx context.Context, frame []byte) (*entity.FaceLandmarks, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
		}
	}

	conn := c.conn

	if err := conn.SetWriteDeadline(c.deadline(ctx, c.opts.WriteTimeout)); err != nil {
		c.drop()
		return nil, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		c.drop()
		return nil, fmt.Errorf("%w: error sending frame: %v", ErrDetectorUnavailable, err)
	}

	if err := conn.SetReadDeadline(c.deadline(ctx, c.opts.ReadTimeout)); err != nil {
		c.drop()
		return nil, fmt.Errorf("%w: %v", ErrDetectorUnavailable, err)
	}

	_, message, err := conn.ReadMessage()
	if err != nil {
		c.drop()
		return nil, fmt.Errorf("%w: error reading landmarks: %v", ErrDetectorUnavailable, err)
	}

	var resp detectResponse
	if err := jsoniter.Unmarshal(message, &resp); err != nil {
		return nil, fmt.Errorf("%w: error unmarshaling response: %v", ErrDetection, err)
	}

	if resp.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrDetection, resp.Error)
	}

	c.log.WithFields(logrus.Fields{
		"frame_bytes": len(frame),
		"faces":       len(resp.Faces),
	}).Debug("Received landmarks from face mesh service")

	return resp.toEntity(), nil
}

func (c *webSocketClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(c.opts.WriteTimeout),
	)
	c.drop()
	return nil
}

// connect must be called with mu held.
func (c *webSocketClient) connect(ctx context.Context) error {
	if c.opts.URL == "" {
		return fmt.Errorf("face mesh URL not configured")
	}

	c.log.Infof("Connecting to face mesh service at %s", c.opts.URL)

	dialer := websocket.Dialer{
		HandshakeTimeout: c.opts.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, c.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.opts.URL, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.opts.WriteTimeout))
		if err != nil {
			c.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn
	c.stop = make(chan struct{})

	if c.opts.PingInterval > 0 {
		go c.keepAlive(conn, c.stop)
	}

	return nil
}

// drop must be called with mu held.
func (c *webSocketClient) drop() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *webSocketClient) keepAlive(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// WriteControl is safe alongside the reader/writer holding mu.
			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.opts.WriteTimeout))
			if err != nil {
				c.log.Warnf("Ping to face mesh service failed: %v", err)
				return
			}
		}
	}
}

func (c *webSocketClient) deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}
