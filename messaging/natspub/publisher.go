// Package natspub 将实体写操作结果发布到 NATS 主题 {prefix}.{entity}.{outcome}。
package natspub

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	httpx "childsvc/http"
	"childsvc/logging"
	"childsvc/messaging"
)

// ErrNotConnected 尚未连接或已关闭
var ErrNotConnected = errors.New("nats publisher not connected")

// Config NATS 发布配置
type Config struct {
	URL           string
	SubjectPrefix string
	Name          string
	Timeout       time.Duration
	Logger        logging.Logger
	// Conn 外部连接；设置后 Close 不会关闭它
	Conn *nats.Conn
	// OnFailure 发布失败回调（用于计数）
	OnFailure func(event messaging.Event, err error)
}

// Publisher 基于 NATS core 的结果发布者
type Publisher struct {
	cfg      Config
	logger   logging.Logger
	conn     *nats.Conn
	ownsConn bool
	mu       sync.RWMutex
}

// New 创建发布者（尚未连接）
func New(cfg Config) *Publisher {
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "childsvc"
	}
	cfg.SubjectPrefix = strings.TrimSuffix(cfg.SubjectPrefix, ".")
	if cfg.Name == "" {
		cfg.Name = "childsvc"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetLogger().WithFields(logging.String("component", "publisher.nats"))
	}
	return &Publisher{cfg: cfg, logger: cfg.Logger}
}

// Connect 建立连接；已有连接时直接返回
func (p *Publisher) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		return nil
	}
	if p.cfg.Conn != nil {
		p.conn = p.cfg.Conn
		return nil
	}
	url := p.cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	conn, err := nats.Connect(url,
		nats.Name(p.cfg.Name),
		nats.Timeout(p.cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				p.logger.Warn(context.Background(), "nats disconnected", logging.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			p.logger.Info(context.Background(), "nats reconnected", logging.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return err
	}
	p.conn = conn
	p.ownsConn = true
	return nil
}

// Subject 返回事件对应的主题
func (p *Publisher) Subject(event messaging.Event) string {
	return p.cfg.SubjectPrefix + "." + event.Entity + "." + event.Outcome
}

// Publish 发布一条结果通知
func (p *Publisher) Publish(ctx context.Context, event messaging.Event) error {
	err := p.publish(ctx, event)
	if err != nil && p.cfg.OnFailure != nil {
		p.cfg.OnFailure(event, err)
	}
	return err
}

func (p *Publisher) publish(ctx context.Context, event messaging.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	conn := p.conn
	p.mu.RUnlock()
	if conn == nil || conn.IsClosed() {
		return ErrNotConnected
	}

	metadata := make(map[string]string, len(event.Metadata)+2)
	for k, v := range event.Metadata {
		metadata[k] = v
	}
	httpx.InjectTraceContext(ctx, metadata)
	event.Metadata = metadata

	data, err := marshalEvent(event)
	if err != nil {
		return err
	}
	msg := nats.NewMsg(p.Subject(event))
	msg.Data = data
	for k, v := range event.Metadata {
		msg.Header.Set(k, v)
	}
	return conn.PublishMsg(msg)
}

// Close 刷新并关闭自有连接
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	var err error
	if p.ownsConn {
		err = p.conn.Drain()
	}
	p.conn = nil
	p.ownsConn = false
	return err
}

type wireEvent struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	EntityID  string            `json:"entity_id"`
	Timestamp int64             `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
}

func marshalEvent(event messaging.Event) ([]byte, error) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return nil, err
	}
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return json.Marshal(wireEvent{
		ID:        id,
		Type:      event.Type(),
		EntityID:  event.EntityID,
		Timestamp: ts.UnixNano(),
		Payload:   payload,
		Metadata:  metadata,
	})
}

// Decode 解析一条通知（供订阅方使用）
func Decode(data []byte) (messaging.Event, error) {
	var wire wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		return messaging.Event{}, err
	}
	entity, outcome, _ := strings.Cut(wire.Type, ".")
	var payload any
	if len(wire.Payload) > 0 {
		if err := json.Unmarshal(wire.Payload, &payload); err != nil {
			return messaging.Event{}, err
		}
	}
	return messaging.Event{
		ID:        wire.ID,
		Entity:    entity,
		Outcome:   outcome,
		EntityID:  wire.EntityID,
		Timestamp: time.Unix(0, wire.Timestamp),
		Payload:   payload,
		Metadata:  wire.Metadata,
	}, nil
}

var _ messaging.IPublisher = (*Publisher)(nil)
