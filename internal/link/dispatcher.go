// Package link 实现命令调度：请求/响应配对、超时与有界重试。
// 协议严格半双工，同一会话任一时刻只允许一条在途请求。
package link

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/taoyao-code/pmr171-link/internal/metrics"
	"github.com/taoyao-code/pmr171-link/internal/protocol/pmr171"
	"github.com/taoyao-code/pmr171-link/internal/safety"
	"github.com/taoyao-code/pmr171-link/internal/transport"
)

// Conn 调度器所需的会话能力，*transport.Session 实现
type Conn interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ResetInput() error
	SetReadTimeout(t time.Duration) error
}

var _ Conn = (*transport.Session)(nil)

// Config 调度参数
type Config struct {
	// Timeout 单次尝试等待回包的上限
	Timeout time.Duration
	// MaxAttempts 帧错误/超时的总尝试次数上限
	MaxAttempts int
}

const (
	defaultTimeout     = time.Second
	defaultMaxAttempts = 3
	// 底层读按小片超时轮询，便于及时判定截止
	readSlice = 50 * time.Millisecond
)

// Dispatcher 半双工命令调度器
type Dispatcher struct {
	conn Conn
	cmds pmr171.CommandSet
	pol  *safety.Policy
	log  *zap.Logger
	met  *metrics.Driver
	cfg  Config

	dec *pmr171.StreamDecoder
	// busy 充当在途互斥：Exchange 持有期间不允许第二条请求
	busy chan struct{}
}

// New 构造调度器。met 可为 nil（不上报指标）。
func New(conn Conn, cmds pmr171.CommandSet, pol *safety.Policy, log *zap.Logger, met *metrics.Driver, cfg Config) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		conn: conn,
		cmds: cmds,
		pol:  pol,
		log:  log,
		met:  met,
		cfg:  cfg,
		dec:  pmr171.NewStreamDecoder(),
		busy: make(chan struct{}, 1),
	}
	return d
}

// 单次尝试的结果状态机：Idle → Sent → (Decoded | TimedOut | FramingFailed)
type outcome uint8

const (
	outcomeDecoded outcome = iota
	outcomeTimedOut
	outcomeFramingFailed
	outcomeFatal
)

func (o outcome) String() string {
	switch o {
	case outcomeDecoded:
		return "ok"
	case outcomeTimedOut:
		return FailTimeout
	case outcomeFramingFailed:
		return FailFraming
	default:
		return FailIO
	}
}

type attemptResult struct {
	outcome outcome
	frame   *pmr171.Frame
	raw     []byte // 本次尝试收到的全部原始字节
	err     error
}

// Exchange 下发一条命令并等待回包。
// 流程：安全策略 → 清输入缓冲 → 发帧 → 限时收帧；帧错误与超时在内部
// 有界重试，耗尽后返回 *ProtocolError。取消只在尝试边界生效，
// 在途帧要么收完要么自然超时，绝不截断半帧。
func (d *Dispatcher) Exchange(ctx context.Context, op uint8, payload []byte) (*pmr171.Frame, error) {
	if d.pol != nil {
		if err := d.pol.CheckCommand(op); err != nil {
			d.countPolicy(err)
			return nil, err
		}
	}

	select {
	case d.busy <- struct{}{}:
		defer func() { <-d.busy }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	name := d.cmds.Name(op)
	frame := pmr171.Encode(op, payload)

	var last attemptResult
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if d.met != nil {
				d.met.RetryTotal.Inc()
			}
		}
		last = d.attempt(frame)
		d.count(name, last.outcome)
		switch last.outcome {
		case outcomeDecoded:
			d.log.Debug("exchange ok",
				zap.String("command", name),
				zap.Int("attempt", attempt),
				zap.Int("payload_len", len(last.frame.Payload)))
			return last.frame, nil
		case outcomeFatal:
			// 底层 I/O 故障不重试，直接上浮
			return nil, &ProtocolError{Opcode: op, Command: name, Attempts: attempt, Class: FailIO, LastRaw: last.raw, Err: last.err}
		default:
			d.log.Debug("exchange attempt failed",
				zap.String("command", name),
				zap.Int("attempt", attempt),
				zap.String("class", last.outcome.String()),
				zap.Int("raw_len", len(last.raw)))
		}
	}
	return nil, &ProtocolError{
		Opcode:   op,
		Command:  name,
		Attempts: d.cfg.MaxAttempts,
		Class:    last.outcome.String(),
		LastRaw:  last.raw,
		Err:      last.err,
	}
}

// Send 下发无应答命令，只做策略检查与发送。
// 设置类命令（PTT、模式、功率、RIT）设备不回包，等待只会白耗超时。
func (d *Dispatcher) Send(ctx context.Context, op uint8, payload []byte) error {
	if d.pol != nil {
		if err := d.pol.CheckCommand(op); err != nil {
			d.countPolicy(err)
			return err
		}
	}

	select {
	case d.busy <- struct{}{}:
		defer func() { <-d.busy }()
	case <-ctx.Done():
		return ctx.Err()
	}

	name := d.cmds.Name(op)
	frame := pmr171.Encode(op, payload)
	if _, err := d.conn.Write(frame); err != nil {
		d.count(name, outcomeFatal)
		return &ProtocolError{Opcode: op, Command: name, Attempts: 1, Class: FailIO, Err: err}
	}
	if d.met != nil {
		d.met.BytesWritten.Add(float64(len(frame)))
	}
	d.count(name, outcomeDecoded)
	d.log.Debug("send ok", zap.String("command", name), zap.Int("payload_len", len(payload)))
	return nil
}

// attempt 执行一次发送与收帧
func (d *Dispatcher) attempt(frame []byte) attemptResult {
	if err := d.conn.ResetInput(); err != nil {
		return attemptResult{outcome: outcomeFatal, err: err}
	}
	d.dec.Reset()

	if _, err := d.conn.Write(frame); err != nil {
		return attemptResult{outcome: outcomeFatal, err: err}
	}
	if d.met != nil {
		d.met.BytesWritten.Add(float64(len(frame)))
	}

	_ = d.conn.SetReadTimeout(readSlice)
	deadline := time.Now().Add(d.cfg.Timeout)
	var raw []byte
	buf := make([]byte, 64)
	for {
		n, err := d.conn.Read(buf)
		if err != nil {
			return attemptResult{outcome: outcomeFatal, raw: raw, err: err}
		}
		if n > 0 {
			raw = append(raw, buf[:n]...)
			if d.met != nil {
				d.met.BytesRead.Add(float64(n))
			}
			if frames := d.dec.Feed(buf[:n]); len(frames) > 0 {
				// 半双工协议一问一答，只取第一帧
				return attemptResult{outcome: outcomeDecoded, frame: frames[0], raw: raw}
			}
		}
		if time.Now().After(deadline) {
			if len(raw) > 0 {
				return attemptResult{outcome: outcomeFramingFailed, raw: raw, err: pmr171.ErrBadCRC}
			}
			return attemptResult{outcome: outcomeTimedOut, raw: raw}
		}
	}
}

func (d *Dispatcher) count(name string, o outcome) {
	if d.met == nil {
		return
	}
	d.met.ExchangeTotal.WithLabelValues(name, o.String()).Inc()
}

func (d *Dispatcher) countPolicy(err error) {
	if d.met == nil {
		return
	}
	var rl *safety.RateLimitedError
	if errors.As(err, &rl) {
		d.met.RateLimitedTotal.Inc()
	}
}
