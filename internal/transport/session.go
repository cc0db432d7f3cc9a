package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnectionError 端口打开或握手阶段的失败
type ConnectionError struct {
	Port string
	Op   string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s on %s: %v", e.Op, e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Config 串口会话参数
type Config struct {
	Port           string
	Baud           int
	StabilizeDelay time.Duration // 握手后等待电台进入编程模式
}

const defaultStabilizeDelay = 500 * time.Millisecond

// Session 一条独占的串口连接。
// 每个物理端口同时最多一个活动会话，重复打开直接失败。
type Session struct {
	ID       string
	PortName string

	mu     sync.Mutex
	port   Port
	closed bool
}

var (
	regMu sync.Mutex
	held  = make(map[string]*Session)
)

// Open 打开串口并执行硬件握手：DTR 与 RTS 同时拉高电台才会应答，
// 随后清空残留输入并等待稳定间隔。
func Open(cfg Config) (*Session, error) {
	regMu.Lock()
	if _, busy := held[cfg.Port]; busy {
		regMu.Unlock()
		return nil, &ConnectionError{Port: cfg.Port, Op: "open", Err: fmt.Errorf("port already held by another session")}
	}
	// 先占位，避免两个 Open 竞争同一端口
	held[cfg.Port] = nil
	regMu.Unlock()

	p, err := openSerial(cfg.Port, cfg.Baud)
	if err != nil {
		release(cfg.Port)
		return nil, &ConnectionError{Port: cfg.Port, Op: "open", Err: err}
	}
	s, err := handshake(cfg.Port, p, cfg.StabilizeDelay)
	if err != nil {
		_ = p.Close()
		release(cfg.Port)
		return nil, err
	}
	regMu.Lock()
	held[cfg.Port] = s
	regMu.Unlock()
	return s, nil
}

// Attach 在已有端口句柄上建立会话并执行同样的握手流程。
// 供测试与替代传输实现使用，同样受端口独占约束。
func Attach(name string, p Port, stabilize time.Duration) (*Session, error) {
	regMu.Lock()
	if _, busy := held[name]; busy {
		regMu.Unlock()
		return nil, &ConnectionError{Port: name, Op: "open", Err: fmt.Errorf("port already held by another session")}
	}
	held[name] = nil
	regMu.Unlock()

	s, err := handshake(name, p, stabilize)
	if err != nil {
		release(name)
		return nil, err
	}
	regMu.Lock()
	held[name] = s
	regMu.Unlock()
	return s, nil
}

func handshake(name string, p Port, stabilize time.Duration) (*Session, error) {
	if err := p.SetDTR(true); err != nil {
		return nil, &ConnectionError{Port: name, Op: "set dtr", Err: err}
	}
	if err := p.SetRTS(true); err != nil {
		return nil, &ConnectionError{Port: name, Op: "set rts", Err: err}
	}
	if err := p.ResetInputBuffer(); err != nil {
		return nil, &ConnectionError{Port: name, Op: "flush", Err: err}
	}
	if stabilize <= 0 {
		stabilize = defaultStabilizeDelay
	}
	time.Sleep(stabilize)
	return &Session{ID: uuid.NewString(), PortName: name, port: p}, nil
}

func release(name string) {
	regMu.Lock()
	delete(held, name)
	regMu.Unlock()
}

func (s *Session) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, &ConnectionError{Port: s.PortName, Op: "read", Err: fmt.Errorf("session closed")}
	}
	return s.port.Read(p)
}

func (s *Session) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, &ConnectionError{Port: s.PortName, Op: "write", Err: fmt.Errorf("session closed")}
	}
	return s.port.Write(p)
}

// ResetInput 丢弃未读字节。每次请求前调用，防止上一条请求的迟到回包
// 被误认为本次的应答（连接初期前若干信道"读空"的主因）。
func (s *Session) ResetInput() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &ConnectionError{Port: s.PortName, Op: "flush", Err: fmt.Errorf("session closed")}
	}
	return s.port.ResetInputBuffer()
}

// SetReadTimeout 设置底层读超时
func (s *Session) SetReadTimeout(t time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &ConnectionError{Port: s.PortName, Op: "timeout", Err: fmt.Errorf("session closed")}
	}
	return s.port.SetReadTimeout(t)
}

// Close 拉低控制线并关闭句柄，幂等
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.port.SetDTR(false)
	_ = s.port.SetRTS(false)
	err := s.port.Close()
	release(s.PortName)
	return err
}

// Closed 会话是否已关闭
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
