// Package testutil 提供测试用的内存串口实现，可按请求脚本化回包。
package testutil

import (
	"errors"
	"sync"
	"time"
)

// ErrPortClosed 对已关闭端口的读写
var ErrPortClosed = errors.New("fake port closed")

// FakePort 内存串口。实现 transport.Port，Read 无数据时模拟
// go.bug.st/serial 的超时语义：返回 (0, nil)。
type FakePort struct {
	mu sync.Mutex

	pending []byte   // 待读字节
	written [][]byte // 每次 Write 的完整内容
	flushes int
	dtr     bool
	rts     bool
	closed  bool

	readTimeout time.Duration

	// Responder 收到一次 Write 后生成注入的回包字节，nil 则不回包
	Responder func(written []byte) []byte
	// WriteErr / ReadErr 注入底层 I/O 错误
	WriteErr error
	ReadErr  error
}

func NewFakePort() *FakePort { return &FakePort{} }

// Inject 直接向读缓冲注入字节（杂散前缀、分片等场景）
func (f *FakePort) Inject(p []byte) {
	f.mu.Lock()
	f.pending = append(f.pending, p...)
	f.mu.Unlock()
}

func (f *FakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return 0, ErrPortClosed
	}
	if f.ReadErr != nil {
		err := f.ReadErr
		f.mu.Unlock()
		return 0, err
	}
	if len(f.pending) == 0 {
		wait := f.readTimeout
		f.mu.Unlock()
		// 无数据：模拟串口读超时，短暂等待后返回 0 字节
		if wait > 5*time.Millisecond {
			wait = 5 * time.Millisecond
		}
		if wait > 0 {
			time.Sleep(wait)
		}
		return 0, nil
	}
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	f.mu.Unlock()
	return n, nil
}

func (f *FakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrPortClosed
	}
	if f.WriteErr != nil {
		return 0, f.WriteErr
	}
	cp := append([]byte(nil), p...)
	f.written = append(f.written, cp)
	if f.Responder != nil {
		if reply := f.Responder(cp); len(reply) > 0 {
			f.pending = append(f.pending, reply...)
		}
	}
	return len(p), nil
}

func (f *FakePort) ResetInputBuffer() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrPortClosed
	}
	f.flushes++
	f.pending = nil
	return nil
}

func (f *FakePort) SetReadTimeout(t time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readTimeout = t
	return nil
}

func (f *FakePort) SetDTR(v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dtr = v
	return nil
}

func (f *FakePort) SetRTS(v bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rts = v
	return nil
}

func (f *FakePort) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Written 返回全部已写帧的拷贝
func (f *FakePort) Written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.written))
	copy(out, f.written)
	return out
}

// WriteCount 已写帧数，零即证明策略拦截发生在上线之前
func (f *FakePort) WriteCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

// FlushCount ResetInputBuffer 调用次数
func (f *FakePort) FlushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes
}

// Lines 返回当前 DTR/RTS 状态
func (f *FakePort) Lines() (dtr, rts bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dtr, f.rts
}

// Closed 端口是否已关闭
func (f *FakePort) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
