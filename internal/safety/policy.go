// Package safety 按实机表现对命令划定风险等级并在下发前拦截。
//
// 两类已知问题：表头/参数同步命令高频连发会让电台死机（交互本身成功，
// 约 2 秒内 5 次必现）；数字（DMR）信道写入无论哪家软件执行都不可靠落盘，
// 且出现过写后失联。前者限速并要求显式启用，后者默认整类拦截。
package safety

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/taoyao-code/pmr171-link/internal/protocol/pmr171"
)

// DefaultUnstableInterval 不稳定命令最小下发间隔
const DefaultUnstableInterval = 5 * time.Second

// Config 安全策略配置
type Config struct {
	// AllowUnstable 允许使用不稳定命令（0x2D/0x2E），默认拒绝
	AllowUnstable bool
	// UnstableInterval 不稳定命令最小间隔，<=0 取 DefaultUnstableInterval
	UnstableInterval time.Duration
	// AllowDigitalWrite 放行数字信道写入。实验性，设备可能不落盘甚至失联。
	AllowDigitalWrite bool
}

// RateLimitedError 不稳定命令未到最小间隔即再次下发
type RateLimitedError struct {
	Opcode   uint8
	Command  string
	Interval time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("command %s (0x%02X) rate limited: minimum interval %s not elapsed", e.Command, e.Opcode, e.Interval)
}

// UnsupportedOperationError 被策略拦截的命令
type UnsupportedOperationError struct {
	Opcode  uint8
	Command string
	Reason  string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("command %s (0x%02X) not permitted: %s", e.Command, e.Opcode, e.Reason)
}

// Policy 命令风险策略。由命令表与配置一次性构造，无传输状态。
type Policy struct {
	cmds pmr171.CommandSet
	cfg  Config

	mu       sync.Mutex
	limiters map[uint8]*rate.Limiter
}

// New 构造策略，命令表显式传入以便测试替换
func New(cmds pmr171.CommandSet, cfg Config) *Policy {
	if cfg.UnstableInterval <= 0 {
		cfg.UnstableInterval = DefaultUnstableInterval
	}
	return &Policy{
		cmds:     cmds,
		cfg:      cfg,
		limiters: make(map[uint8]*rate.Limiter),
	}
}

// CheckCommand 下发前的策略检查，任何拦截都发生在写串口之前
func (p *Policy) CheckCommand(op uint8) error {
	spec, ok := p.cmds.Lookup(op)
	if !ok {
		return &UnsupportedOperationError{Opcode: op, Command: p.cmds.Name(op), Reason: "opcode not in command table"}
	}
	switch spec.Risk {
	case pmr171.RiskBlocked:
		return &UnsupportedOperationError{Opcode: op, Command: spec.Name, Reason: "blocked pending root cause resolution"}
	case pmr171.RiskUnstable:
		if !p.cfg.AllowUnstable {
			return &UnsupportedOperationError{Opcode: op, Command: spec.Name, Reason: "unstable command requires explicit opt-in (safety.allowUnstable)"}
		}
		if !p.limiter(op).Allow() {
			return &RateLimitedError{Opcode: op, Command: spec.Name, Interval: p.cfg.UnstableInterval}
		}
	}
	return nil
}

// CheckChannelWrite 信道写入的类别检查。数字信道默认整类拦截，
// 根因（固件缺陷还是缺失的初始化序列）未明，不做猜测性修复。
func (p *Policy) CheckChannelWrite(kind pmr171.ChannelKind) error {
	if kind == pmr171.KindDigital && !p.cfg.AllowDigitalWrite {
		return &UnsupportedOperationError{
			Opcode:  pmr171.CmdChanWrite,
			Command: p.cmds.Name(pmr171.CmdChanWrite),
			Reason:  "digital (DMR) channel writes are blocked: not reliably retained by the device (safety.allowDigitalWrite to override, experimental)",
		}
	}
	return nil
}

// 每个不稳定操作码独立一个令牌桶：稳速 1/interval，突发 1
func (p *Policy) limiter(op uint8) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[op]
	if !ok {
		l = rate.NewLimiter(rate.Every(p.cfg.UnstableInterval), 1)
		p.limiters[op] = l
	}
	return l
}
