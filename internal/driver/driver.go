// Package driver 对外门面：把传输、调度、安全策略与批量编排
// 组装为一套面向电台的操作接口。上层（CLI 或嵌入方）只依赖本包。
package driver

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/taoyao-code/pmr171-link/internal/bulk"
	"github.com/taoyao-code/pmr171-link/internal/config"
	"github.com/taoyao-code/pmr171-link/internal/link"
	"github.com/taoyao-code/pmr171-link/internal/metrics"
	"github.com/taoyao-code/pmr171-link/internal/protocol/pmr171"
	"github.com/taoyao-code/pmr171-link/internal/safety"
	"github.com/taoyao-code/pmr171-link/internal/transport"
)

// ErrNotConnected 会话未建立时调用了设备操作
var ErrNotConnected = fmt.Errorf("driver not connected")

// VFO 选择：A 为主频，B 为副频
const (
	VFOA uint8 = 0
	VFOB uint8 = 1
)

// PTT 控制字节。设备约定 0x00 进入发射，0x01 释放。
const (
	pttKeyDown uint8 = 0x00
	pttKeyUp   uint8 = 0x01
)

// Driver 电台驱动门面。并发安全，但底层链路半双工，
// 设备操作实际上会在调度器处串行化。
type Driver struct {
	cfg  *config.Config
	log  *zap.Logger
	met  *metrics.Driver
	cmds pmr171.CommandSet

	mu   sync.Mutex
	sess *transport.Session
	disp *link.Dispatcher
}

// New 构造驱动。met 可为 nil（不上报指标）。
func New(cfg *config.Config, log *zap.Logger, met *metrics.Driver) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		cfg:  cfg,
		log:  log,
		met:  met,
		cmds: pmr171.DefaultCommands(),
	}
}

// ListPorts 枚举本机可用串口
func ListPorts() ([]string, error) {
	return transport.ListPorts()
}

// Connect 按配置打开串口并完成握手
func (d *Driver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sess != nil {
		return fmt.Errorf("already connected to %s", d.sess.PortName)
	}
	s, err := transport.Open(transport.Config{
		Port:           d.cfg.Serial.Port,
		Baud:           d.cfg.Serial.Baud,
		StabilizeDelay: d.cfg.Serial.StabilizeDelay,
	})
	if err != nil {
		return err
	}
	d.wire(s)
	return nil
}

// ConnectPort 在已有端口句柄上建立会话，供测试与替代传输使用
func (d *Driver) ConnectPort(name string, p transport.Port) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sess != nil {
		return fmt.Errorf("already connected to %s", d.sess.PortName)
	}
	s, err := transport.Attach(name, p, d.cfg.Serial.StabilizeDelay)
	if err != nil {
		return err
	}
	d.wire(s)
	return nil
}

func (d *Driver) wire(s *transport.Session) {
	pol := safety.New(d.cmds, safety.Config{
		AllowUnstable:     d.cfg.Safety.AllowUnstable,
		UnstableInterval:  d.cfg.Safety.UnstableInterval,
		AllowDigitalWrite: d.cfg.Safety.AllowDigitalWrite,
	})
	d.sess = s
	d.disp = link.New(s, d.cmds, pol, d.log, d.met, link.Config{
		Timeout:     d.cfg.Link.Timeout,
		MaxAttempts: d.cfg.Link.MaxAttempts,
	})
	d.log.Info("connected",
		zap.String("port", s.PortName),
		zap.String("session", s.ID))
}

// Disconnect 关闭会话，幂等
func (d *Driver) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sess == nil {
		return nil
	}
	err := d.sess.Close()
	d.log.Info("disconnected", zap.String("port", d.sess.PortName))
	d.sess = nil
	d.disp = nil
	return err
}

// Connected 会话是否在线
func (d *Driver) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sess != nil && !d.sess.Closed()
}

func (d *Driver) dispatcher() (*link.Dispatcher, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disp == nil {
		return nil, ErrNotConnected
	}
	return d.disp, nil
}

// Identify 查询设备型号
func (d *Driver) Identify(ctx context.Context) (pmr171.Identity, error) {
	disp, err := d.dispatcher()
	if err != nil {
		return pmr171.Identity{}, err
	}
	fr, err := disp.Exchange(ctx, pmr171.CmdIdentify, nil)
	if err != nil {
		return pmr171.Identity{}, err
	}
	return pmr171.DecodeIdentity(fr.Payload), nil
}

// QueryStatus 状态同步
func (d *Driver) QueryStatus(ctx context.Context) (pmr171.Status, error) {
	disp, err := d.dispatcher()
	if err != nil {
		return pmr171.Status{}, err
	}
	fr, err := disp.Exchange(ctx, pmr171.CmdStatus, nil)
	if err != nil {
		return pmr171.Status{}, err
	}
	return pmr171.DecodeStatus(fr.Payload)
}

// QueryMeters 表头同步。不稳定命令，受安全策略限速。
func (d *Driver) QueryMeters(ctx context.Context) (pmr171.Meters, error) {
	disp, err := d.dispatcher()
	if err != nil {
		return pmr171.Meters{}, err
	}
	fr, err := disp.Exchange(ctx, pmr171.CmdMeterSync, nil)
	if err != nil {
		return pmr171.Meters{}, err
	}
	return pmr171.DecodeMeters(fr.Payload)
}

// QueryParameters 参数同步。不稳定命令，受安全策略限速。
func (d *Driver) QueryParameters(ctx context.Context) (pmr171.Parameters, error) {
	disp, err := d.dispatcher()
	if err != nil {
		return pmr171.Parameters{}, err
	}
	fr, err := disp.Exchange(ctx, pmr171.CmdParamSync, nil)
	if err != nil {
		return pmr171.Parameters{}, err
	}
	return pmr171.DecodeParameters(fr.Payload)
}

// QuerySpectrum 请求一帧频谱数据，载荷原样返回
func (d *Driver) QuerySpectrum(ctx context.Context) ([]byte, error) {
	disp, err := d.dispatcher()
	if err != nil {
		return nil, err
	}
	fr, err := disp.Exchange(ctx, pmr171.CmdSpectrum, nil)
	if err != nil {
		return nil, err
	}
	return fr.Payload, nil
}

// SetMode 设置指定 VFO 的工作模式，无应答命令
func (d *Driver) SetMode(ctx context.Context, vfo uint8, m pmr171.Mode) error {
	if vfo != VFOA && vfo != VFOB {
		return fmt.Errorf("vfo %d out of range", vfo)
	}
	if !m.Valid() || m == pmr171.ModeUnused {
		return fmt.Errorf("mode %d not settable", m)
	}
	disp, err := d.dispatcher()
	if err != nil {
		return err
	}
	return disp.Send(ctx, pmr171.CmdModeSet, []byte{vfo, uint8(m)})
}

// SetPower 设置功率档位，无应答命令
func (d *Driver) SetPower(ctx context.Context, level uint8) error {
	disp, err := d.dispatcher()
	if err != nil {
		return err
	}
	return disp.Send(ctx, pmr171.CmdPowerSet, []byte{level})
}

// SetRIT 设置接收频偏，单位 Hz，有符号大端 4 字节
func (d *Driver) SetRIT(ctx context.Context, offsetHz int32) error {
	disp, err := d.dispatcher()
	if err != nil {
		return err
	}
	payload := binary.BigEndian.AppendUint32(nil, uint32(offsetHz))
	return disp.Send(ctx, pmr171.CmdRITSet, payload)
}

// PTT 发射控制。transmit 为 true 进入发射，false 释放。
func (d *Driver) PTT(ctx context.Context, transmit bool) error {
	disp, err := d.dispatcher()
	if err != nil {
		return err
	}
	b := pttKeyUp
	if transmit {
		b = pttKeyDown
	}
	return disp.Send(ctx, pmr171.CmdPTT, []byte{b})
}

// ReadChannel 读取单个信道
func (d *Driver) ReadChannel(ctx context.Context, index int) (pmr171.ChannelRecord, error) {
	disp, err := d.dispatcher()
	if err != nil {
		return pmr171.ChannelRecord{}, err
	}
	return disp.ReadChannel(ctx, index)
}

// WriteChannel 写入单个信道并核对回显
func (d *Driver) WriteChannel(ctx context.Context, rec pmr171.ChannelRecord) error {
	disp, err := d.dispatcher()
	if err != nil {
		return err
	}
	return disp.WriteChannel(ctx, rec)
}

// ReadAll 批量读取指定索引；indices 为 nil 时读取全部 1000 个信道
func (d *Driver) ReadAll(ctx context.Context, indices []int, onProgress bulk.Progress) ([]bulk.ReadResult, error) {
	disp, err := d.dispatcher()
	if err != nil {
		return nil, err
	}
	if indices == nil {
		indices = bulk.AllIndices()
	}
	return bulk.ReadAll(ctx, disp, indices, onProgress), nil
}

// WriteAll 批量写入，按索引升序执行
func (d *Driver) WriteAll(ctx context.Context, records []pmr171.ChannelRecord, onProgress bulk.Progress) ([]bulk.WriteResult, error) {
	disp, err := d.dispatcher()
	if err != nil {
		return nil, err
	}
	return bulk.WriteAll(ctx, disp, records, onProgress), nil
}

// VerifyAll 批量写后复读比对，检出设备静默丢弃的记录
func (d *Driver) VerifyAll(ctx context.Context, records []pmr171.ChannelRecord, onProgress bulk.Progress) ([]bulk.WriteResult, error) {
	disp, err := d.dispatcher()
	if err != nil {
		return nil, err
	}
	return bulk.Verify(ctx, disp, records, onProgress), nil
}
