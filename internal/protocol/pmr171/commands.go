package pmr171

import "fmt"

// 命令操作码。数值与实机协议一致，0x2D/0x2E 来自接口摸底，
// 官方资料未覆盖。
const (
	CmdPTT       uint8 = 0x07 // 按键发射控制
	CmdModeSet   uint8 = 0x0A // 工作模式设置
	CmdStatus    uint8 = 0x0B // 状态同步
	CmdIdentify  uint8 = 0x27 // 设备型号识别
	CmdPowerSet  uint8 = 0x28 // 功率档位设置
	CmdRITSet    uint8 = 0x29 // 接收频偏（RIT）设置
	CmdMeterSync uint8 = 0x2D // 表头同步，回包 2 字节
	CmdParamSync uint8 = 0x2E // 参数同步，回包 30 字节
	CmdSpectrum  uint8 = 0x39 // 频谱数据请求
	CmdChanWrite uint8 = 0x40 // 信道写入，设备回显完整记录
	CmdChanRead  uint8 = 0x41 // 信道读取，请求仅 2 字节索引
)

// RiskClass 命令风险等级，依据实机表现而非协议文档划定
type RiskClass uint8

const (
	RiskStable RiskClass = iota
	// RiskUnstable 2 秒内连发 5 次可稳定复现死机，需限速并显式启用
	RiskUnstable
	// RiskBlocked 默认禁止下发，根因未明
	RiskBlocked
)

func (r RiskClass) String() string {
	switch r {
	case RiskUnstable:
		return "unstable"
	case RiskBlocked:
		return "blocked"
	default:
		return "stable"
	}
}

// 载荷长度约定：LenVariable 表示长度随内容变化
const LenVariable = -1

// CommandSpec 单条命令的请求/响应形态与风险等级
type CommandSpec struct {
	Name        string
	RequestLen  int
	ResponseLen int
	Risk        RiskClass
}

// CommandSet 操作码 → 命令规格表。一次性构造的不可变配置值，
// 显式传入调度器与安全策略，便于测试替换；新增操作码只需加表项。
type CommandSet map[uint8]CommandSpec

// Lookup 查表，未知操作码返回 ok=false
func (s CommandSet) Lookup(op uint8) (CommandSpec, bool) {
	spec, ok := s[op]
	return spec, ok
}

// Name 操作码的可读名称，用于错误与日志
func (s CommandSet) Name(op uint8) string {
	if spec, ok := s[op]; ok {
		return spec.Name
	}
	return fmt.Sprintf("0x%02X", op)
}

// DefaultCommands 默认命令表
func DefaultCommands() CommandSet {
	return CommandSet{
		CmdPTT:       {Name: "ptt", RequestLen: 1, ResponseLen: 0, Risk: RiskStable},
		CmdModeSet:   {Name: "mode_set", RequestLen: 2, ResponseLen: 0, Risk: RiskStable},
		CmdStatus:    {Name: "status_sync", RequestLen: 0, ResponseLen: LenVariable, Risk: RiskStable},
		CmdIdentify:  {Name: "identify", RequestLen: 0, ResponseLen: LenVariable, Risk: RiskStable},
		CmdPowerSet:  {Name: "power_set", RequestLen: 1, ResponseLen: 0, Risk: RiskStable},
		CmdRITSet:    {Name: "rit_set", RequestLen: 4, ResponseLen: 0, Risk: RiskStable},
		CmdMeterSync: {Name: "meter_sync", RequestLen: 0, ResponseLen: 2, Risk: RiskUnstable},
		CmdParamSync: {Name: "param_sync", RequestLen: 0, ResponseLen: 30, Risk: RiskUnstable},
		CmdSpectrum:  {Name: "spectrum", RequestLen: 0, ResponseLen: LenVariable, Risk: RiskStable},
		CmdChanWrite: {Name: "channel_write", RequestLen: LenVariable, ResponseLen: LenVariable, Risk: RiskStable},
		CmdChanRead:  {Name: "channel_read", RequestLen: 2, ResponseLen: LenVariable, Risk: RiskStable},
	}
}
