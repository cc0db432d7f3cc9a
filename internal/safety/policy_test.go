package safety

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/pmr171-link/internal/protocol/pmr171"
)

func TestPolicy_StableCommandsPass(t *testing.T) {
	p := New(pmr171.DefaultCommands(), Config{})
	for _, op := range []uint8{pmr171.CmdStatus, pmr171.CmdChanRead, pmr171.CmdChanWrite, pmr171.CmdIdentify} {
		assert.NoError(t, p.CheckCommand(op), "opcode 0x%02X", op)
	}
}

func TestPolicy_UnknownOpcodeRejected(t *testing.T) {
	p := New(pmr171.DefaultCommands(), Config{})
	var uo *UnsupportedOperationError
	require.ErrorAs(t, p.CheckCommand(0xEE), &uo)
}

func TestPolicy_UnstableNeedsOptIn(t *testing.T) {
	p := New(pmr171.DefaultCommands(), Config{AllowUnstable: false})
	var uo *UnsupportedOperationError
	require.ErrorAs(t, p.CheckCommand(pmr171.CmdMeterSync), &uo)
	require.ErrorAs(t, p.CheckCommand(pmr171.CmdParamSync), &uo)
}

func TestPolicy_UnstableIntervalEnforced(t *testing.T) {
	p := New(pmr171.DefaultCommands(), Config{AllowUnstable: true, UnstableInterval: 50 * time.Millisecond})

	require.NoError(t, p.CheckCommand(pmr171.CmdMeterSync))

	var rl *RateLimitedError
	require.ErrorAs(t, p.CheckCommand(pmr171.CmdMeterSync), &rl)
	assert.Equal(t, pmr171.CmdMeterSync, rl.Opcode)
	assert.Equal(t, 50*time.Millisecond, rl.Interval)

	time.Sleep(60 * time.Millisecond)
	assert.NoError(t, p.CheckCommand(pmr171.CmdMeterSync), "interval elapsed, next request allowed")
}

// 表头同步与参数同步各自独立限速，互不占用对方的额度
func TestPolicy_PerOpcodeLimiters(t *testing.T) {
	p := New(pmr171.DefaultCommands(), Config{AllowUnstable: true, UnstableInterval: time.Hour})
	require.NoError(t, p.CheckCommand(pmr171.CmdMeterSync))
	require.NoError(t, p.CheckCommand(pmr171.CmdParamSync))
}

func TestPolicy_DefaultInterval(t *testing.T) {
	p := New(pmr171.DefaultCommands(), Config{AllowUnstable: true})
	require.NoError(t, p.CheckCommand(pmr171.CmdMeterSync))
	var rl *RateLimitedError
	require.ErrorAs(t, p.CheckCommand(pmr171.CmdMeterSync), &rl)
	assert.Equal(t, DefaultUnstableInterval, rl.Interval)
}

func TestPolicy_DigitalWriteBlocked(t *testing.T) {
	p := New(pmr171.DefaultCommands(), Config{})
	var uo *UnsupportedOperationError
	require.ErrorAs(t, p.CheckChannelWrite(pmr171.KindDigital), &uo)
	assert.Equal(t, pmr171.CmdChanWrite, uo.Opcode)
	assert.NoError(t, p.CheckChannelWrite(pmr171.KindAnalog))
}

func TestPolicy_DigitalWriteOverride(t *testing.T) {
	p := New(pmr171.DefaultCommands(), Config{AllowDigitalWrite: true})
	assert.NoError(t, p.CheckChannelWrite(pmr171.KindDigital))
}

// 命令表是显式传入的配置值，测试可替换风险等级
func TestPolicy_AlternateCommandTable(t *testing.T) {
	cmds := pmr171.CommandSet{
		0x50: {Name: "experimental", Risk: pmr171.RiskBlocked},
	}
	p := New(cmds, Config{})
	var uo *UnsupportedOperationError
	require.ErrorAs(t, p.CheckCommand(0x50), &uo)
	assert.Equal(t, "experimental", uo.Command)
}
