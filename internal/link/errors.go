package link

import "fmt"

// 失败类别，用于错误上报与指标标签
const (
	FailTimeout = "timeout" // 超时未收到任何字节
	FailFraming = "framing" // 收到字节但始终解不出合法帧
	FailIO      = "io"      // 底层串口读写错误
)

// ProtocolError 一条命令在重试耗尽后的最终失败。
// 携带操作码、尝试次数与最后收到的原始字节，足以支撑界面提示与日志定位：
// 设备不稳定、半截写入与普通瞬态错误在现象上无法区分，只能靠这些细节。
type ProtocolError struct {
	Opcode   uint8
	Command  string
	Attempts int
	Class    string
	LastRaw  []byte
	Err      error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("command %s (0x%02X) failed after %d attempt(s): %s", e.Command, e.Opcode, e.Attempts, e.Class)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// EchoMismatchError 写入已被确认但回显内容与下发不一致。
// 设备偶发只保留部分数据，此错误不自动重试，交由调用方决定
// 重写还是按数据丢失上报。
type EchoMismatchError struct {
	Index  int
	Sent   []byte
	Echoed []byte
}

func (e *EchoMismatchError) Error() string {
	return fmt.Sprintf("channel %d write echo mismatch: sent %d bytes, device echoed different content", e.Index, len(e.Sent))
}
