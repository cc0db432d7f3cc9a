package transport

import (
	"io"
	"time"

	"go.bug.st/serial"
)

// Port 串口句柄抽象，go.bug.st/serial.Port 的使用子集。
// 测试通过内存实现注入脚本化回包。
type Port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
	SetReadTimeout(t time.Duration) error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
}

// 固定串口参数：115200 8N1。电台侧不可配置。
const DefaultBaud = 115200

func openSerial(name string, baud int) (Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	return serial.Open(name, mode)
}

// ListPorts 枚举本机可用串口
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}
