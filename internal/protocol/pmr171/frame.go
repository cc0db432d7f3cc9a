package pmr171

// Frame PMR-171 串口协议帧
// 布局：magic[4]=0xA5A5A5A5 | len[1] | cmd[1] | payload[..] | crcBE[2]
// len 字段 = cmd + payload + crc 的总字节数
type Frame struct {
	Cmd     uint8
	Payload []byte
}

var magic = []byte{0xA5, 0xA5, 0xA5, 0xA5}

const (
	magicLen = 4
	// cmd(1) + crc(2)，即空载荷时 len 字段的最小值
	minBodyLen = 3
	// magic + len + cmd + crc
	minFrameLen = magicLen + 1 + minBodyLen
	// len 为单字节，帧总长上限固定
	maxFrameLen = magicLen + 1 + 0xFF
)
