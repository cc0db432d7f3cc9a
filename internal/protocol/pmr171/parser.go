package pmr171

import (
	"encoding/binary"
	"errors"
)

var (
	ErrInvalidMagic = errors.New("invalid magic")
	ErrShortFrame   = errors.New("short frame")
	ErrBadLength    = errors.New("bad length")
	ErrBadCRC       = errors.New("bad crc")
)

// Encode 组装一帧完整报文：magic + len + cmd + payload + crcBE
func Encode(cmd uint8, payload []byte) []byte {
	bodyLen := 1 + len(payload) + 2
	buf := make([]byte, 0, magicLen+1+bodyLen)
	buf = append(buf, magic...)
	buf = append(buf, byte(bodyLen), cmd)
	buf = append(buf, payload...)
	crc := CRC16(buf[magicLen:])
	return binary.BigEndian.AppendUint16(buf, crc)
}

// Parse 严格解析一帧（magic、len、CRC 全部校验）。
// raw 必须恰好为一帧，长度不符即报错。
func Parse(raw []byte) (*Frame, error) {
	if len(raw) < minFrameLen {
		return nil, ErrShortFrame
	}
	for i := 0; i < magicLen; i++ {
		if raw[i] != magic[i] {
			return nil, ErrInvalidMagic
		}
	}
	bodyLen := int(raw[magicLen])
	if bodyLen < minBodyLen {
		return nil, ErrBadLength
	}
	if len(raw) != magicLen+1+bodyLen {
		return nil, ErrBadLength
	}
	body := raw[magicLen:]
	got := binary.BigEndian.Uint16(body[len(body)-2:])
	if want := CRC16(body[:len(body)-2]); got != want {
		return nil, ErrBadCRC
	}
	payload := body[2 : len(body)-2]
	return &Frame{Cmd: body[1], Payload: payload}, nil
}

// StreamDecoder 处理串口字节流中的半帧/粘帧。
// 电台回包前偶有残留杂散字节，解码器按 magic 同步并在 CRC 失败时滑动重同步。
type StreamDecoder struct {
	buf []byte
}

func NewStreamDecoder() *StreamDecoder { return &StreamDecoder{} }

// Reset 丢弃缓冲内容（每次请求前与 ResetInput 配合使用）
func (d *StreamDecoder) Reset() { d.buf = d.buf[:0] }

// Feed 追加数据并尽可能解出多帧
func (d *StreamDecoder) Feed(p []byte) []*Frame {
	if len(p) == 0 {
		return nil
	}
	d.buf = append(d.buf, p...)
	var frames []*Frame

	for {
		start := indexMagic(d.buf)
		if start < 0 {
			// 无 magic：仅保留可能跨界的尾部字节，避免无界增长
			if len(d.buf) > magicLen-1 {
				d.buf = d.buf[len(d.buf)-(magicLen-1):]
			}
			return frames
		}
		if start > 0 {
			d.buf = d.buf[start:]
		}
		if len(d.buf) < magicLen+1 {
			return frames
		}
		total := magicLen + 1 + int(d.buf[magicLen])
		if total < minFrameLen || total > maxFrameLen {
			d.buf = d.buf[1:]
			continue
		}
		if len(d.buf) < total {
			// 半帧，等待更多字节
			return frames
		}
		fr, err := Parse(d.buf[:total])
		if err != nil {
			// 校验失败，滑动一个字节继续找同步点
			d.buf = d.buf[1:]
			continue
		}
		// Parse 返回的 payload 引用缓冲区，消耗前先拷贝
		fr.Payload = append([]byte(nil), fr.Payload...)
		frames = append(frames, fr)
		d.buf = d.buf[total:]
		if len(d.buf) == 0 {
			return frames
		}
	}
}

func indexMagic(b []byte) int {
	if len(b) < magicLen {
		return -1
	}
	for i := 0; i <= len(b)-magicLen; i++ {
		if b[i] == magic[0] && b[i+1] == magic[1] && b[i+2] == magic[2] && b[i+3] == magic[3] {
			return i
		}
	}
	return -1
}
