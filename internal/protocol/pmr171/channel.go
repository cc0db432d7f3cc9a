package pmr171

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// Mode 电台工作模式
type Mode uint8

const (
	ModeUSB    Mode = 0
	ModeLSB    Mode = 1
	ModeCWR    Mode = 2
	ModeCWL    Mode = 3
	ModeAM     Mode = 4
	ModeWFM    Mode = 5
	ModeNFM    Mode = 6
	ModeDIGI   Mode = 7
	ModePKT    Mode = 8
	ModeDMR    Mode = 9
	ModeUnused Mode = 255 // 空信道哨兵值
)

var modeNames = map[Mode]string{
	ModeUSB: "USB", ModeLSB: "LSB", ModeCWR: "CWR", ModeCWL: "CWL",
	ModeAM: "AM", ModeWFM: "WFM", ModeNFM: "NFM", ModeDIGI: "DIGI",
	ModePKT: "PKT", ModeDMR: "DMR", ModeUnused: "UNUSED",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Valid 是否为协议已知模式
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// ParseMode 名称 → 模式，大小写不敏感
func ParseMode(s string) (Mode, bool) {
	for m, name := range modeNames {
		if strings.EqualFold(name, s) {
			return m, true
		}
	}
	return ModeUnused, false
}

// ChannelKind 信道类别：模拟或数字（DMR）
type ChannelKind uint8

const (
	KindAnalog ChannelKind = iota
	KindDigital
)

func (k ChannelKind) String() string {
	if k == KindDigital {
		return "digital"
	}
	return "analog"
}

const (
	// ChannelCount 设备信道存储容量，索引 0..999
	ChannelCount = 1000

	nameFieldLen = 12
	// NameMaxLen 信道名可见字符上限（第 12 字节固定为 NUL）
	NameMaxLen = nameFieldLen - 1

	analogRecordLen  = 26
	digitalRecordLen = analogRecordLen + 11
)

// DigitalParams DMR 信道附加参数，仅 Kind==KindDigital 时有效。
// 模拟信道上必须全零，残留非零值会在模式切换后造成设备状态异常。
type DigitalParams struct {
	ContactID uint32 // 组呼/单呼目标 ID
	RadioID   uint32 // 本机 ID
	RxColor   uint8  // 色码 0-15
	TxColor   uint8
	Slot      uint8 // 时隙 1 或 2
}

func (d DigitalParams) zero() bool { return d == DigitalParams{} }

// ChannelRecord 一个可编程信道存储位。
// 由调用方或设备回包构造，构造后不可变；引擎不缓存历史记录，每次读取以设备为准。
type ChannelRecord struct {
	Index    int
	RxMode   Mode
	TxMode   Mode
	RxFreqHz uint32
	TxFreqHz uint32
	RxTone   uint8 // 设备内部亚音索引，0=无
	TxTone   uint8
	Name     string
	Kind     ChannelKind
	Digital  DigitalParams
}

// Empty 是否为空信道（UNUSED 模式或接收频率为 0）
func (r ChannelRecord) Empty() bool {
	return r.RxMode == ModeUnused || r.RxFreqHz == 0
}

// Validate 写入前的记录校验
func (r ChannelRecord) Validate() error {
	if r.Index < 0 || r.Index >= ChannelCount {
		return fmt.Errorf("channel index %d out of range [0,%d]", r.Index, ChannelCount-1)
	}
	if !r.RxMode.Valid() || !r.TxMode.Valid() {
		return fmt.Errorf("channel %d: invalid mode rx=%d tx=%d", r.Index, r.RxMode, r.TxMode)
	}
	if err := validToneIndex(r.RxTone); err != nil {
		return fmt.Errorf("channel %d rx tone: %w", r.Index, err)
	}
	if err := validToneIndex(r.TxTone); err != nil {
		return fmt.Errorf("channel %d tx tone: %w", r.Index, err)
	}
	if r.Kind == KindAnalog && !r.Digital.zero() {
		return fmt.Errorf("channel %d: digital params set on analog record", r.Index)
	}
	if r.Kind == KindDigital {
		if r.Digital.RxColor > 15 || r.Digital.TxColor > 15 {
			return fmt.Errorf("channel %d: color code out of range", r.Index)
		}
		if r.Digital.Slot != 1 && r.Digital.Slot != 2 {
			return fmt.Errorf("channel %d: slot must be 1 or 2", r.Index)
		}
	}
	return nil
}

// EncodeChannel 将记录编码为线上格式。
// 模拟记录 26 字节，数字记录追加 11 字节 DMR 字段。
func EncodeChannel(r ChannelRecord) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	size := analogRecordLen
	if r.Kind == KindDigital {
		size = digitalRecordLen
	}
	buf := make([]byte, 0, size)
	buf = binary.BigEndian.AppendUint16(buf, uint16(r.Index))
	buf = append(buf, byte(r.RxMode), byte(r.TxMode))
	buf = binary.BigEndian.AppendUint32(buf, r.RxFreqHz)
	buf = binary.BigEndian.AppendUint32(buf, r.TxFreqHz)
	buf = append(buf, r.RxTone, r.TxTone)
	buf = append(buf, encodeName(r.Name)...)
	if r.Kind == KindDigital {
		buf = binary.BigEndian.AppendUint32(buf, r.Digital.ContactID)
		buf = binary.BigEndian.AppendUint32(buf, r.Digital.RadioID)
		buf = append(buf, r.Digital.RxColor, r.Digital.TxColor, r.Digital.Slot)
	}
	return buf, nil
}

// DecodeChannel 解析设备回包中的信道记录
func DecodeChannel(data []byte) (ChannelRecord, error) {
	if len(data) < analogRecordLen {
		return ChannelRecord{}, fmt.Errorf("channel record too short: %d bytes: %w", len(data), ErrShortFrame)
	}
	r := ChannelRecord{
		Index:    int(binary.BigEndian.Uint16(data[0:2])),
		RxMode:   Mode(data[2]),
		TxMode:   Mode(data[3]),
		RxFreqHz: binary.BigEndian.Uint32(data[4:8]),
		TxFreqHz: binary.BigEndian.Uint32(data[8:12]),
		RxTone:   data[12],
		TxTone:   data[13],
		Name:     decodeName(data[14 : 14+nameFieldLen]),
	}
	if r.RxMode == ModeDMR {
		r.Kind = KindDigital
		if len(data) >= digitalRecordLen {
			ext := data[analogRecordLen:]
			r.Digital = DigitalParams{
				ContactID: binary.BigEndian.Uint32(ext[0:4]),
				RadioID:   binary.BigEndian.Uint32(ext[4:8]),
				RxColor:   ext[8],
				TxColor:   ext[9],
				Slot:      ext[10],
			}
		}
	}
	return r, nil
}

// encodeName 截断到 11 字节并补 NUL，不做左填充
func encodeName(name string) []byte {
	b := []byte(name)
	if len(b) > NameMaxLen {
		b = b[:NameMaxLen]
	}
	out := make([]byte, nameFieldLen)
	copy(out, b)
	return out
}

// decodeName 读到 NUL 或字段末尾为止
func decodeName(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(field)
}
