package pmr171

import "fmt"

// Meters 表头同步（0x2D）回包，固定 2 字节
type Meters struct {
	SMeter   uint8 // 信号强度原始值
	PowerSWR uint8 // 发射功率/驻波比复用字节
}

// DecodeMeters 解析 0x2D 回包
func DecodeMeters(payload []byte) (Meters, error) {
	if len(payload) != 2 {
		return Meters{}, fmt.Errorf("meter payload length %d, want 2: %w", len(payload), ErrBadLength)
	}
	return Meters{SMeter: payload[0], PowerSWR: payload[1]}, nil
}

const paramBlockLen = 30

// Parameters 参数同步（0x2E）回包，固定 30 字节，字段按位置定义。
//
// SpectrumRef（第 17 字节）与 MorseGapRaw（第 23 字节）在高频轮询后
// 出现过超范围值，是设备内存异常还是横跨这两个位置的未公开多字节
// 字段尚无定论。二者仅原样透出，禁止在其上构建派生逻辑。
type Parameters struct {
	Volume       uint8 // 0
	RFGain       uint8 // 1
	SquelchLevel uint8 // 2
	SquelchMode  uint8 // 3: 0=载波 1=CTCSS/DCS 2=可选信令
	ToneRx       uint8 // 4: 接收亚音索引
	ToneTx       uint8 // 5: 发射亚音索引
	PowerClass   uint8 // 6
	SpectrumSpan uint8 // 14: 频谱显示带宽档位
	SpectrumRef  uint8 // 17: 频谱参考电平，不可靠字节
	MorseWPM     uint8 // 22: 莫尔斯码速
	MorseGapRaw  uint8 // 23: 莫尔斯间隔，不可靠字节
	Raw          [paramBlockLen]byte
}

// DecodeParameters 解析 0x2E 回包。未列出的字节位置含义未明，保留在 Raw。
func DecodeParameters(payload []byte) (Parameters, error) {
	if len(payload) != paramBlockLen {
		return Parameters{}, fmt.Errorf("param payload length %d, want %d: %w", len(payload), paramBlockLen, ErrBadLength)
	}
	p := Parameters{
		Volume:       payload[0],
		RFGain:       payload[1],
		SquelchLevel: payload[2],
		SquelchMode:  payload[3],
		ToneRx:       payload[4],
		ToneTx:       payload[5],
		PowerClass:   payload[6],
		SpectrumSpan: payload[14],
		SpectrumRef:  payload[17],
		MorseWPM:     payload[22],
		MorseGapRaw:  payload[23],
	}
	copy(p.Raw[:], payload)
	return p, nil
}

// Status 状态同步（0x0B）回包。载荷长度随固件版本变化，
// 仅解码跨版本稳定的头部字段，其余原样保留。
type Status struct {
	VFOAMode Mode
	VFOBMode Mode
	Raw      []byte
}

// DecodeStatus 解析 0x0B 回包
func DecodeStatus(payload []byte) (Status, error) {
	if len(payload) < 2 {
		return Status{}, fmt.Errorf("status payload length %d: %w", len(payload), ErrBadLength)
	}
	return Status{
		VFOAMode: Mode(payload[0]),
		VFOBMode: Mode(payload[1]),
		Raw:      append([]byte(nil), payload...),
	}, nil
}

// Identity 设备型号识别（0x27）回包
type Identity struct {
	Model string
	Raw   []byte
}

// DecodeIdentity 解析 0x27 回包，载荷为 ASCII 型号串时直接取用
func DecodeIdentity(payload []byte) Identity {
	id := Identity{Raw: append([]byte(nil), payload...)}
	if printableASCII(payload) {
		id.Model = string(payload)
	}
	return id
}

func printableASCII(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7E {
			return false
		}
	}
	return true
}
