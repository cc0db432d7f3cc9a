package pmr171

import "testing"

// 参考向量来自实机抓包与标准 CRC-16/CCITT-FALSE 校验值
func TestCRC16_ReferenceVectors(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want uint16
	}{
		{"empty", nil, 0xFFFF},
		{"zero byte", []byte{0x00}, 0xE1F0},
		{"ff byte", []byte{0xFF}, 0xFF00},
		{"status body", []byte{0x03, 0x0B}, 0xF937},
		{"check string", []byte("123456789"), 0x29B1},
		{"write header", []byte{0x1D, 0x40}, 0x20E4},
	}
	for _, c := range cases {
		if got := CRC16(c.in); got != c.want {
			t.Errorf("%s: CRC16=0x%04X, want 0x%04X", c.name, got, c.want)
		}
	}
}

func TestCRC16_ByteOrderSensitive(t *testing.T) {
	a := CRC16([]byte{0x01, 0x02})
	b := CRC16([]byte{0x02, 0x01})
	if a == b {
		t.Fatalf("CRC must depend on byte order, got 0x%04X for both", a)
	}
}
