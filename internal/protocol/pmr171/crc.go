package pmr171

// CRC16 计算 PMR-171 协议使用的 CRC-16-CCITT
// 多项式 0x1021，初始值 0xFFFF，覆盖范围为 len‖cmd‖payload。
// 纯函数，与实机抓包参考向量逐字节对齐，不可改动。
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		cur := uint16(b) << 8
		for i := 0; i < 8; i++ {
			if (crc^cur)&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
			cur <<= 1
		}
	}
	return crc
}
