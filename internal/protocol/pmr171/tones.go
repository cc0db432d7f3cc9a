package pmr171

import "fmt"

// 亚音表：设备内部索引 ↔ CTCSS 频率（0.1Hz 单位）。
//
// 该表为实测结果：对 50 个标准亚音逐一写入设备并回读其上报索引得到，
// 不满足 index = position + constant 之类的线性关系。索引 25/45/47/51/53
// 为保留空位，含义未知，按"无映射"处理，禁止插值或平滑。
// 表为数据而非逻辑，修改前必须重新对实机验证。

const toneIndexMax = 55

// ToneNone 表示无亚音
const ToneNone uint8 = 0

var toneByIndex = map[uint8]uint16{
	1: 670, 2: 693, 3: 719, 4: 744, 5: 770, 6: 797,
	7: 825, 8: 854, 9: 885, 10: 915, 11: 948, 12: 974,
	13: 1000, 14: 1035, 15: 1072, 16: 1109, 17: 1148, 18: 1188,
	19: 1230, 20: 1273, 21: 1318, 22: 1365, 23: 1413, 24: 1462,
	26: 1514, 27: 1567, 28: 1598, 29: 1622, 30: 1655, 31: 1679,
	32: 1713, 33: 1738, 34: 1773, 35: 1799, 36: 1835, 37: 1862,
	38: 1899, 39: 1928, 40: 1966, 41: 1995, 42: 2035, 43: 2065,
	44: 2107, 46: 2181, 48: 2257, 49: 2291, 50: 2336, 52: 2418,
	54: 2503, 55: 2541,
}

// reservedToneIndices 保留空位，实机未分配
var reservedToneIndices = map[uint8]bool{25: true, 45: true, 47: true, 51: true, 53: true}

var toneByFreq = func() map[uint16]uint8 {
	m := make(map[uint16]uint8, len(toneByIndex))
	for idx, f := range toneByIndex {
		m[f] = idx
	}
	return m
}()

// IndexToFrequency 索引 → 频率（0.1Hz）。索引 0、保留位或越界返回 ok=false。
func IndexToFrequency(index uint8) (freqTenthsHz uint16, ok bool) {
	f, ok := toneByIndex[index]
	return f, ok
}

// FrequencyToIndex 频率（0.1Hz）→ 索引。表中无此频率返回 ok=false。
func FrequencyToIndex(freqTenthsHz uint16) (index uint8, ok bool) {
	idx, ok := toneByFreq[freqTenthsHz]
	return idx, ok
}

// ToneIndexFor 宽松转换：未知频率编码为 ToneNone 而非报错，0 表示无亚音。
func ToneIndexFor(freqTenthsHz uint16) uint8 {
	if freqTenthsHz == 0 {
		return ToneNone
	}
	idx, ok := toneByFreq[freqTenthsHz]
	if !ok {
		return ToneNone
	}
	return idx
}

// ToneIndexStrict 严格转换：用于校验路径，不可表示的亚音显式报错。
func ToneIndexStrict(freqTenthsHz uint16) (uint8, error) {
	if freqTenthsHz == 0 {
		return ToneNone, nil
	}
	idx, ok := toneByFreq[freqTenthsHz]
	if !ok {
		return 0, fmt.Errorf("unrepresentable ctcss tone %d.%d Hz", freqTenthsHz/10, freqTenthsHz%10)
	}
	return idx, nil
}

func validToneIndex(index uint8) error {
	if index == ToneNone {
		return nil
	}
	if index > toneIndexMax {
		return fmt.Errorf("tone index %d out of range [0,%d]", index, toneIndexMax)
	}
	if reservedToneIndices[index] {
		return fmt.Errorf("tone index %d is reserved", index)
	}
	return nil
}
