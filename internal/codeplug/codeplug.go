// Package codeplug 信道表的 YAML 存档格式。
// 文件面向人编辑：模式用名称、亚音用 Hz，落盘前全部换算并校验为
// 设备可表示的记录。
package codeplug

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/taoyao-code/pmr171-link/internal/protocol/pmr171"
)

// CurrentVersion 当前存档格式版本
const CurrentVersion = 1

// Digital DMR 信道附加字段
type Digital struct {
	ContactID uint32 `yaml:"contactId"`
	RadioID   uint32 `yaml:"radioId"`
	RxColor   uint8  `yaml:"rxColor"`
	TxColor   uint8  `yaml:"txColor"`
	Slot      uint8  `yaml:"slot"`
}

// Channel 存档中的一条信道。
// txMode/txFreqHz 省略时取接收侧同值，亚音省略表示无亚音。
type Channel struct {
	Index    int      `yaml:"index"`
	Name     string   `yaml:"name,omitempty"`
	RxMode   string   `yaml:"rxMode"`
	TxMode   string   `yaml:"txMode,omitempty"`
	RxFreqHz uint32   `yaml:"rxFreqHz"`
	TxFreqHz uint32   `yaml:"txFreqHz,omitempty"`
	RxToneHz float64  `yaml:"rxToneHz,omitempty"`
	TxToneHz float64  `yaml:"txToneHz,omitempty"`
	Digital  *Digital `yaml:"digital,omitempty"`
}

// Document 完整存档
type Document struct {
	Version  int       `yaml:"version"`
	Radio    string    `yaml:"radio,omitempty"`
	Channels []Channel `yaml:"channels"`
}

// Load 读取并解析存档文件
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read codeplug: %w", err)
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse codeplug: %w", err)
	}
	if doc.Version > CurrentVersion {
		return nil, fmt.Errorf("codeplug version %d newer than supported %d", doc.Version, CurrentVersion)
	}
	return &doc, nil
}

// Save 序列化存档到文件
func Save(path string, doc *Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal codeplug: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write codeplug: %w", err)
	}
	return nil
}

// Records 把存档换算为设备记录并逐条校验。
// 索引重复、未知模式、不可表示亚音都在这里拒绝，坏文件绝不上线。
func (d *Document) Records() ([]pmr171.ChannelRecord, error) {
	seen := make(map[int]bool, len(d.Channels))
	out := make([]pmr171.ChannelRecord, 0, len(d.Channels))
	for i, ch := range d.Channels {
		if seen[ch.Index] {
			return nil, fmt.Errorf("channel entry %d: duplicate index %d", i, ch.Index)
		}
		seen[ch.Index] = true
		rec, err := ch.record()
		if err != nil {
			return nil, fmt.Errorf("channel entry %d (index %d): %w", i, ch.Index, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (ch Channel) record() (pmr171.ChannelRecord, error) {
	rxMode, ok := pmr171.ParseMode(ch.RxMode)
	if !ok {
		return pmr171.ChannelRecord{}, fmt.Errorf("unknown rx mode %q", ch.RxMode)
	}
	txMode := rxMode
	if ch.TxMode != "" {
		if txMode, ok = pmr171.ParseMode(ch.TxMode); !ok {
			return pmr171.ChannelRecord{}, fmt.Errorf("unknown tx mode %q", ch.TxMode)
		}
	}
	txFreq := ch.TxFreqHz
	if txFreq == 0 {
		txFreq = ch.RxFreqHz
	}
	rxTone, err := toneIndex(ch.RxToneHz)
	if err != nil {
		return pmr171.ChannelRecord{}, fmt.Errorf("rx tone: %w", err)
	}
	txTone, err := toneIndex(ch.TxToneHz)
	if err != nil {
		return pmr171.ChannelRecord{}, fmt.Errorf("tx tone: %w", err)
	}

	rec := pmr171.ChannelRecord{
		Index:    ch.Index,
		RxMode:   rxMode,
		TxMode:   txMode,
		RxFreqHz: ch.RxFreqHz,
		TxFreqHz: txFreq,
		RxTone:   rxTone,
		TxTone:   txTone,
		Name:     ch.Name,
	}
	if rxMode == pmr171.ModeDMR && ch.Digital == nil {
		return pmr171.ChannelRecord{}, fmt.Errorf("dmr channel requires a digital block")
	}
	if ch.Digital != nil {
		rec.Kind = pmr171.KindDigital
		rec.Digital = pmr171.DigitalParams{
			ContactID: ch.Digital.ContactID,
			RadioID:   ch.Digital.RadioID,
			RxColor:   ch.Digital.RxColor,
			TxColor:   ch.Digital.TxColor,
			Slot:      ch.Digital.Slot,
		}
	}
	if err := rec.Validate(); err != nil {
		return pmr171.ChannelRecord{}, err
	}
	return rec, nil
}

// FromRecords 由设备记录构造存档，空信道跳过，按索引升序排列
func FromRecords(records []pmr171.ChannelRecord) *Document {
	doc := &Document{Version: CurrentVersion, Radio: "PMR-171"}
	ordered := make([]pmr171.ChannelRecord, 0, len(records))
	for _, rec := range records {
		if rec.Empty() {
			continue
		}
		ordered = append(ordered, rec)
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	for _, rec := range ordered {
		ch := Channel{
			Index:    rec.Index,
			Name:     rec.Name,
			RxMode:   rec.RxMode.String(),
			RxFreqHz: rec.RxFreqHz,
			RxToneHz: toneHz(rec.RxTone),
			TxToneHz: toneHz(rec.TxTone),
		}
		if rec.TxMode != rec.RxMode {
			ch.TxMode = rec.TxMode.String()
		}
		if rec.TxFreqHz != rec.RxFreqHz {
			ch.TxFreqHz = rec.TxFreqHz
		}
		if rec.Kind == pmr171.KindDigital {
			ch.Digital = &Digital{
				ContactID: rec.Digital.ContactID,
				RadioID:   rec.Digital.RadioID,
				RxColor:   rec.Digital.RxColor,
				TxColor:   rec.Digital.TxColor,
				Slot:      rec.Digital.Slot,
			}
		}
		doc.Channels = append(doc.Channels, ch)
	}
	return doc
}

// toneIndex Hz → 设备索引。0 表示无亚音，未知频率报错而非静默丢弃。
func toneIndex(hz float64) (uint8, error) {
	if hz == 0 {
		return pmr171.ToneNone, nil
	}
	tenths := math.Round(hz * 10)
	if tenths < 0 || tenths > math.MaxUint16 {
		return 0, fmt.Errorf("tone %.1f Hz out of range", hz)
	}
	return pmr171.ToneIndexStrict(uint16(tenths))
}

func toneHz(index uint8) float64 {
	tenths, ok := pmr171.IndexToFrequency(index)
	if !ok {
		return 0
	}
	return float64(tenths) / 10
}
