package pmr171

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// 实机参考抓包：信道 0，146.52MHz 收发，NFM，100.0Hz 亚音（索引 13），名称 TEST
const referenceWriteFrame = "a5a5a5a51d400000060608bbb7c008bbb7c00d0d544553540000000000000000d124"

func referenceRecord() ChannelRecord {
	return ChannelRecord{
		Index:    0,
		RxMode:   ModeNFM,
		TxMode:   ModeNFM,
		RxFreqHz: 146520000,
		TxFreqHz: 146520000,
		RxTone:   13,
		TxTone:   13,
		Name:     "TEST",
		Kind:     KindAnalog,
	}
}

func TestEncodeChannel_ReferenceCapture(t *testing.T) {
	payload, err := EncodeChannel(referenceRecord())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got := Encode(CmdChanWrite, payload)
	want, _ := hex.DecodeString(referenceWriteFrame)
	if !bytes.Equal(got, want) {
		t.Fatalf("wire bytes\n got  % X\n want % X", got, want)
	}
}

func TestDecodeChannel_ReferenceCapture(t *testing.T) {
	raw, _ := hex.DecodeString(referenceWriteFrame)
	fr, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rec, err := DecodeChannel(fr.Payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec != referenceRecord() {
		t.Fatalf("decoded record %+v\nwant %+v", rec, referenceRecord())
	}
}

func TestChannelCodec_RoundTrip(t *testing.T) {
	cases := []ChannelRecord{
		referenceRecord(),
		{Index: 999, RxMode: ModeUSB, TxMode: ModeLSB, RxFreqHz: 7_074_000, TxFreqHz: 7_074_000, Name: "FT8"},
		{Index: 42, RxMode: ModeAM, TxMode: ModeAM, RxFreqHz: 0xFFFFFFFF, TxFreqHz: 1, RxTone: 55, TxTone: 1, Name: "EDGE-CASE-X"},
		{Index: 1, RxMode: ModeUnused, TxMode: ModeUnused, Name: ""},
		{
			Index: 7, RxMode: ModeDMR, TxMode: ModeDMR,
			RxFreqHz: 438_800_000, TxFreqHz: 430_800_000,
			Name: "DMR-RPT", Kind: KindDigital,
			Digital: DigitalParams{ContactID: 91, RadioID: 2345678, RxColor: 1, TxColor: 1, Slot: 2},
		},
	}
	for _, rec := range cases {
		raw, err := EncodeChannel(rec)
		if err != nil {
			t.Fatalf("encode %+v: %v", rec, err)
		}
		got, err := DecodeChannel(raw)
		if err != nil {
			t.Fatalf("decode %+v: %v", rec, err)
		}
		if got != rec {
			t.Errorf("round trip mismatch\n got  %+v\n want %+v", got, rec)
		}
	}
}

func TestEncodeChannel_RecordLengths(t *testing.T) {
	analog, err := EncodeChannel(referenceRecord())
	if err != nil {
		t.Fatal(err)
	}
	if len(analog) != 26 {
		t.Fatalf("analog record %d bytes, want 26", len(analog))
	}
	digital := ChannelRecord{
		Index: 3, RxMode: ModeDMR, TxMode: ModeDMR, RxFreqHz: 438_000_000, TxFreqHz: 438_000_000,
		Kind: KindDigital, Digital: DigitalParams{RadioID: 1, Slot: 1},
	}
	raw, err := EncodeChannel(digital)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 37 {
		t.Fatalf("digital record %d bytes, want 37", len(raw))
	}
}

func TestEncodeChannel_NameTruncatedToEleven(t *testing.T) {
	rec := referenceRecord()
	rec.Name = "ABCDEFGHIJKLMNOP" // 16 字符
	raw, err := EncodeChannel(rec)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeChannel(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "ABCDEFGHIJK" {
		t.Fatalf("name %q, want 11-char truncation", got.Name)
	}
	if raw[14+11] != 0 {
		t.Fatalf("name field must stay NUL-terminated")
	}
}

func TestEncodeChannel_Validation(t *testing.T) {
	cases := []struct {
		name string
		rec  ChannelRecord
	}{
		{"index too high", ChannelRecord{Index: 1000, RxMode: ModeNFM, TxMode: ModeNFM}},
		{"negative index", ChannelRecord{Index: -1, RxMode: ModeNFM, TxMode: ModeNFM}},
		{"unknown mode", ChannelRecord{Index: 0, RxMode: Mode(42), TxMode: ModeNFM}},
		{"reserved tone", ChannelRecord{Index: 0, RxMode: ModeNFM, TxMode: ModeNFM, RxTone: 25}},
		{"tone out of range", ChannelRecord{Index: 0, RxMode: ModeNFM, TxMode: ModeNFM, TxTone: 56}},
		{"digital leftovers on analog", ChannelRecord{
			Index: 0, RxMode: ModeNFM, TxMode: ModeNFM,
			Digital: DigitalParams{RadioID: 5},
		}},
		{"bad slot", ChannelRecord{
			Index: 0, RxMode: ModeDMR, TxMode: ModeDMR, Kind: KindDigital,
			Digital: DigitalParams{Slot: 3},
		}},
		{"color code out of range", ChannelRecord{
			Index: 0, RxMode: ModeDMR, TxMode: ModeDMR, Kind: KindDigital,
			Digital: DigitalParams{RxColor: 16, Slot: 1},
		}},
	}
	for _, c := range cases {
		if _, err := EncodeChannel(c.rec); err == nil {
			t.Errorf("%s: expected validation error", c.name)
		}
	}
}

func TestChannelRecord_Empty(t *testing.T) {
	if !(ChannelRecord{Index: 1, RxMode: ModeUnused}).Empty() {
		t.Error("UNUSED mode must read as empty")
	}
	if !(ChannelRecord{Index: 1, RxMode: ModeNFM, RxFreqHz: 0}).Empty() {
		t.Error("zero rx frequency must read as empty")
	}
	if referenceRecord().Empty() {
		t.Error("reference record must not read as empty")
	}
}

func TestDecodeChannel_TooShort(t *testing.T) {
	if _, err := DecodeChannel(make([]byte, 25)); err == nil {
		t.Fatal("expected error on short record")
	}
}

// 旧固件对 DMR 信道只回 26 字节：附加字段按零值处理，类别仍为数字
func TestDecodeChannel_DigitalWithoutExtension(t *testing.T) {
	rec := ChannelRecord{
		Index: 5, RxMode: ModeDMR, TxMode: ModeDMR, RxFreqHz: 438_000_000, TxFreqHz: 438_000_000,
		Kind: KindDigital, Digital: DigitalParams{RadioID: 7, Slot: 1},
	}
	raw, err := EncodeChannel(rec)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeChannel(raw[:26])
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != KindDigital || !got.Digital.zero() {
		t.Fatalf("unexpected record: %+v", got)
	}
}
