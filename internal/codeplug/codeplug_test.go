package codeplug

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taoyao-code/pmr171-link/internal/protocol/pmr171"
)

func TestDocument_RecordsRoundTrip(t *testing.T) {
	records := []pmr171.ChannelRecord{
		{Index: 0, RxMode: pmr171.ModeNFM, TxMode: pmr171.ModeNFM,
			RxFreqHz: 146_520_000, TxFreqHz: 146_520_000,
			RxTone: 13, TxTone: 13, Name: "CALL"},
		{Index: 5, RxMode: pmr171.ModeNFM, TxMode: pmr171.ModeNFM,
			RxFreqHz: 145_600_000, TxFreqHz: 145_000_000, Name: "RPT"},
		{Index: 9, RxMode: pmr171.ModeDMR, TxMode: pmr171.ModeDMR,
			RxFreqHz: 438_800_000, TxFreqHz: 431_200_000, Name: "DMR",
			Kind: pmr171.KindDigital,
			Digital: pmr171.DigitalParams{ContactID: 91, RadioID: 2345678, RxColor: 1, TxColor: 1, Slot: 2}},
	}

	doc := FromRecords(records)
	path := filepath.Join(t.TempDir(), "plug.yaml")
	require.NoError(t, Save(path, doc))

	loaded, err := Load(path)
	require.NoError(t, err)
	got, err := loaded.Records()
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestFromRecords_SkipsEmptyAndSorts(t *testing.T) {
	records := []pmr171.ChannelRecord{
		{Index: 8, RxMode: pmr171.ModeNFM, TxMode: pmr171.ModeNFM, RxFreqHz: 446_000_000, TxFreqHz: 446_000_000},
		{Index: 1, RxMode: pmr171.ModeUnused},
		{Index: 2, RxMode: pmr171.ModeNFM, TxMode: pmr171.ModeNFM}, // 频率 0 视作空
		{Index: 3, RxMode: pmr171.ModeAM, TxMode: pmr171.ModeAM, RxFreqHz: 27_185_000, TxFreqHz: 27_185_000},
	}
	doc := FromRecords(records)
	require.Len(t, doc.Channels, 2)
	assert.Equal(t, 3, doc.Channels[0].Index)
	assert.Equal(t, 8, doc.Channels[1].Index)
}

func TestRecords_TxSideDefaultsToRxSide(t *testing.T) {
	doc := &Document{Version: 1, Channels: []Channel{
		{Index: 0, RxMode: "nfm", RxFreqHz: 446_006_250, Name: "PMR1"},
	}}
	recs, err := doc.Records()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, pmr171.ModeNFM, recs[0].TxMode)
	assert.Equal(t, uint32(446_006_250), recs[0].TxFreqHz)
}

func TestRecords_RejectsBadEntries(t *testing.T) {
	cases := []struct {
		name string
		ch   Channel
	}{
		{"unknown mode", Channel{Index: 0, RxMode: "SSB", RxFreqHz: 1}},
		{"unrepresentable tone", Channel{Index: 0, RxMode: "NFM", RxFreqHz: 1, RxToneHz: 150.0}},
		{"index out of range", Channel{Index: 1000, RxMode: "NFM", RxFreqHz: 1}},
		{"bad slot", Channel{Index: 0, RxMode: "DMR", RxFreqHz: 1,
			Digital: &Digital{Slot: 3}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := &Document{Version: 1, Channels: []Channel{tc.ch}}
			_, err := doc.Records()
			assert.Error(t, err)
		})
	}
}

func TestRecords_RejectsDuplicateIndex(t *testing.T) {
	doc := &Document{Version: 1, Channels: []Channel{
		{Index: 4, RxMode: "NFM", RxFreqHz: 1},
		{Index: 4, RxMode: "NFM", RxFreqHz: 2},
	}}
	_, err := doc.Records()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate index")
}

func TestLoad_RejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.yaml")
	require.NoError(t, Save(path, &Document{Version: CurrentVersion + 1}))
	_, err := Load(path)
	assert.Error(t, err)
}
