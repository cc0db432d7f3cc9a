// Package bulk 批量信道读写编排。
// 串口协议严格半双工，批量操作只能逐条顺序执行；单条失败隔离到
// 自己的结果槽位，绝不中止整批。取消仅在信道边界生效。
package bulk

import (
	"context"
	"fmt"
	"sort"

	"github.com/taoyao-code/pmr171-link/internal/protocol/pmr171"
)

// ChannelReader 单信道读取能力，*link.Dispatcher 实现
type ChannelReader interface {
	ReadChannel(ctx context.Context, index int) (pmr171.ChannelRecord, error)
}

// ChannelWriter 单信道写入能力，*link.Dispatcher 实现
type ChannelWriter interface {
	WriteChannel(ctx context.Context, rec pmr171.ChannelRecord) error
}

// Progress 进度回调 (已完成数, 总数, 描述)。可为 nil。
type Progress func(done, total int, msg string)

// ReadResult 单信道读取结果
type ReadResult struct {
	Index  int
	Record pmr171.ChannelRecord
	Err    error
}

// WriteResult 单信道写入/校验结果
type WriteResult struct {
	Index int
	Err   error
}

// AllIndices 全量信道索引 0..999
func AllIndices() []int {
	out := make([]int, pmr171.ChannelCount)
	for i := range out {
		out[i] = i
	}
	return out
}

// ReadAll 按给定索引顺序逐条读取。
// 返回与 indices 等长的结果集；取消时余下槽位填入 ctx 错误。
func ReadAll(ctx context.Context, r ChannelReader, indices []int, onProgress Progress) []ReadResult {
	total := len(indices)
	results := make([]ReadResult, 0, total)
	for i, idx := range indices {
		if err := ctx.Err(); err != nil {
			for _, rest := range indices[i:] {
				results = append(results, ReadResult{Index: rest, Err: err})
			}
			report(onProgress, i, total, fmt.Sprintf("cancelled at channel %d", idx))
			return results
		}
		rec, err := r.ReadChannel(ctx, idx)
		results = append(results, ReadResult{Index: idx, Record: rec, Err: err})
		if err != nil {
			report(onProgress, i+1, total, fmt.Sprintf("channel %d failed: %v", idx, err))
		} else {
			report(onProgress, i+1, total, fmt.Sprintf("read channel %d", idx))
		}
	}
	return results
}

// WriteAll 按索引升序逐条写入。
// 设备回显不等于落盘成功，调用方应在批量写后用 Verify 复读比对。
func WriteAll(ctx context.Context, w ChannelWriter, records []pmr171.ChannelRecord, onProgress Progress) []WriteResult {
	ordered := make([]pmr171.ChannelRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	total := len(ordered)
	results := make([]WriteResult, 0, total)
	for i, rec := range ordered {
		if err := ctx.Err(); err != nil {
			for _, rest := range ordered[i:] {
				results = append(results, WriteResult{Index: rest.Index, Err: err})
			}
			report(onProgress, i, total, fmt.Sprintf("cancelled at channel %d", rec.Index))
			return results
		}
		err := w.WriteChannel(ctx, rec)
		results = append(results, WriteResult{Index: rec.Index, Err: err})
		if err != nil {
			report(onProgress, i+1, total, fmt.Sprintf("channel %d failed: %v", rec.Index, err))
		} else {
			report(onProgress, i+1, total, fmt.Sprintf("wrote channel %d", rec.Index))
		}
	}
	return results
}

// Verify 批量写后的复读比对：对每条记录重新读取并与期望值比较
func Verify(ctx context.Context, r ChannelReader, records []pmr171.ChannelRecord, onProgress Progress) []WriteResult {
	total := len(records)
	results := make([]WriteResult, 0, total)
	for i, want := range records {
		if err := ctx.Err(); err != nil {
			for _, rest := range records[i:] {
				results = append(results, WriteResult{Index: rest.Index, Err: err})
			}
			return results
		}
		got, err := r.ReadChannel(ctx, want.Index)
		switch {
		case err != nil:
			results = append(results, WriteResult{Index: want.Index, Err: err})
		case got != want:
			results = append(results, WriteResult{Index: want.Index, Err: fmt.Errorf("channel %d readback differs from written record", want.Index)})
		default:
			results = append(results, WriteResult{Index: want.Index})
		}
		report(onProgress, i+1, total, fmt.Sprintf("verified channel %d", want.Index))
	}
	return results
}

func report(p Progress, done, total int, msg string) {
	if p != nil {
		p(done, total, msg)
	}
}
