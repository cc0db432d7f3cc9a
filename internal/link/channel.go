package link

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/taoyao-code/pmr171-link/internal/protocol/pmr171"
	"github.com/taoyao-code/pmr171-link/internal/safety"
)

// ReadChannel 读取单个信道。请求仅含 2 字节大端索引，设备回全量记录。
func (d *Dispatcher) ReadChannel(ctx context.Context, index int) (pmr171.ChannelRecord, error) {
	if index < 0 || index >= pmr171.ChannelCount {
		return pmr171.ChannelRecord{}, fmt.Errorf("channel index %d out of range [0,%d]", index, pmr171.ChannelCount-1)
	}
	req := binary.BigEndian.AppendUint16(nil, uint16(index))
	fr, err := d.Exchange(ctx, pmr171.CmdChanRead, req)
	if err != nil {
		return pmr171.ChannelRecord{}, err
	}
	rec, err := pmr171.DecodeChannel(fr.Payload)
	if err != nil {
		return pmr171.ChannelRecord{}, &ProtocolError{
			Opcode:   pmr171.CmdChanRead,
			Command:  d.cmds.Name(pmr171.CmdChanRead),
			Attempts: 1,
			Class:    FailFraming,
			LastRaw:  fr.Payload,
			Err:      err,
		}
	}
	// 回包索引必须与请求一致，防止迟到回包错配
	if rec.Index != index {
		return pmr171.ChannelRecord{}, &ProtocolError{
			Opcode:   pmr171.CmdChanRead,
			Command:  d.cmds.Name(pmr171.CmdChanRead),
			Attempts: 1,
			Class:    FailFraming,
			LastRaw:  fr.Payload,
			Err:      fmt.Errorf("device answered channel %d, requested %d", rec.Index, index),
		}
	}
	return rec, nil
}

// WriteChannel 写入单个信道并核对设备回显。
// 设备会回显完整记录；偶发只保留部分数据，回显比对是唯一的本地检测手段。
// 数字信道先过安全策略，拦截时保证零字节上线。
func (d *Dispatcher) WriteChannel(ctx context.Context, rec pmr171.ChannelRecord) error {
	if d.pol != nil {
		if err := d.pol.CheckChannelWrite(rec.Kind); err != nil {
			var uo *safety.UnsupportedOperationError
			if d.met != nil && errors.As(err, &uo) {
				d.met.BlockedWriteTotal.Inc()
			}
			return err
		}
	}
	sent, err := pmr171.EncodeChannel(rec)
	if err != nil {
		return err
	}
	fr, err := d.Exchange(ctx, pmr171.CmdChanWrite, sent)
	if err != nil {
		return err
	}
	if !bytes.Equal(fr.Payload, sent) {
		if d.met != nil {
			d.met.EchoMismatchTotal.Inc()
		}
		return &EchoMismatchError{Index: rec.Index, Sent: sent, Echoed: append([]byte(nil), fr.Payload...)}
	}
	return nil
}
