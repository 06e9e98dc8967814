package txlog

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/baumanab/delta/internal/core/domain"
)

var (
	errShortFrame    = errors.New("frame shorter than header")
	errFrameChecksum = errors.New("frame crc mismatch")
)

// frameHeaderSize is CRC32(4) + Kind(1).
const frameHeaderSize = 5

func encodeFrame(a domain.Action) ([]byte, error) {
	kind := a.Kind()
	var arm any
	switch kind {
	case domain.KindAdd:
		arm = a.Add
	case domain.KindRemove:
		arm = a.Remove
	case domain.KindProtocol:
		arm = a.Protocol
	case domain.KindMetadata:
		arm = a.Metadata
	case domain.KindTxn:
		arm = a.Txn
	default:
		return nil, domain.ErrMalformedLogRecord.WithDetails("action must carry exactly one arm")
	}

	payload, err := json.Marshal(arm)
	if err != nil {
		return nil, fmt.Errorf("txlog: marshal %s: %w", kind, err)
	}

	body := make([]byte, 0, 1+len(payload))
	body = append(body, byte(kind))
	body = append(body, payload...)

	out := make([]byte, 8, 8+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(4+len(body)))
	binary.BigEndian.PutUint32(out[4:8], crc32.ChecksumIEEE(body))
	return append(out, body...), nil
}

// decodeFrame decodes [crc32:4][kind:1][payload...]. The payload must decode
// strictly into the arm its kind names.
func decodeFrame(frame []byte) (domain.Action, error) {
	if len(frame) < frameHeaderSize {
		return domain.Action{}, errShortFrame
	}
	wantCRC := binary.BigEndian.Uint32(frame[:4])
	body := frame[4:]
	if crc32.ChecksumIEEE(body) != wantCRC {
		return domain.Action{}, errFrameChecksum
	}

	kind := domain.ActionKind(body[0])
	payload := body[1:]

	var a domain.Action
	var err error
	switch kind {
	case domain.KindAdd:
		a.Add = new(domain.AddFile)
		err = strictUnmarshal(payload, a.Add)
	case domain.KindRemove:
		a.Remove = new(domain.RemoveFile)
		err = strictUnmarshal(payload, a.Remove)
	case domain.KindProtocol:
		a.Protocol = new(domain.Protocol)
		err = strictUnmarshal(payload, a.Protocol)
	case domain.KindMetadata:
		a.Metadata = new(domain.Metadata)
		err = strictUnmarshal(payload, a.Metadata)
	case domain.KindTxn:
		a.Txn = new(domain.SetTransaction)
		err = strictUnmarshal(payload, a.Txn)
	default:
		return domain.Action{}, fmt.Errorf("unknown action kind %d", uint8(kind))
	}
	if err != nil {
		return domain.Action{}, fmt.Errorf("%s payload: %w", kind, err)
	}
	if err := a.Validate(); err != nil {
		return domain.Action{}, err
	}
	return a, nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after payload")
	}
	return nil
}
