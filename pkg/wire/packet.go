package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/wjemai/tftpd/pkg/utils"
)

// Request models an RRQ or WRQ packet.
type Request struct {
	Filename string
	Mode     string
	Opcode   OpCode
}

func (r *Request) MarshalBinary() ([]byte, error) {
	b := new(bytes.Buffer)
	b.Grow(2 + len(r.Filename) + 1 + len(r.Mode) + 1)

	if err := binary.Write(b, binary.BigEndian, &r.Opcode); err != nil {
		return nil, fmt.Errorf("error while writing opcode: %w", err)
	}

	if _, err := b.WriteString(r.Filename); err != nil {
		return nil, fmt.Errorf("error while writing filename: %w", err)
	}

	if err := b.WriteByte(0); err != nil {
		return nil, fmt.Errorf("error while writing null byte after filename: %w", err)
	}

	if _, err := b.WriteString(r.Mode); err != nil {
		return nil, fmt.Errorf("error while writing mode: %w", err)
	}

	if err := b.WriteByte(0); err != nil {
		return nil, fmt.Errorf("error while writing null byte after mode: %w", err)
	}

	return b.Bytes(), nil
}

func (r *Request) UnmarshalBinary(data []byte) error {
	rd := bytes.NewBuffer(data)

	if err := binary.Read(rd, binary.BigEndian, &r.Opcode); err != nil {
		return fmt.Errorf("%w: %s", utils.ErrMalformedPacket, err.Error())
	}

	if r.Opcode != OpCodeRRQ && r.Opcode != OpCodeWRQ {
		return utils.ErrWrongOpCode
	}

	filename, err := rd.ReadString(0)
	if err != nil {
		return fmt.Errorf("%w: reading filename: %s", utils.ErrMalformedPacket, err.Error())
	}

	mode, err := rd.ReadString(0)
	if err != nil {
		return fmt.Errorf("%w: reading mode: %s", utils.ErrMalformedPacket, err.Error())
	}

	r.Filename = strings.TrimRight(filename, "\x00")
	r.Mode = strings.TrimRight(mode, "\x00")

	return nil
}

// Data models a DATA packet. Payload is 0-512 bytes; a payload shorter
// than MaxPayloadSize marks end-of-file (spec.md §3, invariants).
type Data struct {
	Payload  []byte
	BlockNum uint16
	Opcode   OpCode
}

func (d *Data) MarshalBinary() ([]byte, error) {
	if len(d.Payload) > MaxPayloadSize {
		return nil, utils.ErrDataPayloadTooBig
	}

	b := new(bytes.Buffer)
	b.Grow(2 + 2 + len(d.Payload))

	d.Opcode = OpCodeDATA
	if err := binary.Write(b, binary.BigEndian, &d.Opcode); err != nil {
		return nil, fmt.Errorf("error while writing opcode: %w", err)
	}

	if err := binary.Write(b, binary.BigEndian, &d.BlockNum); err != nil {
		return nil, fmt.Errorf("error while writing block#: %w", err)
	}

	if _, err := b.Write(d.Payload); err != nil {
		return nil, fmt.Errorf("error while writing payload: %w", err)
	}

	return b.Bytes(), nil
}

func (d *Data) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return utils.ErrMalformedPacket
	}

	b := bytes.NewBuffer(data)

	if err := binary.Read(b, binary.BigEndian, &d.Opcode); err != nil {
		return fmt.Errorf("%w: %s", utils.ErrMalformedPacket, err.Error())
	}

	if d.Opcode != OpCodeDATA {
		return utils.ErrWrongOpCode
	}

	if err := binary.Read(b, binary.BigEndian, &d.BlockNum); err != nil {
		return fmt.Errorf("%w: %s", utils.ErrMalformedPacket, err.Error())
	}

	d.Payload = data[4:]

	return nil
}

// Ack models an ACK packet. BlockNum 0 acknowledges a WRQ.
type Ack struct {
	Opcode   OpCode
	BlockNum uint16
}

func (a *Ack) MarshalBinary() ([]byte, error) {
	b := new(bytes.Buffer)
	b.Grow(4)

	a.Opcode = OpCodeACK
	if err := binary.Write(b, binary.BigEndian, &a.Opcode); err != nil {
		return nil, fmt.Errorf("error while writing opcode: %w", err)
	}

	if err := binary.Write(b, binary.BigEndian, &a.BlockNum); err != nil {
		return nil, fmt.Errorf("error while writing block#: %w", err)
	}

	return b.Bytes(), nil
}

func (a *Ack) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return utils.ErrMalformedPacket
	}

	b := bytes.NewBuffer(data)

	if err := binary.Read(b, binary.BigEndian, &a.Opcode); err != nil {
		return fmt.Errorf("%w: %s", utils.ErrMalformedPacket, err.Error())
	}

	if a.Opcode != OpCodeACK {
		return utils.ErrWrongOpCode
	}

	if err := binary.Read(b, binary.BigEndian, &a.BlockNum); err != nil {
		return fmt.Errorf("%w: %s", utils.ErrMalformedPacket, err.Error())
	}

	return nil
}

// Error models an ERROR packet.
type Error struct {
	ErrMsg    string
	ErrorCode ErrCode
	Opcode    OpCode
}

// NewError builds an Error packet, filling in the canned message for code
// when msg is empty.
func NewError(code ErrCode, msg string) *Error {
	if msg == "" {
		msg = ErrorMessages[code]
	}

	return &Error{Opcode: OpCodeError, ErrorCode: code, ErrMsg: msg}
}

func (e *Error) MarshalBinary() ([]byte, error) {
	b := new(bytes.Buffer)
	b.Grow(2 + 2 + len(e.ErrMsg) + 1)

	e.Opcode = OpCodeError
	if err := binary.Write(b, binary.BigEndian, &e.Opcode); err != nil {
		return nil, fmt.Errorf("error while writing opcode: %w", err)
	}

	if err := binary.Write(b, binary.BigEndian, &e.ErrorCode); err != nil {
		return nil, fmt.Errorf("error while writing error code: %w", err)
	}

	if _, err := b.WriteString(e.ErrMsg); err != nil {
		return nil, fmt.Errorf("error while writing error message: %w", err)
	}

	if err := b.WriteByte(0); err != nil {
		return nil, fmt.Errorf("error while writing null byte: %w", err)
	}

	return b.Bytes(), nil
}

func (e *Error) UnmarshalBinary(data []byte) error {
	b := bytes.NewBuffer(data)

	if err := binary.Read(b, binary.BigEndian, &e.Opcode); err != nil {
		return fmt.Errorf("%w: %s", utils.ErrMalformedPacket, err.Error())
	}

	if e.Opcode != OpCodeError {
		return utils.ErrWrongOpCode
	}

	if err := binary.Read(b, binary.BigEndian, &e.ErrorCode); err != nil {
		return fmt.Errorf("%w: %s", utils.ErrMalformedPacket, err.Error())
	}

	msg, err := b.ReadString(0)
	if err != nil {
		return fmt.Errorf("%w: reading message: %s", utils.ErrMalformedPacket, err.Error())
	}

	e.ErrMsg = strings.TrimRight(msg, "\x00")

	return nil
}

// Decode parses the opcode out of a raw datagram and returns the decoded
// packet as one of *Request, *Data, *Ack or *Error. It fails with
// ErrMalformedPacket on an unknown opcode or a truncated header, matching
// spec.md §4.1.
func Decode(data []byte) (interface{}, error) {
	if len(data) < 2 {
		return nil, utils.ErrMalformedPacket
	}

	op := OpCode(binary.BigEndian.Uint16(data[:2]))

	switch op {
	case OpCodeRRQ, OpCodeWRQ:
		var r Request
		if err := r.UnmarshalBinary(data); err != nil {
			return nil, err
		}

		return &r, nil
	case OpCodeDATA:
		var d Data
		if err := d.UnmarshalBinary(data); err != nil {
			return nil, err
		}

		return &d, nil
	case OpCodeACK:
		var a Ack
		if err := a.UnmarshalBinary(data); err != nil {
			return nil, err
		}

		return &a, nil
	case OpCodeError:
		var e Error
		if err := e.UnmarshalBinary(data); err != nil {
			return nil, err
		}

		return &e, nil
	default:
		return nil, utils.ErrMalformedPacket
	}
}
