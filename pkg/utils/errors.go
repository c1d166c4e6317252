package utils

import "errors"

var (
	ErrStartingServer        = errors.New("error: starting the udp server")
	ErrWrongOpCode           = errors.New("error: invalid operation code")
	ErrMalformedPacket       = errors.New("error: malformed packet")
	ErrDataPayloadTooBig     = errors.New("error: payload exceeds 512 bytes")
	ErrPacketMarshall        = errors.New("error: can not marshall packet")
	ErrPacketCanNotBeSent    = errors.New("error: packet can not be sent")
	ErrCanNotSetWriteTimeout = errors.New("error: can not set write timeout")
	ErrCanNotSetReadTimeout  = errors.New("error: can not set read timeout")
	ErrRetriesExhausted      = errors.New("error: retransmission budget exhausted")
	ErrUnknownPeer           = errors.New("error: packet from unknown peer")
)
