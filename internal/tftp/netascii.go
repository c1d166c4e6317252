package tftp

import (
	"bufio"
	"io"

	"github.com/wjemai/tftpd/pkg/wire"
)

// netasciiTranslator carries the stateful, cross-block translation from
// host bytes to network-virtual-ASCII described in spec.md §4.3. It is
// modeled on original_source/src/TftpServer.cpp's handleReadRequest NVT
// conversion loop, whose startNextPacketWithNewLine/startNextPacketWithNull
// booleans are the direct ancestors of pendingLF/pendingNUL below; unlike
// the original, suppressCRNext is reset after consuming exactly one LF so
// it never swallows a CR beyond the pair it was set for.
//
// At most one of pendingLF, pendingNUL, suppressCRNext is set between
// calls to FillBlock (spec.md §3 invariant).
type netasciiTranslator struct {
	pendingLF      bool
	pendingNUL     bool
	suppressCRNext bool
}

// FillBlock reads from r and returns up to wire.MaxPayloadSize bytes of
// NVT-ASCII-translated output. A returned block shorter than
// wire.MaxPayloadSize marks end of input. err is non-nil only on a read
// failure other than io.EOF.
func (t *netasciiTranslator) FillBlock(r *bufio.Reader) ([]byte, error) {
	block := make([]byte, 0, wire.MaxPayloadSize)

	switch {
	case t.pendingLF:
		block = append(block, '\n')
		t.pendingLF = false
	case t.pendingNUL:
		block = append(block, 0)
		t.pendingNUL = false
	}

	for len(block) < wire.MaxPayloadSize {
		c, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				break
			}

			return nil, err
		}

		switch {
		case t.suppressCRNext:
			// c is the LF already peeked while handling the preceding CR;
			// it is already paired, so emit it bare (rule 1's guard).
			t.suppressCRNext = false
			block = append(block, c)
		case c == '\n':
			block = append(block, '\r')
			if len(block) == wire.MaxPayloadSize {
				t.pendingLF = true
				return block, nil
			}

			block = append(block, '\n')
		case c == '\r':
			next, peekErr := r.Peek(1)
			isCRLF := peekErr == nil && next[0] == '\n'

			block = append(block, '\r')
			if isCRLF {
				t.suppressCRNext = true
				continue
			}

			if len(block) == wire.MaxPayloadSize {
				t.pendingNUL = true
				return block, nil
			}

			block = append(block, 0)
		default:
			block = append(block, c)
		}
	}

	return block, nil
}
