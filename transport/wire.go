package transport

import (
	"encoding/binary"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gogpu/relay/frame"
)

// Frame container constants.
const (
	// HeaderSize is the size of the frame header in bytes.
	HeaderSize = 32

	// headerMagic marks the start of a frame header on the wire.
	headerMagic = 0x524C5946 // "RLYF"

	// wireVersion is the frame container version this core speaks.
	wireVersion = 1

	// MaxFramePayload bounds a single frame payload. Anything larger is
	// rejected before allocation on the receive side.
	MaxFramePayload = 256 << 20
)

// Wire errors.
var (
	ErrBadMagic      = errors.New("transport: bad frame magic")
	ErrBadVersion    = errors.New("transport: unsupported frame version")
	ErrFrameTooLarge = errors.New("transport: frame payload too large")
)

// header is the on-wire frame container header. All integers are
// big-endian.
//
//	magic(4) version(1) quality(1) subsampling(1) reserved(1)
//	windowID(8) stripHeight(4) width(4) height(4) payloadLen(4)
type header struct {
	quality     uint8
	subsampling uint8
	windowID    uint64
	stripHeight uint32
	width       uint32
	height      uint32
	payloadLen  uint32
}

func (h *header) encode() [HeaderSize]byte {
	var buf [HeaderSize]byte
	binary.BigEndian.PutUint32(buf[0:4], headerMagic)
	buf[4] = wireVersion
	buf[5] = h.quality
	buf[6] = h.subsampling
	buf[7] = 0
	binary.BigEndian.PutUint64(buf[8:16], h.windowID)
	binary.BigEndian.PutUint32(buf[16:20], h.stripHeight)
	binary.BigEndian.PutUint32(buf[20:24], h.width)
	binary.BigEndian.PutUint32(buf[24:28], h.height)
	binary.BigEndian.PutUint32(buf[28:32], h.payloadLen)
	return buf
}

func decodeHeader(buf []byte) (header, error) {
	var h header
	if len(buf) < HeaderSize {
		return h, fmt.Errorf("transport: short header: %d bytes", len(buf))
	}
	if binary.BigEndian.Uint32(buf[0:4]) != headerMagic {
		return h, ErrBadMagic
	}
	if buf[4] != wireVersion {
		return h, fmt.Errorf("%w: %d", ErrBadVersion, buf[4])
	}
	h.quality = buf[5]
	h.subsampling = buf[6]
	h.windowID = binary.BigEndian.Uint64(buf[8:16])
	h.stripHeight = binary.BigEndian.Uint32(buf[16:20])
	h.width = binary.BigEndian.Uint32(buf[20:24])
	h.height = binary.BigEndian.Uint32(buf[24:28])
	h.payloadLen = binary.BigEndian.Uint32(buf[28:32])
	if h.payloadLen > MaxFramePayload {
		return h, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, h.payloadLen)
	}
	return h, nil
}

// SendFrame validates d, writes its container header, and transfers the
// pixel payload over c. The payload is owned by the transport from the
// moment SendFrame is entered until it returns.
func SendFrame(c Channel, d *frame.Descriptor) error {
	span := startSpan("transport.SendFrame",
		attribute.String("channel.id", c.ID().String()),
		attribute.Int64("frame.window_id", int64(d.WindowID)),
		attribute.Int("frame.bytes", len(d.Pixels)))
	defer span.End()

	if err := d.Validate(); err != nil {
		return spanErr(span, err)
	}
	if len(d.Pixels) > MaxFramePayload {
		return spanErr(span, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(d.Pixels)))
	}

	h := header{
		quality:     uint8(d.Quality),
		subsampling: uint8(d.Subsampling),
		windowID:    d.WindowID,
		stripHeight: uint32(d.StripHeight),
		width:       uint32(d.Width),
		height:      uint32(d.Height),
		payloadLen:  uint32(len(d.Pixels)),
	}
	buf := h.encode()
	if err := c.Send(buf[:]); err != nil {
		return spanErr(span, err)
	}
	if err := c.Send(d.Pixels); err != nil {
		return spanErr(span, err)
	}

	m := metrics()
	m.framesSent.Inc()
	m.bytesSent.Add(float64(HeaderSize + len(d.Pixels)))
	return nil
}

// RecvFrame blocks until one full frame has arrived on c and returns its
// descriptor. The returned payload is freshly allocated and owned by the
// caller.
func RecvFrame(c Channel) (*frame.Descriptor, error) {
	var buf [HeaderSize]byte
	if err := c.Recv(buf[:]); err != nil {
		return nil, err
	}
	h, err := decodeHeader(buf[:])
	if err != nil {
		return nil, err
	}

	pixels := make([]byte, h.payloadLen)
	if err := c.Recv(pixels); err != nil {
		return nil, err
	}

	d := &frame.Descriptor{
		Quality:     int(h.quality),
		Subsampling: frame.Subsampling(h.subsampling),
		WindowID:    h.windowID,
		StripHeight: int(h.stripHeight),
		Width:       int(h.width),
		Height:      int(h.height),
		Pixels:      pixels,
	}

	m := metrics()
	m.framesReceived.Inc()
	m.bytesReceived.Add(float64(HeaderSize + len(pixels)))
	return d, nil
}
