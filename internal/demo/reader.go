package demo

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"

	"github.com/pable/go-cs-demostats/internal/pbwire"
)

// MaxFrameSize bounds a single frame payload. Anything larger is treated as
// corruption rather than allocated.
const MaxFrameSize = 64 << 20

// Reader reads frames sequentially from a demo stream. It is not safe for
// concurrent use.
type Reader struct {
	r          *bufio.Reader
	headerRead bool
	done       bool
	frames     int
	offset     int64
}

// NewReader wraps r. Call ReadHeader before NextCommand.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64<<10)}
}

// Frames returns how many frames have been read, including the header frame.
func (r *Reader) Frames() int {
	return r.frames
}

// Offset returns the number of container bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.offset
}

// ReadHeader validates the magic and decodes the leading DEM_FileHeader frame.
func (r *Reader) ReadHeader() (Header, error) {
	var raw [16]byte
	n, err := io.ReadFull(r.r, raw[:])
	r.offset += int64(n)
	if err != nil {
		return Header{}, &CorruptHeaderError{Reason: "short header", Err: err}
	}

	magic := string(raw[:8])
	switch magic {
	case Magic:
	case source1Magic:
		return Header{}, &CorruptHeaderError{Reason: "CS:GO (Source 1) demos are not supported"}
	default:
		return Header{}, &CorruptHeaderError{Reason: fmt.Sprintf("bad magic %q", magic)}
	}

	h := Header{
		FileInfoOffset:    int32(binary.LittleEndian.Uint32(raw[8:12])),
		SpawnGroupsOffset: int32(binary.LittleEndian.Uint32(raw[12:16])),
	}

	cmd, err := r.readFrame()
	if err != nil {
		return Header{}, &CorruptHeaderError{Reason: "missing file header frame", Err: err}
	}
	if cmd.Kind != CmdFileHeader {
		return Header{}, &CorruptHeaderError{Reason: fmt.Sprintf("first frame is %s, want %s", cmd.Kind, CmdFileHeader)}
	}

	stamp, err := decodeFileHeader(cmd.Payload, &h)
	if err != nil {
		return Header{}, &CorruptHeaderError{Reason: "file header message", Err: err}
	}
	if stamp != "" && stamp != Magic {
		return Header{}, &CorruptHeaderError{Reason: fmt.Sprintf("demo_file_stamp %q does not match magic", stamp)}
	}

	r.headerRead = true
	return h, nil
}

// NextCommand returns the next frame. It returns io.EOF after DEM_Stop or
// when the stream ends cleanly on a frame boundary.
func (r *Reader) NextCommand() (Command, error) {
	if !r.headerRead {
		return Command{}, errors.New("demo: NextCommand called before ReadHeader")
	}
	if r.done {
		return Command{}, io.EOF
	}

	cmd, err := r.readFrame()
	if err != nil {
		if errors.Is(err, io.EOF) {
			r.done = true
		}
		return Command{}, err
	}
	if cmd.Kind == CmdStop {
		r.done = true
		return Command{}, io.EOF
	}
	return cmd, nil
}

func (r *Reader) readFrame() (Command, error) {
	rawKind, err := r.readVarint()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Command{}, io.EOF
		}
		return Command{}, errors.Join(ErrTruncated, err)
	}
	rawTick, err := r.readVarint()
	if err != nil {
		return Command{}, errors.Join(ErrTruncated, noEOF(err))
	}
	size, err := r.readVarint()
	if err != nil {
		return Command{}, errors.Join(ErrTruncated, noEOF(err))
	}
	if size > MaxFrameSize {
		return Command{}, fmt.Errorf("%w: %d bytes at offset %d", ErrFrameTooLarge, size, r.offset)
	}

	payload := make([]byte, size)
	n, err := io.ReadFull(r.r, payload)
	r.offset += int64(n)
	if err != nil {
		return Command{}, errors.Join(ErrTruncated, noEOF(err))
	}

	kind := CommandKind(uint32(rawKind))
	cmd := Command{
		Kind: kind &^ FlagCompressed,
		Tick: normalizeTick(uint32(rawTick)),
	}
	if kind&FlagCompressed != 0 {
		cmd.Compressed = true
		inflated, err := snappy.DecodedLen(payload)
		if err != nil {
			return Command{}, errors.Join(ErrDecompress, fmt.Errorf("%s frame at offset %d: %w", cmd.Kind, r.offset, err))
		}
		if inflated > MaxFrameSize {
			return Command{}, fmt.Errorf("%w: %s frame at offset %d inflates to %d bytes", ErrFrameTooLarge, cmd.Kind, r.offset, inflated)
		}
		payload, err = snappy.Decode(nil, payload)
		if err != nil {
			return Command{}, errors.Join(ErrDecompress, fmt.Errorf("%s frame at offset %d: %w", cmd.Kind, r.offset, err))
		}
	}
	cmd.Payload = payload
	r.frames++
	return cmd, nil
}

func (r *Reader) readVarint() (uint64, error) {
	v, err := binary.ReadUvarint(countingByteReader{r})
	return v, err
}

// Signon frames carry tick -1.
func normalizeTick(t uint32) int {
	if t == 0xFFFFFFFF {
		return 0
	}
	return int(t)
}

func noEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

type countingByteReader struct {
	r *Reader
}

func (c countingByteReader) ReadByte() (byte, error) {
	b, err := c.r.r.ReadByte()
	if err == nil {
		c.r.offset++
	}
	return b, err
}

// DecodeFileInfo decodes the payload of a DEM_FileInfo frame.
func DecodeFileInfo(payload []byte) (FileInfo, error) {
	var fi FileInfo
	err := pbwire.Walk(payload, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			fi.PlaybackTime = f.Float32()
		case 2:
			fi.PlaybackTicks = f.Int()
		case 3:
			fi.PlaybackFrames = f.Int()
		}
		return nil
	})
	return fi, err
}

func decodeFileHeader(payload []byte, h *Header) (string, error) {
	var stamp string
	err := pbwire.Walk(payload, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			stamp = f.String()
		case 2:
			h.NetworkProtocol = f.Int()
		case 3:
			h.ServerName = f.String()
		case 4:
			h.ClientName = f.String()
		case 5:
			h.MapName = f.String()
		case 6:
			h.GameDirectory = f.String()
		case 7:
			h.FullpacketsVer = f.Int()
		case 11:
			h.DemoVersionName = f.String()
		case 12:
			h.DemoVersionGUID = f.String()
		case 13:
			h.BuildNum = f.Int()
		case 14:
			h.Game = f.String()
		}
		return nil
	})
	return stamp, err
}
