package demo_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-demostats/internal/demo"
	"github.com/pable/go-cs-demostats/internal/demo/demotest"
)

func readerFor(data []byte) *demo.Reader {
	return demo.NewReader(bytes.NewReader(data))
}

func TestReadHeader(t *testing.T) {
	r := readerFor(demotest.New("de_ancient").Stop(0).Bytes())

	h, err := r.ReadHeader()
	require.NoError(t, err)
	require.Equal(t, "de_ancient", h.MapName)
	require.Equal(t, "Valve CS2 Server", h.ServerName)
	require.Equal(t, 14000, h.NetworkProtocol)
	require.Equal(t, 10023, h.BuildNum)
	require.Equal(t, 1, r.Frames())
}

func TestReadHeaderRejects(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		reason string
	}{
		{"source 1 demo", demotest.Raw("HL2DEMO\x00").Bytes(), "CS:GO"},
		{"bad magic", demotest.Raw("NOTADEMO").Bytes(), "bad magic"},
		{"short", []byte("PBDEMS2"), "short header"},
		{"no header frame", demotest.Raw(demo.Magic).Stop(0).Bytes(), "first frame is stop"},
		{"stamp mismatch", demotest.Raw(demo.Magic).FileHeader("PBDEMS3\x00", "de_nuke").Bytes(), "demo_file_stamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readerFor(tt.data).ReadHeader()
			var corrupt *demo.CorruptHeaderError
			require.ErrorAs(t, err, &corrupt)
			require.Contains(t, corrupt.Error(), tt.reason)
		})
	}
}

func TestNextCommandBeforeHeader(t *testing.T) {
	_, err := readerFor(demotest.New("de_nuke").Bytes()).NextCommand()
	require.Error(t, err)
}

func TestCompressedFrames(t *testing.T) {
	msg := demotest.ServerInfo(1.0/64, "de_mirage")
	data := demotest.New("de_mirage").
		Compressed(true).
		Packet(12, msg).
		Frame(demo.CmdSignonPacket, -1, nil).
		Stop(40).
		Bytes()

	r := readerFor(data)
	_, err := r.ReadHeader()
	require.NoError(t, err)

	cmd, err := r.NextCommand()
	require.NoError(t, err)
	require.Equal(t, demo.CmdPacket, cmd.Kind)
	require.True(t, cmd.Compressed)
	require.Equal(t, 12, cmd.Tick)
	require.Equal(t, demotest.PacketPayload(msg), cmd.Payload)

	// signon frames carry tick -1
	cmd, err = r.NextCommand()
	require.NoError(t, err)
	require.Equal(t, demo.CmdSignonPacket, cmd.Kind)
	require.Equal(t, 0, cmd.Tick)

	_, err = r.NextCommand()
	require.ErrorIs(t, err, io.EOF)
	_, err = r.NextCommand()
	require.ErrorIs(t, err, io.EOF)

	require.Equal(t, int64(len(data)), r.Offset())
}

func TestEOFWithoutStop(t *testing.T) {
	r := readerFor(demotest.New("de_vertigo").Packet(5).Bytes())
	_, err := r.ReadHeader()
	require.NoError(t, err)

	_, err = r.NextCommand()
	require.NoError(t, err)
	_, err = r.NextCommand()
	require.ErrorIs(t, err, io.EOF)
}

func TestTruncatedFrame(t *testing.T) {
	data := demotest.New("de_vertigo").Packet(5, demotest.ServerInfo(1.0/64, "de_vertigo")).Bytes()
	r := readerFor(data[:len(data)-1])
	_, err := r.ReadHeader()
	require.NoError(t, err)

	_, err = r.NextCommand()
	require.ErrorIs(t, err, demo.ErrTruncated)
	require.False(t, errors.Is(err, io.EOF))
}

func TestCorruptSnappyFrame(t *testing.T) {
	data := demotest.New("de_inferno").
		Frame(demo.CmdPacket|demo.FlagCompressed, 3, []byte{0xff, 0xff, 0xff}).
		Bytes()
	r := readerFor(data)
	_, err := r.ReadHeader()
	require.NoError(t, err)

	_, err = r.NextCommand()
	require.ErrorIs(t, err, demo.ErrDecompress)
}

func TestFrameTooLarge(t *testing.T) {
	data := demotest.New("de_inferno").Bytes()
	data = binary.AppendUvarint(data, uint64(demo.CmdPacket))
	data = binary.AppendUvarint(data, 1)
	data = binary.AppendUvarint(data, demo.MaxFrameSize+1)

	r := readerFor(data)
	_, err := r.ReadHeader()
	require.NoError(t, err)

	_, err = r.NextCommand()
	require.ErrorIs(t, err, demo.ErrFrameTooLarge)
}

func TestCompressedFrameInflatesTooLarge(t *testing.T) {
	// snappy preamble claiming 1 GiB of output
	payload := []byte{0x80, 0x80, 0x80, 0x80, 0x04, 0, 0, 0, 0}
	data := demotest.New("de_inferno").
		Frame(demo.CmdPacket|demo.FlagCompressed, 3, payload).
		Bytes()
	r := readerFor(data)
	_, err := r.ReadHeader()
	require.NoError(t, err)

	_, err = r.NextCommand()
	require.ErrorIs(t, err, demo.ErrFrameTooLarge)
	require.NotErrorIs(t, err, demo.ErrDecompress)
}

func TestDecodeFileInfo(t *testing.T) {
	r := readerFor(demotest.New("de_overpass").FileInfo(900, 128000, 2000.5).Bytes())
	_, err := r.ReadHeader()
	require.NoError(t, err)

	cmd, err := r.NextCommand()
	require.NoError(t, err)
	require.Equal(t, demo.CmdFileInfo, cmd.Kind)

	fi, err := demo.DecodeFileInfo(cmd.Payload)
	require.NoError(t, err)
	require.Equal(t, 128000, fi.PlaybackTicks)
	require.Equal(t, 64000, fi.PlaybackFrames)
	require.InDelta(t, 2000.5, fi.PlaybackTime, 1e-3)
}

func TestCommandKindString(t *testing.T) {
	require.Equal(t, "packet", demo.CmdPacket.String())
	require.Equal(t, "cmd_99", demo.CommandKind(99).String())
}

func TestOpenUnwrapsZstd(t *testing.T) {
	raw := demotest.New("de_train").Packet(2).Stop(2).Bytes()
	dir := t.TempDir()

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	packed := enc.EncodeAll(raw, nil)
	require.NoError(t, enc.Close())

	for name, content := range map[string][]byte{"plain.dem": raw, "packed.dem.zst": packed} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, content, 0o600))

		rc, err := demo.Open(path)
		require.NoError(t, err, name)
		got, err := io.ReadAll(rc)
		require.NoError(t, err, name)
		require.NoError(t, rc.Close())
		require.Equal(t, raw, got, name)
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := demo.Open(filepath.Join(t.TempDir(), "nope.dem"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
