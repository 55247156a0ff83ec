package decoder

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/pable/go-cs-demostats/internal/demo"
	"github.com/pable/go-cs-demostats/internal/events"
)

// Source pulls frames from a demo.Reader and decodes them one at a time.
type Source struct {
	reader   *demo.Reader
	dec      *Decoder
	fileInfo *demo.FileInfo
}

// NewSource reads a raw (already decompressed) demo stream.
func NewSource(r io.Reader, logger *slog.Logger, warn func(error)) *Source {
	return &Source{
		reader: demo.NewReader(r),
		dec:    New(logger, warn),
	}
}

func (s *Source) Engine() string {
	return "native"
}

func (s *Source) ReadHeader() (demo.Header, error) {
	return s.reader.ReadHeader()
}

// Next returns the events of the next frame that has any, or io.EOF.
func (s *Source) Next() ([]events.Event, error) {
	for {
		cmd, err := s.reader.NextCommand()
		if err != nil {
			return nil, err
		}
		if cmd.Kind == demo.CmdFileInfo {
			fi, err := demo.DecodeFileInfo(cmd.Payload)
			if err != nil {
				return nil, fmt.Errorf("file info: %w", err)
			}
			s.fileInfo = &fi
			continue
		}
		evs, err := s.dec.Decode(cmd)
		if err != nil {
			return nil, err
		}
		if len(evs) > 0 {
			return evs, nil
		}
	}
}

// FileInfo returns the trailing DEM_FileInfo once it has been read.
func (s *Source) FileInfo() (demo.FileInfo, bool) {
	if s.fileInfo == nil {
		return demo.FileInfo{}, false
	}
	return *s.fileInfo, true
}

func (s *Source) Close() error {
	return nil
}
