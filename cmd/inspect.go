package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/pable/go-cs-demostats/internal/decoder"
	"github.com/pable/go-cs-demostats/internal/demo"
	"github.com/pable/go-cs-demostats/internal/events"
	"github.com/pable/go-cs-demostats/internal/log"
)

// inspectCmd walks the frames of a demo without aggregating anything.
var inspectCmd = &cobra.Command{
	Use:   "inspect <demo.dem>",
	Short: "Show the header, frame and event counts of a demo",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func runInspect(_ *cobra.Command, args []string) error {
	rc, err := demo.Open(args[0])
	if err != nil {
		return err
	}
	defer log.Closer(rc)

	r := demo.NewReader(rc)
	h, err := r.ReadHeader()
	if err != nil {
		return err
	}

	var warnings []error
	dec := decoder.New(logger, func(w error) {
		warnings = append(warnings, w)
	})

	frames := map[demo.CommandKind]int{}
	kinds := map[events.Kind]int{}
	var (
		info     *demo.FileInfo
		lastTick int
		fatal    error
	)
	for {
		cmd, err := r.NextCommand()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fatal = err
			break
		}
		frames[cmd.Kind]++
		if cmd.Tick > lastTick {
			lastTick = cmd.Tick
		}
		if cmd.Kind == demo.CmdFileInfo {
			fi, err := demo.DecodeFileInfo(cmd.Payload)
			if err == nil {
				info = &fi
			}
			continue
		}
		evs, err := dec.Decode(cmd)
		if err != nil {
			fatal = err
			break
		}
		for _, ev := range evs {
			kinds[ev.Kind()]++
		}
	}

	fmt.Fprintf(os.Stdout, "\nMap: %s  |  Server: %s  |  Build: %d  |  Protocol: %d\n",
		h.MapName, h.ServerName, h.BuildNum, h.NetworkProtocol)
	fmt.Fprintf(os.Stdout, "Frames: %s  |  Read: %s  |  Last tick: %s",
		humanize.Comma(int64(r.Frames())), humanize.Bytes(uint64(r.Offset())), humanize.Comma(int64(lastTick)))
	if info != nil {
		fmt.Fprintf(os.Stdout, "  |  Playback: %.1fs / %d ticks", info.PlaybackTime, info.PlaybackTicks)
	}
	fmt.Fprintln(os.Stdout)
	fmt.Fprintln(os.Stdout)

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
	table.Header("KIND", "COUNT")
	for _, k := range sortedKeys(frames) {
		table.Append("frame "+k.String(), strconv.Itoa(frames[k]))
	}
	for _, k := range sortedKeys(kinds) {
		table.Append(k.String(), strconv.Itoa(kinds[k]))
	}
	table.Render()

	for _, w := range warnings {
		logger.Warn("Decoder warning", log.ErrAttr(w))
	}
	if len(warnings) > 0 {
		fmt.Fprintf(os.Stdout, "\n%d decoder warnings\n", len(warnings))
	}
	if fatal != nil {
		logger.Error("Demo is not processable", slog.String("path", args[0]), log.ErrAttr(fatal))
		return fatal
	}
	return nil
}

func sortedKeys[K ~int | ~int32](m map[K]int) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
