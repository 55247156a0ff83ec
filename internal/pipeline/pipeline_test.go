package pipeline_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-demostats/internal/decoder"
	"github.com/pable/go-cs-demostats/internal/demo"
	"github.com/pable/go-cs-demostats/internal/demo/demotest"
	"github.com/pable/go-cs-demostats/internal/metrics"
	"github.com/pable/go-cs-demostats/internal/model"
	"github.com/pable/go-cs-demostats/internal/output"
	"github.com/pable/go-cs-demostats/internal/pipeline"
)

var (
	alice = demotest.Player{Slot: 1, Name: "alice", SteamID: 76561198000000001}
	bob   = demotest.Player{Slot: 2, Name: "bob", SteamID: 76561198000000002}
	carol = demotest.Player{Slot: 3, Name: "carol", SteamID: 76561198000000003}
	dave  = demotest.Player{Slot: 4, Name: "dave", SteamID: 76561198000000004}
)

func seat(b *demotest.Builder) *demotest.Builder {
	b.EventList(0).Packet(1, demotest.ServerInfo(1.0/64, "de_nuke"))
	for _, p := range []demotest.Player{alice, bob, carol, dave} {
		b.Connect(2, p)
	}
	b.Team(3, alice, 2, 0).Team(3, bob, 2, 0).Team(3, carol, 3, 0).Team(3, dave, 3, 0)
	return b.Event(10, "begin_new_match", nil)
}

// twoRounds is a match where T wins round 1 and CT wins round 2.
func twoRounds() []byte {
	b := seat(demotest.New("de_nuke"))
	b.Event(20, "round_start", nil).
		Kill(100, alice, carol, "ak47", true).
		Kill(110, alice, dave, "ak47", false).
		RoundEnd(120, 2, 9).
		Event(121, "round_mvp", demotest.Keys{"userid": alice.Slot, "reason": 1}).
		Packet(150, demotest.SayText2(alice.Slot+1, true, "alice", "gg")).
		Event(200, "round_start", nil).
		Kill(300, carol, alice, "m4a1", false).
		Kill(310, dave, bob, "m4a1", false).
		RoundEnd(320, 3, 8).
		Event(330, "future_event", demotest.Keys{"userid": 1, "payload": "x"}).
		FileInfo(400, 400, 6.25).
		Stop(401)
	return b.Bytes()
}

func TestProcessTwoRounds(t *testing.T) {
	c := metrics.New()
	res, err := pipeline.Process(bytes.NewReader(twoRounds()), pipeline.Options{}, pipeline.Env{Metrics: c})
	require.NoError(t, err)

	rs := res.Records
	require.Equal(t, "de_nuke", rs.Match.MapName)
	require.Equal(t, "native", rs.Match.Engine)
	require.InDelta(t, 64, rs.Match.TickRate, 0.01)
	require.Equal(t, 2, rs.Match.RoundsPlayed)
	require.Equal(t, 1, rs.Match.CTScore)
	require.Equal(t, 1, rs.Match.TScore)
	require.Equal(t, 400, rs.Match.PlaybackTicks)
	require.InDelta(t, 6.25, rs.Match.PlaybackSeconds, 1e-9)
	require.Equal(t, output.MatchID(rs.Match.DemoHash), rs.Match.MatchID)

	require.Len(t, rs.Rounds, 2)
	require.Equal(t, model.TeamT, rs.Rounds[0].WinnerSide)
	require.Equal(t, model.TeamCT, rs.Rounds[1].WinnerSide)
	require.Len(t, rs.Kills, 4)
	require.True(t, rs.Kills[0].Headshot)
	require.Len(t, rs.Chat, 1)
	require.Equal(t, "gg", rs.Chat[0].Message)

	var aliceLine *model.PlayerMatchRecord
	for i := range rs.Players {
		if rs.Players[i].SteamID == alice.SteamID {
			aliceLine = &rs.Players[i]
		}
	}
	require.NotNil(t, aliceLine)
	require.Equal(t, 2, aliceLine.Kills)
	require.Equal(t, 1, aliceLine.Deaths)
	require.Equal(t, 2, aliceLine.RoundsPlayed)
	require.Equal(t, 1, aliceLine.MVPs)
	require.Equal(t, 4, aliceLine.Score)

	require.Equal(t, int64(len(twoRounds())), res.Bytes)
	require.InDelta(t, 1, testutil.ToFloat64(c.WarningCounter.With(prometheus.Labels{"type": "unknown_event"})), 0)
	require.InDelta(t, 1, testutil.ToFloat64(c.DemoCounter.With(prometheus.Labels{"engine": "native", "result": "ok"})), 0)
	require.InDelta(t, 2, testutil.ToFloat64(c.RoundCounter), 0)
}

func TestProcessIsIdempotent(t *testing.T) {
	var outs [2]bytes.Buffer
	for i := range outs {
		res, err := pipeline.Process(bytes.NewReader(twoRounds()), pipeline.Options{}, pipeline.Env{})
		require.NoError(t, err)
		require.NoError(t, output.Encode(&outs[i], res.Records))
	}
	require.Equal(t, outs[0].String(), outs[1].String())
}

func TestHashCoversTrailingBytes(t *testing.T) {
	raw := twoRounds()
	a, err := pipeline.Process(bytes.NewReader(raw), pipeline.Options{}, pipeline.Env{})
	require.NoError(t, err)

	b, err := pipeline.Process(bytes.NewReader(append(raw, 0xde, 0xad)), pipeline.Options{}, pipeline.Env{})
	require.NoError(t, err)
	require.NotEqual(t, a.Records.Match.MatchID, b.Records.Match.MatchID)
}

func TestOrderingViolationAborts(t *testing.T) {
	b := seat(demotest.New("de_nuke"))
	b.Event(20, "round_start", nil).
		Kill(100, alice, carol, "ak47", false).
		Kill(90, alice, dave, "ak47", false).
		Stop(200)

	c := metrics.New()
	_, err := pipeline.Process(bytes.NewReader(b.Bytes()), pipeline.Options{}, pipeline.Env{Metrics: c})
	var ov *decoder.OrderingViolationError
	require.ErrorAs(t, err, &ov)
	require.Equal(t, 100, ov.Prev)
	require.Equal(t, 90, ov.Tick)
	require.InDelta(t, 1, testutil.ToFloat64(c.DemoCounter.With(prometheus.Labels{"engine": "native", "result": "failed"})), 0)
}

func TestUnmappedEndReasonAborts(t *testing.T) {
	b := seat(demotest.New("de_nuke"))
	b.Event(20, "round_start", nil).RoundEnd(120, 0, 10).Stop(200)

	_, err := pipeline.Process(bytes.NewReader(b.Bytes()), pipeline.Options{}, pipeline.Env{})
	var unmapped *model.UnmappedEndReasonError
	require.ErrorAs(t, err, &unmapped)
	require.Equal(t, 10, unmapped.Code)
}

func TestTruncatedDemoAborts(t *testing.T) {
	raw := seat(demotest.New("de_nuke")).Event(20, "round_start", nil).Bytes()
	_, err := pipeline.Process(bytes.NewReader(raw[:len(raw)-1]), pipeline.Options{}, pipeline.Env{})
	require.ErrorIs(t, err, demo.ErrTruncated)
}

func TestBadMagicAborts(t *testing.T) {
	b := demotest.Raw("HL2DEMO\x00")
	_, err := pipeline.Process(bytes.NewReader(b.Bytes()), pipeline.Options{}, pipeline.Env{})
	var corrupt *demo.CorruptHeaderError
	require.ErrorAs(t, err, &corrupt)
}

func TestUnknownEngine(t *testing.T) {
	_, err := pipeline.Process(bytes.NewReader(twoRounds()), pipeline.Options{Engine: "hltv"}, pipeline.Env{})
	require.ErrorIs(t, err, pipeline.ErrUnknownEngine)
}

func TestStateTransitions(t *testing.T) {
	src, err := pipeline.NewSource(pipeline.EngineNative, bytes.NewReader(twoRounds()), pipeline.Env{})
	require.NoError(t, err)

	p := pipeline.New(src, pipeline.Env{})
	require.Equal(t, pipeline.Uninitialized, p.State())
	_, err = p.Input("x", 0)
	require.ErrorIs(t, err, pipeline.ErrState)

	require.NoError(t, p.Run())
	require.Equal(t, pipeline.Finalized, p.State())
	require.ErrorIs(t, p.Run(), pipeline.ErrState)

	in, err := p.Input("abc", 42)
	require.NoError(t, err)
	require.Equal(t, uint64(42), in.ValveMatchID)
	require.Len(t, in.Results.Rounds, 2)

	bad, err := pipeline.NewSource(pipeline.EngineNative, bytes.NewReader([]byte("nope")), pipeline.Env{})
	require.NoError(t, err)
	p = pipeline.New(bad, pipeline.Env{})
	require.Error(t, p.Run())
	require.Equal(t, pipeline.Aborted, p.State())
}

func writeDemo(t *testing.T, dir, name string, raw []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func TestProcessFileZstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	packed := enc.EncodeAll(twoRounds(), nil)
	require.NoError(t, enc.Close())

	dir := t.TempDir()
	plain, err := pipeline.ProcessFile(writeDemo(t, dir, "a.dem", twoRounds()), pipeline.Options{}, pipeline.Env{})
	require.NoError(t, err)
	zst, err := pipeline.ProcessFile(writeDemo(t, dir, "a.dem.zst", packed), pipeline.Options{}, pipeline.Env{})
	require.NoError(t, err)

	// the id is derived from the decompressed bytes
	require.Equal(t, plain.Records.Match.MatchID, zst.Records.Match.MatchID)
}

func TestRunBatchContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err := zw.Write(twoRounds())
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	paths := []string{
		writeDemo(t, dir, "good.dem", twoRounds()),
		writeDemo(t, dir, "gzip.dem", gz.Bytes()),
		filepath.Join(dir, "missing.dem"),
	}

	var (
		mu   sync.Mutex
		seen []string
	)
	sink := func(res pipeline.Result) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, res.Path)
		return nil
	}

	report := pipeline.RunBatch(context.Background(), paths, 2, pipeline.Options{}, pipeline.Env{Metrics: metrics.New()}, sink)
	require.Len(t, report.Succeeded, 1)
	require.Len(t, report.Failed, 2)
	require.Equal(t, []string{paths[0]}, seen)
}

func TestRunBatchSinkErrorIsAFailure(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeDemo(t, dir, "good.dem", twoRounds())}
	boom := errors.New("disk full")

	report := pipeline.RunBatch(context.Background(), paths, 1, pipeline.Options{}, pipeline.Env{},
		func(pipeline.Result) error { return boom })
	require.Empty(t, report.Succeeded)
	require.Len(t, report.Failed, 1)
	require.ErrorIs(t, report.Failed[0].Err, boom)
}

func TestRunBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := pipeline.RunBatch(ctx, []string{"a.dem", "b.dem"}, 1, pipeline.Options{}, pipeline.Env{}, nil)
	require.Empty(t, report.Succeeded)
	require.Len(t, report.Failed, 2)
	require.ErrorIs(t, report.Failed[0].Err, context.Canceled)
}
