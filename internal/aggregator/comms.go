package aggregator

import (
	"sort"

	"github.com/pable/go-cs-demostats/internal/events"
	"github.com/pable/go-cs-demostats/internal/model"
	"github.com/pable/go-cs-demostats/internal/tracker"
)

// Chat is an append-only log. Identical messages are kept.
type Chat struct {
	messages []model.ChatRecord
}

func NewChat() *Chat { return &Chat{} }

func (a *Chat) Reset() { a.messages = nil }

func (a *Chat) Apply(ev events.Event, st tracker.View) error {
	if !active(a, ev, st) {
		return nil
	}
	e, ok := ev.(events.ChatMessage)
	if !ok {
		return nil
	}
	a.messages = append(a.messages, model.ChatRecord{
		Tick:        e.Tick,
		Seq:         e.Seq,
		RoundNumber: st.CurrentRound(),
		SteamID:     e.Sender.SteamID,
		Name:        e.Sender.Name,
		Team:        st.TeamAt(e.Tick, e.Sender.SteamID),
		Message:     e.Text,
		AllChat:     e.AllChat,
	})
	return nil
}

// Records returns messages ordered by (tick, seq).
func (a *Chat) Records() []model.ChatRecord {
	return append([]model.ChatRecord(nil), a.messages...)
}

// Voice sums voice packets per speaker.
type Voice struct {
	stats map[uint64]*model.VoiceStatRecord
}

func NewVoice() *Voice {
	a := &Voice{}
	a.Reset()
	return a
}

func (a *Voice) Reset() { a.stats = make(map[uint64]*model.VoiceStatRecord) }

func (a *Voice) Apply(ev events.Event, st tracker.View) error {
	if !active(a, ev, st) {
		return nil
	}
	e, ok := ev.(events.VoiceData)
	if !ok {
		return nil
	}
	s, ok := a.stats[e.Speaker.SteamID]
	if !ok {
		s = &model.VoiceStatRecord{SteamID: e.Speaker.SteamID, FirstTick: e.Tick}
		a.stats[e.Speaker.SteamID] = s
	}
	s.Name = e.Speaker.Name
	s.Packets++
	s.Bytes += e.Bytes
	s.LastTick = e.Tick
	return nil
}

func (a *Voice) Records() []model.VoiceStatRecord {
	out := make([]model.VoiceStatRecord, 0, len(a.stats))
	for _, s := range a.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SteamID < out[j].SteamID })
	return out
}
