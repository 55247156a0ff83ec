package decoder

import (
	"strings"

	"github.com/pable/go-cs-demostats/internal/events"
	"github.com/pable/go-cs-demostats/internal/pbwire"
)

func (d *Decoder) handleServerInfo(body []byte) error {
	info := events.ServerInfo{}
	err := pbwire.Walk(body, func(f pbwire.Field) error {
		switch f.Num {
		case 13:
			info.TickInterval = float64(f.Float32())
		case 15:
			info.MapName = f.String()
		case 17:
			info.HostName = f.String()
		}
		return nil
	})
	if err != nil {
		return err
	}
	info.Meta = d.meta()
	d.emit(info)
	return nil
}

// handleSayText2 decodes chat. The entity index is the sender's slot + 1;
// param1 is the name and param2 the text.
func (d *Decoder) handleSayText2(body []byte) error {
	var (
		entityIndex int
		msgName     string
		text        string
	)
	err := pbwire.Walk(body, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			entityIndex = f.Int()
		case 3:
			msgName = f.String()
		case 5:
			text = f.String()
		}
		return nil
	})
	if err != nil {
		return err
	}

	slot := entityIndex - 1
	sender, ok := d.players.lookup(slot)
	if !ok {
		d.warn(&UnresolvedPlayerWarning{Event: "say_text2", Key: "entityindex", Slot: slot, Tick: d.tick})
		return nil
	}
	d.emit(events.ChatMessage{
		Meta:    d.meta(),
		Sender:  sender.ref(),
		Text:    strings.TrimSpace(text),
		AllChat: strings.HasSuffix(msgName, "_All") || strings.HasSuffix(msgName, "AllDead"),
	})
	return nil
}

func (d *Decoder) handleVoiceData(body []byte) error {
	var (
		slot   int
		xuid   uint64
		audio  []byte
		format int
	)
	err := pbwire.Walk(body, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			return pbwire.Walk(f.Bytes, func(f pbwire.Field) error {
				switch f.Num {
				case 1:
					format = f.Int()
				case 2:
					audio = f.Bytes
				}
				return nil
			})
		case 2:
			slot = f.Int()
		case 4:
			xuid = f.Uint64()
		}
		return nil
	})
	if err != nil {
		return err
	}

	speaker, ok := d.players.bySteamID(xuid)
	if xuid == 0 || !ok {
		speaker, ok = d.players.lookup(slot)
	}
	if !ok {
		d.warn(&UnresolvedPlayerWarning{Event: "voice_data", Key: "client", Slot: slot, Tick: d.tick})
		return nil
	}
	d.emit(events.VoiceData{
		Meta:    d.meta(),
		Speaker: speaker.ref(),
		Bytes:   len(audio),
		Format:  VoiceFormat(format),
	})
	return nil
}

// VoiceFormat names a CSVCMsg_VoiceData audio format.
func VoiceFormat(f int) string {
	switch f {
	case 0:
		return "steam"
	case 1:
		return "engine"
	case 2:
		return "opus"
	}
	return "unknown"
}
