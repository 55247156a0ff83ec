package demotest

import (
	"fmt"

	"github.com/pable/go-cs-demostats/internal/demo"
)

// Key is a descriptor key.
type Key struct {
	Name string
	Type int
}

// Descriptor describes one legacy game event.
type Descriptor struct {
	ID   int
	Name string
	Keys []Key
}

func keys(pairs ...any) []Key {
	out := make([]Key, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Key{Name: pairs[i].(string), Type: pairs[i+1].(int)})
	}
	return out
}

// StandardEvents mirrors the subset of the CS2 event list the decoder
// understands, plus a few it should skip.
var StandardEvents = []Descriptor{
	{Name: "player_connect", Keys: keys("name", demo.KeyString, "userid", demo.KeyShort, "networkid", demo.KeyString, "xuid", demo.KeyUint64, "bot", demo.KeyBool)},
	{Name: "player_info", Keys: keys("name", demo.KeyString, "userid", demo.KeyShort, "steamid", demo.KeyUint64, "bot", demo.KeyBool)},
	{Name: "player_disconnect", Keys: keys("userid", demo.KeyShort, "reason", demo.KeyShort, "name", demo.KeyString, "networkid", demo.KeyString, "xuid", demo.KeyUint64)},
	{Name: "player_changename", Keys: keys("userid", demo.KeyShort, "oldname", demo.KeyString, "newname", demo.KeyString)},
	{Name: "player_team", Keys: keys("userid", demo.KeyShort, "team", demo.KeyByte, "oldteam", demo.KeyByte, "disconnect", demo.KeyBool, "silent", demo.KeyBool, "isbot", demo.KeyBool)},
	{Name: "begin_new_match"},
	{Name: "round_announce_warmup"},
	{Name: "round_announce_match_start"},
	{Name: "round_start", Keys: keys("timelimit", demo.KeyLong, "fraglimit", demo.KeyLong, "objective", demo.KeyString)},
	{Name: "round_end", Keys: keys("winner", demo.KeyByte, "reason", demo.KeyByte, "message", demo.KeyString, "legacy", demo.KeyByte, "player_count", demo.KeyShort, "nomusic", demo.KeyByte)},
	{Name: "player_death", Keys: keys("userid", demo.KeyShort, "attacker", demo.KeyShort, "assister", demo.KeyShort, "assistedflash", demo.KeyBool,
		"weapon", demo.KeyString, "headshot", demo.KeyBool, "penetrated", demo.KeyShort, "noscope", demo.KeyBool, "thrusmoke", demo.KeyBool,
		"attackerblind", demo.KeyBool, "hitgroup", demo.KeyShort)},
	{Name: "player_hurt", Keys: keys("userid", demo.KeyShort, "attacker", demo.KeyShort, "health", demo.KeyByte, "armor", demo.KeyByte,
		"weapon", demo.KeyString, "dmg_health", demo.KeyShort, "dmg_armor", demo.KeyByte, "hitgroup", demo.KeyByte)},
	{Name: "player_blind", Keys: keys("userid", demo.KeyShort, "attacker", demo.KeyShort, "entityid", demo.KeyShort, "blind_duration", demo.KeyFloat)},
	{Name: "grenade_thrown", Keys: keys("userid", demo.KeyShort, "weapon", demo.KeyString)},
	{Name: "flashbang_detonate", Keys: keys("userid", demo.KeyShort, "entityid", demo.KeyShort, "x", demo.KeyFloat, "y", demo.KeyFloat, "z", demo.KeyFloat)},
	{Name: "hegrenade_detonate", Keys: keys("userid", demo.KeyShort, "entityid", demo.KeyShort, "x", demo.KeyFloat, "y", demo.KeyFloat, "z", demo.KeyFloat)},
	{Name: "weapon_fire", Keys: keys("userid", demo.KeyShort, "weapon", demo.KeyString, "silenced", demo.KeyBool)},
	{Name: "bomb_planted", Keys: keys("userid", demo.KeyShort, "site", demo.KeyShort)},
	{Name: "bomb_defused", Keys: keys("userid", demo.KeyShort, "site", demo.KeyShort)},
	{Name: "bomb_exploded", Keys: keys("userid", demo.KeyShort, "site", demo.KeyShort)},
	{Name: "round_mvp", Keys: keys("userid", demo.KeyShort, "reason", demo.KeyShort, "value", demo.KeyLong)},
	{Name: "player_chat", Keys: keys("teamonly", demo.KeyBool, "userid", demo.KeyShort, "text", demo.KeyString)},
	{Name: "round_freeze_end"},
	{Name: "player_footstep", Keys: keys("userid", demo.KeyShort)},
	{Name: "future_event", Keys: keys("userid", demo.KeyShort, "payload", demo.KeyString)},
}

// Player is a convenience identity for scenario tests.
type Player struct {
	Slot    int
	Name    string
	SteamID uint64
}

// Steam3 renders the SteamID in the "[U:1:N]" form used by networkid.
func (p Player) Steam3() string {
	return fmt.Sprintf("[U:1:%d]", p.SteamID-76561197960265728)
}

// Connect emits player_connect for p using the networkid form, leaving xuid
// empty.
func (b *Builder) Connect(tick int, p Player) *Builder {
	return b.Event(tick, "player_connect", Keys{
		"name": p.Name, "userid": p.Slot, "networkid": p.Steam3(),
	})
}

// Team emits player_team.
func (b *Builder) Team(tick int, p Player, team, old int) *Builder {
	return b.Event(tick, "player_team", Keys{"userid": p.Slot, "team": team, "oldteam": old})
}

// Kill emits player_death.
func (b *Builder) Kill(tick int, attacker, victim Player, weapon string, headshot bool) *Builder {
	k := Keys{"userid": victim.Slot, "attacker": attacker.Slot, "assister": -1, "weapon": weapon, "headshot": headshot}
	if headshot {
		k["hitgroup"] = 1
	}
	return b.Event(tick, "player_death", k)
}

// RoundEnd emits round_end.
func (b *Builder) RoundEnd(tick, winner, reason int) *Builder {
	return b.Event(tick, "round_end", Keys{"winner": winner, "reason": reason})
}
