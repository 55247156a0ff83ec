// Package events defines the closed set of domain events decoded from a
// demo. Every event embeds Meta; (Tick, Seq) totally orders a stream.
package events

import "github.com/pable/go-cs-demostats/internal/model"

// Kind tags an Event variant.
type Kind int

const (
	KindPlayerConnect Kind = iota + 1
	KindPlayerDisconnect
	KindNameChange
	KindTeamAssign
	KindServerInfo
	KindMatchStart
	KindRoundStart
	KindRoundEnd
	KindPlayerDeath
	KindPlayerHurt
	KindPlayerFlashed
	KindGrenadeThrown
	KindGrenadeDetonated
	KindWeaponFire
	KindBombPlanted
	KindBombDefused
	KindBombExploded
	KindChatMessage
	KindVoiceData
	KindRoundMVP
)

var kindNames = map[Kind]string{
	KindPlayerConnect:    "player_connect",
	KindPlayerDisconnect: "player_disconnect",
	KindNameChange:       "name_change",
	KindTeamAssign:       "team_assign",
	KindServerInfo:       "server_info",
	KindMatchStart:       "match_start",
	KindRoundStart:       "round_start",
	KindRoundEnd:         "round_end",
	KindPlayerDeath:      "player_death",
	KindPlayerHurt:       "player_hurt",
	KindPlayerFlashed:    "player_flashed",
	KindGrenadeThrown:    "grenade_thrown",
	KindGrenadeDetonated: "grenade_detonated",
	KindWeaponFire:       "weapon_fire",
	KindBombPlanted:      "bomb_planted",
	KindBombDefused:      "bomb_defused",
	KindBombExploded:     "bomb_exploded",
	KindChatMessage:      "chat_message",
	KindVoiceData:        "voice_data",
	KindRoundMVP:         "round_mvp",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Meta is carried by every event.
type Meta struct {
	Tick   int
	Seq    int
	Warmup bool
}

// Header returns the event metadata.
func (m Meta) Header() Meta { return m }

// Before reports whether m orders strictly before o.
func (m Meta) Before(o Meta) bool {
	if m.Tick != o.Tick {
		return m.Tick < o.Tick
	}
	return m.Seq < o.Seq
}

// Event is implemented only by the variants in this package.
type Event interface {
	Header() Meta
	Kind() Kind
	sealed()
}

// PlayerRef identifies a player and their name at the time of an event.
type PlayerRef struct {
	SteamID uint64
	Name    string
	Slot    int
	Bot     bool
}

// Grenade types as used by grenade lifecycle events.
type Grenade string

const (
	GrenadeFlash   Grenade = "flashbang"
	GrenadeHE      Grenade = "hegrenade"
	GrenadeSmoke   Grenade = "smokegrenade"
	GrenadeMolotov Grenade = "molotov"
	GrenadeDecoy   Grenade = "decoy"
)

// PlayerConnect is emitted the first time an identity is seen.
type PlayerConnect struct {
	Meta
	Player PlayerRef
}

// PlayerDisconnect frees the player's slot.
type PlayerDisconnect struct {
	Meta
	Player PlayerRef
	Reason string
}

// NameChange carries an in-match rename.
type NameChange struct {
	Meta
	Player  PlayerRef
	OldName string
	NewName string
}

// TeamAssign moves a player between sides.
type TeamAssign struct {
	Meta
	Player  PlayerRef
	Team    model.Team
	OldTeam model.Team
}

// ServerInfo describes the recording server and map.
type ServerInfo struct {
	Meta
	TickInterval float64
	MapName      string
	HostName     string
}

// TickRate converts the tick interval into ticks per second.
func (s ServerInfo) TickRate() float64 {
	if s.TickInterval <= 0 {
		return 0
	}
	return 1 / s.TickInterval
}

// MatchStart marks the end of warmup and resets match state.
type MatchStart struct {
	Meta
}

// RoundStart opens a round.
type RoundStart struct {
	Meta
	TimeLimit int
	Objective string
}

// RoundEnd closes a round. Reason is the raw engine reason code.
type RoundEnd struct {
	Meta
	Winner  model.Team
	Reason  int
	Message string
}

// PlayerDeath is a kill. Attacker is nil for world and bomb deaths.
type PlayerDeath struct {
	Meta
	Victim        PlayerRef
	Attacker      *PlayerRef
	Assister      *PlayerRef
	Weapon        string
	HitGroup      model.HitGroup
	Headshot      bool
	Penetrated    int
	NoScope       bool
	ThroughSmoke  bool
	AttackerBlind bool
	AssistedFlash bool
}

// PlayerHurt is one damage instance.
type PlayerHurt struct {
	Meta
	Victim       PlayerRef
	Attacker     *PlayerRef
	Weapon       string
	HealthDamage int
	ArmorDamage  int
	Health       int
	Armor        int
	HitGroup     model.HitGroup
}

// PlayerFlashed is a flashbang blinding a player.
type PlayerFlashed struct {
	Meta
	Victim        PlayerRef
	Attacker      *PlayerRef
	EntityID      int
	BlindDuration float64
}

// GrenadeThrown is a grenade leaving a player's hand.
type GrenadeThrown struct {
	Meta
	Thrower  PlayerRef
	Grenade  Grenade
	EntityID int // 0 when the source does not expose it
}

// GrenadeDetonated is a grenade going off.
type GrenadeDetonated struct {
	Meta
	Thrower  *PlayerRef
	Grenade  Grenade
	EntityID int
}

// WeaponFire is a single shot.
type WeaponFire struct {
	Meta
	Shooter PlayerRef
	Weapon  string
}

// BombPlanted carries the planter and the site.
type BombPlanted struct {
	Meta
	Player PlayerRef
	Site   int
}

// BombDefused carries the defuser and the site.
type BombDefused struct {
	Meta
	Player PlayerRef
	Site   int
}

// BombExploded is the bomb detonating.
type BombExploded struct {
	Meta
	Site int
}

// RoundMVP names the round's most valuable player.
type RoundMVP struct {
	Meta
	Player PlayerRef
	Reason int
}

// ChatMessage is a chat line. AllChat is false for team chat.
type ChatMessage struct {
	Meta
	Sender  PlayerRef
	Text    string
	AllChat bool
}

// VoiceData is one voice packet. Only its size is kept.
type VoiceData struct {
	Meta
	Speaker PlayerRef
	Bytes   int
	Format  string
}

func (PlayerConnect) Kind() Kind    { return KindPlayerConnect }
func (PlayerDisconnect) Kind() Kind { return KindPlayerDisconnect }
func (NameChange) Kind() Kind       { return KindNameChange }
func (TeamAssign) Kind() Kind       { return KindTeamAssign }
func (ServerInfo) Kind() Kind       { return KindServerInfo }
func (MatchStart) Kind() Kind       { return KindMatchStart }
func (RoundStart) Kind() Kind       { return KindRoundStart }
func (RoundEnd) Kind() Kind         { return KindRoundEnd }
func (PlayerDeath) Kind() Kind      { return KindPlayerDeath }
func (PlayerHurt) Kind() Kind       { return KindPlayerHurt }
func (PlayerFlashed) Kind() Kind    { return KindPlayerFlashed }
func (GrenadeThrown) Kind() Kind    { return KindGrenadeThrown }
func (GrenadeDetonated) Kind() Kind { return KindGrenadeDetonated }
func (WeaponFire) Kind() Kind       { return KindWeaponFire }
func (BombPlanted) Kind() Kind      { return KindBombPlanted }
func (BombDefused) Kind() Kind      { return KindBombDefused }
func (BombExploded) Kind() Kind     { return KindBombExploded }
func (ChatMessage) Kind() Kind      { return KindChatMessage }
func (VoiceData) Kind() Kind        { return KindVoiceData }
func (RoundMVP) Kind() Kind         { return KindRoundMVP }

func (PlayerConnect) sealed()    {}
func (PlayerDisconnect) sealed() {}
func (NameChange) sealed()       {}
func (TeamAssign) sealed()       {}
func (ServerInfo) sealed()       {}
func (MatchStart) sealed()       {}
func (RoundStart) sealed()       {}
func (RoundEnd) sealed()         {}
func (PlayerDeath) sealed()      {}
func (PlayerHurt) sealed()       {}
func (PlayerFlashed) sealed()    {}
func (GrenadeThrown) sealed()    {}
func (GrenadeDetonated) sealed() {}
func (WeaponFire) sealed()       {}
func (BombPlanted) sealed()      {}
func (BombDefused) sealed()      {}
func (BombExploded) sealed()     {}
func (ChatMessage) sealed()      {}
func (VoiceData) sealed()        {}
func (RoundMVP) sealed()         {}

// GrenadeFromWeapon maps weapon class names ("weapon_flashbang",
// "flashbang", "incgrenade") onto Grenade. ok is false for non-grenades.
func GrenadeFromWeapon(weapon string) (Grenade, bool) {
	switch trimWeaponPrefix(weapon) {
	case "flashbang":
		return GrenadeFlash, true
	case "hegrenade":
		return GrenadeHE, true
	case "smokegrenade":
		return GrenadeSmoke, true
	case "molotov", "incgrenade", "inferno":
		return GrenadeMolotov, true
	case "decoy":
		return GrenadeDecoy, true
	}
	return "", false
}

// WeaponName normalises a weapon class name by removing the "weapon_" prefix.
func WeaponName(weapon string) string {
	return trimWeaponPrefix(weapon)
}

func trimWeaponPrefix(s string) string {
	const prefix = "weapon_"
	if len(s) > len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}
