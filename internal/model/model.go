package model

import "math"

// Team represents which side a player is on.
type Team int

const (
	TeamUnknown    Team = 0
	TeamSpectators Team = 1
	TeamT          Team = 2
	TeamCT         Team = 3
)

func (t Team) String() string {
	switch t {
	case TeamT:
		return "T"
	case TeamCT:
		return "CT"
	case TeamSpectators:
		return "SPEC"
	default:
		return "?"
	}
}

// Playing reports whether t is one of the two playing sides.
func (t Team) Playing() bool {
	return t == TeamT || t == TeamCT
}

// Opponent returns the other playing side, or TeamUnknown.
func (t Team) Opponent() Team {
	switch t {
	case TeamT:
		return TeamCT
	case TeamCT:
		return TeamT
	default:
		return TeamUnknown
	}
}

// MarshalText encodes unknown teams as an empty string.
func (t Team) MarshalText() ([]byte, error) {
	if t == TeamUnknown {
		return []byte{}, nil
	}
	return []byte(t.String()), nil
}

// ParseTeam is the inverse of Team.String.
func ParseTeam(s string) Team {
	switch s {
	case "T":
		return TeamT
	case "CT":
		return TeamCT
	case "SPEC":
		return TeamSpectators
	default:
		return TeamUnknown
	}
}

// HitGroup is the body part a bullet connected with.
type HitGroup int

const (
	HitGroupGeneric  HitGroup = 0
	HitGroupHead     HitGroup = 1
	HitGroupChest    HitGroup = 2
	HitGroupStomach  HitGroup = 3
	HitGroupLeftArm  HitGroup = 4
	HitGroupRightArm HitGroup = 5
	HitGroupLeftLeg  HitGroup = 6
	HitGroupRightLeg HitGroup = 7
	HitGroupNeck     HitGroup = 8
	HitGroupGear     HitGroup = 10
)

var hitGroupNames = map[HitGroup]string{
	HitGroupGeneric:  "generic",
	HitGroupHead:     "head",
	HitGroupChest:    "chest",
	HitGroupStomach:  "stomach",
	HitGroupLeftArm:  "left_arm",
	HitGroupRightArm: "right_arm",
	HitGroupLeftLeg:  "left_leg",
	HitGroupRightLeg: "right_leg",
	HitGroupNeck:     "neck",
	HitGroupGear:     "gear",
}

func (h HitGroup) String() string {
	if name, ok := hitGroupNames[h]; ok {
		return name
	}
	return "other"
}

func (h HitGroup) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// Participant is a player as they were at the moment of an event.
type Participant struct {
	SteamID uint64 `json:"steam_id"`
	Name    string `json:"name"`
	Team    Team   `json:"team"`
}

// ---- Record set produced for one match ----

type MatchRecord struct {
	MatchID         string  `json:"match_id"`
	DemoHash        string  `json:"demo_hash"`
	MapName         string  `json:"map_name"`
	ServerName      string  `json:"server_name"`
	BuildNum        int     `json:"build_num"`
	NetworkProtocol int     `json:"network_protocol"`
	TickRate        float64 `json:"tick_rate"`
	PlaybackTicks   int     `json:"playback_ticks"`
	PlaybackSeconds float64 `json:"playback_seconds"`
	RoundsPlayed    int     `json:"rounds_played"`
	CTScore         int     `json:"ct_score"`
	TScore          int     `json:"t_score"`
	Winner          Team    `json:"winner"`
	ValveMatchID    uint64  `json:"valve_match_id,omitempty"`
	Engine          string  `json:"engine"`
}

type RoundRecord struct {
	MatchID      string    `json:"match_id"`
	RoundNumber  int       `json:"round_number"`
	WinnerSide   Team      `json:"winner_side"`
	EndReason    EndReason `json:"end_reason"`
	ReasonCode   int       `json:"reason_code"`
	CTScoreAfter int       `json:"ct_score_after"`
	TScoreAfter  int       `json:"t_score_after"`
	BombPlanted  bool      `json:"bomb_planted"`
	BombDefused  bool      `json:"bomb_defused"`
	StartTick    int       `json:"start_tick"`
	EndTick      int       `json:"end_tick"`
}

type KillRecord struct {
	MatchID       string       `json:"match_id"`
	RoundNumber   int          `json:"round_number"`
	Tick          int          `json:"tick"`
	Seq           int          `json:"seq"`
	Attacker      *Participant `json:"attacker,omitempty"` // nil for world kills
	Victim        Participant  `json:"victim"`
	Assister      *Participant `json:"assister,omitempty"`
	Weapon        string       `json:"weapon"`
	HitGroup      HitGroup     `json:"hit_group"`
	Headshot      bool         `json:"headshot"`
	Wallbang      bool         `json:"wallbang"`
	Penetrated    int          `json:"penetrated"`
	ThroughSmoke  bool         `json:"through_smoke"`
	NoScope       bool         `json:"no_scope"`
	AttackerBlind bool         `json:"attacker_blind"`
	FlashAssist   bool         `json:"flash_assist"`
}

type WeaponStatRecord struct {
	MatchID   string `json:"match_id"`
	SteamID   uint64 `json:"steam_id"`
	Name      string `json:"name"`
	Weapon    string `json:"weapon"`
	Kills     int    `json:"kills"`
	Headshots int    `json:"headshots"`
	Damage    int    `json:"damage"`
	Shots     int    `json:"shots"`
	Hits      int    `json:"hits"`
}

// Accuracy returns hits/shots as a percentage.
func (w *WeaponStatRecord) Accuracy() float64 {
	if w.Shots == 0 {
		return 0
	}
	return float64(w.Hits) / float64(w.Shots) * 100
}

type FlashStatRecord struct {
	MatchID            string  `json:"match_id"`
	SteamID            uint64  `json:"steam_id"`
	Name               string  `json:"name"`
	EnemiesFlashed     int     `json:"enemies_flashed"`
	EnemyBlindDuration float64 `json:"enemy_blind_duration"`
	TeammatesFlashed   int     `json:"teammates_flashed"`
	TeamBlindDuration  float64 `json:"team_blind_duration"`
	SelfFlashes        int     `json:"self_flashes"`
	SelfBlindDuration  float64 `json:"self_blind_duration"`
	FlashesThrown      int     `json:"flashes_thrown"`
}

type DamageStatRecord struct {
	MatchID             string `json:"match_id"`
	SteamID             uint64 `json:"steam_id"`
	Name                string `json:"name"`
	EnemyDamage         int    `json:"enemy_damage"`
	TeamDamage          int    `json:"team_damage"`
	SelfDamage          int    `json:"self_damage"`
	TotalDamage         int    `json:"total_damage"`
	UtilityDamage       int    `json:"utility_damage"`
	TeamDamageIncidents int    `json:"team_damage_incidents"`
	DamageTaken         int    `json:"damage_taken"`
}

type PlayerMatchRecord struct {
	MatchID      string  `json:"match_id"`
	SteamID      uint64  `json:"steam_id"`
	Name         string  `json:"name"`
	Team         Team    `json:"team"`
	Bot          bool    `json:"bot"`
	Kills        int     `json:"kills"`
	Deaths       int     `json:"deaths"`
	Assists      int     `json:"assists"`
	Headshots    int     `json:"headshots"`
	FlashAssists int     `json:"flash_assists"`
	Damage       int     `json:"damage"`
	TradeKills   int     `json:"trade_kills"`
	TradedDeaths int     `json:"traded_deaths"`
	RoundsPlayed int     `json:"rounds_played"`
	MVPs         int     `json:"mvps"`
	Score        int     `json:"score"` // scoreboard points, see aggregator.Player
	ADR          float64 `json:"adr"`
}

func (s *PlayerMatchRecord) KDRatio() float64 {
	if s.Deaths == 0 {
		return float64(s.Kills)
	}
	return float64(s.Kills) / float64(s.Deaths)
}

func (s *PlayerMatchRecord) HSPercent() float64 {
	if s.Kills == 0 {
		return 0
	}
	return float64(s.Headshots) / float64(s.Kills) * 100
}

// ComputeADR returns average damage per round rounded to two decimals.
func ComputeADR(damage, rounds int) float64 {
	if rounds <= 0 {
		return 0
	}
	return math.Round(float64(damage)/float64(rounds)*100) / 100
}

type ClutchRecord struct {
	MatchID     string `json:"match_id"`
	RoundNumber int    `json:"round_number"`
	SteamID     uint64 `json:"steam_id"`
	Name        string `json:"name"`
	Team        Team   `json:"team"`
	Opponents   int    `json:"opponents"`
	Kills       int    `json:"kills"`
	Won         bool   `json:"won"`
}

type MultiKillRecord struct {
	MatchID string `json:"match_id"`
	SteamID uint64 `json:"steam_id"`
	Name    string `json:"name"`
	TwoK    int    `json:"two_k"`
	ThreeK  int    `json:"three_k"`
	FourK   int    `json:"four_k"`
	Aces    int    `json:"aces"`
}

type FirstBloodRecord struct {
	MatchID     string       `json:"match_id"`
	RoundNumber int          `json:"round_number"`
	Tick        int          `json:"tick"`
	Killer      Participant  `json:"killer"`
	Victim      Participant  `json:"victim"`
	Weapon      string       `json:"weapon"`
	Assister    *Participant `json:"assister,omitempty"`
}

type ChatRecord struct {
	MatchID     string `json:"match_id"`
	Tick        int    `json:"tick"`
	Seq         int    `json:"seq"`
	RoundNumber int    `json:"round_number"`
	SteamID     uint64 `json:"steam_id"`
	Name        string `json:"name"`
	Team        Team   `json:"team"`
	Message     string `json:"message"`
	AllChat     bool   `json:"all_chat"`
}

type VoiceStatRecord struct {
	MatchID   string `json:"match_id"`
	SteamID   uint64 `json:"steam_id"`
	Name      string `json:"name"`
	Packets   int    `json:"packets"`
	Bytes     int    `json:"bytes"`
	FirstTick int    `json:"first_tick"`
	LastTick  int    `json:"last_tick"`
}

// RecordSet is everything persisted for one match. Every record carries
// the same MatchID.
type RecordSet struct {
	Match       MatchRecord         `json:"match"`
	Rounds      []RoundRecord       `json:"rounds"`
	Kills       []KillRecord        `json:"kills"`
	Weapons     []WeaponStatRecord  `json:"weapon_stats"`
	Flashes     []FlashStatRecord   `json:"flash_stats"`
	Damage      []DamageStatRecord  `json:"damage_stats"`
	Players     []PlayerMatchRecord `json:"player_matches"`
	Clutches    []ClutchRecord      `json:"clutch_stats"`
	MultiKills  []MultiKillRecord   `json:"multikill_stats"`
	FirstBloods []FirstBloodRecord  `json:"first_blood_stats"`
	Chat        []ChatRecord        `json:"chat_messages"`
	Voice       []VoiceStatRecord   `json:"voice"`
}

// MatchSummary is the list view of a stored match.
type MatchSummary struct {
	MatchID      string
	DemoHash     string
	MapName      string
	TickRate     float64
	RoundsPlayed int
	CTScore      int
	TScore       int
	Engine       string
	ProcessedAt  string
}
