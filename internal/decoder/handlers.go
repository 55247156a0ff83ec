package decoder

import (
	"log/slog"
	"strings"

	"github.com/pable/go-cs-demostats/internal/events"
	"github.com/pable/go-cs-demostats/internal/model"
)

type eventHandler func(d *Decoder, ev gameEvent) error

var gameEventHandlers = map[string]eventHandler{
	"player_connect":             (*Decoder).onPlayerConnect,
	"player_info":                (*Decoder).onPlayerInfo,
	"player_disconnect":          (*Decoder).onPlayerDisconnect,
	"player_changename":          (*Decoder).onPlayerChangeName,
	"player_team":                (*Decoder).onPlayerTeam,
	"begin_new_match":            (*Decoder).onBeginNewMatch,
	"round_announce_warmup":      (*Decoder).onWarmupAnnounce,
	"round_announce_match_start": (*Decoder).onMatchStartAnnounce,
	"round_start":                (*Decoder).onRoundStart,
	"round_end":                  (*Decoder).onRoundEnd,
	"player_death":               (*Decoder).onPlayerDeath,
	"player_hurt":                (*Decoder).onPlayerHurt,
	"player_blind":               (*Decoder).onPlayerBlind,
	"grenade_thrown":             (*Decoder).onGrenadeThrown,
	"flashbang_detonate":         detonateHandler(events.GrenadeFlash),
	"hegrenade_detonate":         detonateHandler(events.GrenadeHE),
	"smokegrenade_detonate":      detonateHandler(events.GrenadeSmoke),
	"weapon_fire":                (*Decoder).onWeaponFire,
	"bomb_planted":               (*Decoder).onBombPlanted,
	"bomb_defused":               (*Decoder).onBombDefused,
	"bomb_exploded":              (*Decoder).onBombExploded,
	"round_mvp":                  (*Decoder).onRoundMVP,
	"player_chat":                (*Decoder).onPlayerChat,
}

// quietEvents are known events that carry nothing the pipeline uses.
var quietEvents = map[string]struct{}{
	"announce_phase_end":             {},
	"bomb_beep":                      {},
	"bomb_begindefuse":               {},
	"bomb_beginplant":                {},
	"bomb_dropped":                   {},
	"bomb_pickup":                    {},
	"bullet_impact":                  {},
	"buytime_ended":                  {},
	"cs_pre_restart":                 {},
	"cs_round_final_beep":            {},
	"cs_round_start_beep":            {},
	"cs_win_panel_match":             {},
	"cs_win_panel_round":             {},
	"decoy_detonate":                 {},
	"decoy_started":                  {},
	"hltv_chase":                     {},
	"hltv_fixed":                     {},
	"hltv_versioninfo":               {},
	"inferno_expire":                 {},
	"inferno_extinguish":             {},
	"inferno_startburn":              {},
	"item_equip":                     {},
	"item_pickup":                    {},
	"item_purchase":                  {},
	"molotov_detonate":               {},
	"other_death":                    {},
	"player_activate":                {},
	"player_connect_full":            {},
	"player_falldamage":              {},
	"player_footstep":                {},
	"player_jump":                    {},
	"player_spawn":                   {},
	"round_announce_final":           {},
	"round_announce_last_round_half": {},
	"round_announce_match_point":     {},
	"round_freeze_end":               {},
	"round_officially_ended":         {},
	"round_poststart":                {},
	"round_prestart":                 {},
	"round_time_warning":             {},
	"server_cvar":                    {},
	"smokegrenade_expired":           {},
	"weapon_fire_on_empty":           {},
	"weapon_reload":                  {},
	"weapon_zoom":                    {},
}

// requirePlayer resolves a slot key that must name a known player.
func (d *Decoder) requirePlayer(ev gameEvent, key string) (*identity, bool) {
	slot := ev.int(key)
	if id, ok := d.players.lookup(slot); ok {
		return id, true
	}
	d.warn(&UnresolvedPlayerWarning{Event: ev.name, Key: key, Slot: slot, Tick: d.tick})
	return nil, false
}

// optionalPlayer resolves a slot key that may be absent, negative or point
// at the world.
func (d *Decoder) optionalPlayer(ev gameEvent, key string) *events.PlayerRef {
	if !ev.has(key) {
		return nil
	}
	slot := ev.int(key)
	if slot < 0 {
		return nil
	}
	id, ok := d.players.lookup(slot)
	if !ok {
		return nil
	}
	ref := id.ref()
	return &ref
}

func (d *Decoder) register(ev gameEvent, slot int, xuid uint64, networkID string) {
	bot := ev.bool("bot") || networkID == "BOT"
	steamID, ok := resolveSteamID(xuid, networkID)
	if !ok {
		if !bot {
			d.logger.Debug("No SteamID for player, treating as bot",
				slog.String("name", ev.str("name")), slog.Int("slot", slot))
		}
		steamID = botSteamID(slot)
		bot = true
	}
	id, created := d.players.upsert(slot, steamID, ev.str("name"), bot)
	if created {
		d.emit(events.PlayerConnect{Meta: d.meta(), Player: id.ref()})
	}
}

func (d *Decoder) onPlayerConnect(ev gameEvent) error {
	d.register(ev, ev.int("userid"), ev.uint64("xuid"), ev.str("networkid"))
	return nil
}

func (d *Decoder) onPlayerInfo(ev gameEvent) error {
	d.register(ev, ev.int("userid"), ev.uint64("steamid"), "")
	return nil
}

func (d *Decoder) onPlayerDisconnect(ev gameEvent) error {
	slot := ev.int("userid")
	id, ok := d.players.lookup(slot)
	if !ok {
		return nil
	}
	d.emit(events.PlayerDisconnect{Meta: d.meta(), Player: id.ref(), Reason: ev.str("reason")})
	d.players.remove(slot)
	return nil
}

func (d *Decoder) onPlayerChangeName(ev gameEvent) error {
	id, ok := d.requirePlayer(ev, "userid")
	if !ok {
		return nil
	}
	old := id.name
	id.name = ev.str("newname")
	d.emit(events.NameChange{Meta: d.meta(), Player: id.ref(), OldName: old, NewName: id.name})
	return nil
}

func (d *Decoder) onPlayerTeam(ev gameEvent) error {
	if ev.bool("disconnect") {
		return nil
	}
	id, ok := d.requirePlayer(ev, "userid")
	if !ok {
		return nil
	}
	d.emit(events.TeamAssign{
		Meta:    d.meta(),
		Player:  id.ref(),
		Team:    model.Team(ev.int("team")),
		OldTeam: model.Team(ev.int("oldteam")),
	})
	return nil
}

func (d *Decoder) onBeginNewMatch(gameEvent) error {
	d.warmup = false
	d.emit(events.MatchStart{Meta: d.meta()})
	return nil
}

func (d *Decoder) onWarmupAnnounce(gameEvent) error {
	d.warmup = true
	return nil
}

func (d *Decoder) onMatchStartAnnounce(gameEvent) error {
	d.warmup = false
	return nil
}

func (d *Decoder) onRoundStart(ev gameEvent) error {
	d.emit(events.RoundStart{Meta: d.meta(), TimeLimit: ev.int("timelimit"), Objective: ev.str("objective")})
	return nil
}

func (d *Decoder) onRoundEnd(ev gameEvent) error {
	d.emit(events.RoundEnd{
		Meta:    d.meta(),
		Winner:  model.Team(ev.int("winner")),
		Reason:  ev.int("reason"),
		Message: ev.str("message"),
	})
	return nil
}

func (d *Decoder) onPlayerDeath(ev gameEvent) error {
	victim, ok := d.requirePlayer(ev, "userid")
	if !ok {
		return nil
	}
	// the headshot flag and a head hit group always agree downstream
	hitGroup := model.HitGroup(ev.int("hitgroup"))
	headshot := ev.bool("headshot") || hitGroup == model.HitGroupHead
	if headshot {
		hitGroup = model.HitGroupHead
	}
	d.emit(events.PlayerDeath{
		Meta:          d.meta(),
		Victim:        victim.ref(),
		Attacker:      d.optionalPlayer(ev, "attacker"),
		Assister:      d.optionalPlayer(ev, "assister"),
		Weapon:        events.WeaponName(ev.str("weapon")),
		HitGroup:      hitGroup,
		Headshot:      headshot,
		Penetrated:    ev.int("penetrated"),
		NoScope:       ev.bool("noscope"),
		ThroughSmoke:  ev.bool("thrusmoke"),
		AttackerBlind: ev.bool("attackerblind"),
		AssistedFlash: ev.bool("assistedflash"),
	})
	return nil
}

func (d *Decoder) onPlayerHurt(ev gameEvent) error {
	victim, ok := d.requirePlayer(ev, "userid")
	if !ok {
		return nil
	}
	d.emit(events.PlayerHurt{
		Meta:         d.meta(),
		Victim:       victim.ref(),
		Attacker:     d.optionalPlayer(ev, "attacker"),
		Weapon:       events.WeaponName(ev.str("weapon")),
		HealthDamage: ev.int("dmg_health"),
		ArmorDamage:  ev.int("dmg_armor"),
		Health:       ev.int("health"),
		Armor:        ev.int("armor"),
		HitGroup:     model.HitGroup(ev.int("hitgroup")),
	})
	return nil
}

func (d *Decoder) onPlayerBlind(ev gameEvent) error {
	victim, ok := d.requirePlayer(ev, "userid")
	if !ok {
		return nil
	}
	d.emit(events.PlayerFlashed{
		Meta:          d.meta(),
		Victim:        victim.ref(),
		Attacker:      d.optionalPlayer(ev, "attacker"),
		EntityID:      ev.int("entityid"),
		BlindDuration: ev.float("blind_duration"),
	})
	return nil
}

func (d *Decoder) onGrenadeThrown(ev gameEvent) error {
	g, isGrenade := events.GrenadeFromWeapon(ev.str("weapon"))
	if !isGrenade {
		return nil
	}
	thrower, ok := d.requirePlayer(ev, "userid")
	if !ok {
		return nil
	}
	d.emit(events.GrenadeThrown{Meta: d.meta(), Thrower: thrower.ref(), Grenade: g})
	return nil
}

func detonateHandler(g events.Grenade) eventHandler {
	return func(d *Decoder, ev gameEvent) error {
		d.emit(events.GrenadeDetonated{
			Meta:     d.meta(),
			Thrower:  d.optionalPlayer(ev, "userid"),
			Grenade:  g,
			EntityID: ev.int("entityid"),
		})
		return nil
	}
}

func (d *Decoder) onWeaponFire(ev gameEvent) error {
	shooter, ok := d.requirePlayer(ev, "userid")
	if !ok {
		return nil
	}
	d.emit(events.WeaponFire{Meta: d.meta(), Shooter: shooter.ref(), Weapon: events.WeaponName(ev.str("weapon"))})
	return nil
}

func (d *Decoder) onBombPlanted(ev gameEvent) error {
	p, ok := d.requirePlayer(ev, "userid")
	if !ok {
		return nil
	}
	d.emit(events.BombPlanted{Meta: d.meta(), Player: p.ref(), Site: ev.int("site")})
	return nil
}

func (d *Decoder) onBombDefused(ev gameEvent) error {
	p, ok := d.requirePlayer(ev, "userid")
	if !ok {
		return nil
	}
	d.emit(events.BombDefused{Meta: d.meta(), Player: p.ref(), Site: ev.int("site")})
	return nil
}

func (d *Decoder) onBombExploded(ev gameEvent) error {
	d.emit(events.BombExploded{Meta: d.meta(), Site: ev.int("site")})
	return nil
}

func (d *Decoder) onRoundMVP(ev gameEvent) error {
	p, ok := d.requirePlayer(ev, "userid")
	if !ok {
		return nil
	}
	d.emit(events.RoundMVP{Meta: d.meta(), Player: p.ref(), Reason: ev.int("reason")})
	return nil
}

func (d *Decoder) onPlayerChat(ev gameEvent) error {
	sender, ok := d.requirePlayer(ev, "userid")
	if !ok {
		return nil
	}
	d.emit(events.ChatMessage{
		Meta:    d.meta(),
		Sender:  sender.ref(),
		Text:    strings.TrimSpace(ev.str("text")),
		AllChat: !ev.bool("teamonly"),
	})
	return nil
}
