package decoder

import (
	"github.com/leighmacdonald/steamid/v4/steamid"

	"github.com/pable/go-cs-demostats/internal/events"
)

type identity struct {
	slot    int
	steamID uint64
	name    string
	bot     bool
}

func (id *identity) ref() events.PlayerRef {
	return events.PlayerRef{SteamID: id.steamID, Name: id.name, Slot: id.slot, Bot: id.bot}
}

// registry maps event userids (player slots) to identities. A slot is
// reused after a disconnect, so lookups always reflect the latest connect.
type registry struct {
	bySlot map[int]*identity
}

func newRegistry() *registry {
	return &registry{bySlot: make(map[int]*identity)}
}

// upsert registers slot. created is false when the slot already held the
// same SteamID.
func (r *registry) upsert(slot int, steamID uint64, name string, bot bool) (id *identity, created bool) {
	id, ok := r.bySlot[slot]
	if !ok || id.steamID != steamID {
		id = &identity{slot: slot, steamID: steamID}
		r.bySlot[slot] = id
		created = true
	}
	if name != "" {
		id.name = name
	}
	id.bot = bot
	return id, created
}

func (r *registry) lookup(slot int) (*identity, bool) {
	id, ok := r.bySlot[slot]
	return id, ok
}

func (r *registry) bySteamID(steamID uint64) (*identity, bool) {
	for _, id := range r.bySlot {
		if id.steamID == steamID {
			return id, true
		}
	}
	return nil, false
}

func (r *registry) remove(slot int) {
	delete(r.bySlot, slot)
}

// botSteamID gives bots a stable per-slot id below any real SteamID64.
func botSteamID(slot int) uint64 {
	return uint64(slot) + 1
}

// resolveSteamID prefers the xuid and falls back to parsing networkid
// ("[U:1:N]" or "STEAM_1:Y:Z"). ok is false when neither yields an id.
func resolveSteamID(xuid uint64, networkID string) (uint64, bool) {
	if xuid != 0 {
		return xuid, true
	}
	if networkID == "" || networkID == "BOT" {
		return 0, false
	}
	sid := steamid.New(networkID)
	if !sid.Valid() {
		return 0, false
	}
	return uint64(sid.Int64()), true
}
