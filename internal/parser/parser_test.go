package parser

import (
	"testing"

	common "github.com/markus-wa/demoinfocs-golang/v4/pkg/demoinfocs/common"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-demostats/internal/events"
	"github.com/pable/go-cs-demostats/internal/model"
)

func TestRefUsesSlotIDForBots(t *testing.T) {
	human := &common.Player{SteamID64: 76561198000000001, UserID: 3, Name: "alice"}
	require.Equal(t, events.PlayerRef{SteamID: 76561198000000001, Name: "alice", Slot: 3}, ref(human))

	bot := &common.Player{UserID: 6, Name: "BOT Ringo", IsBot: true}
	r := ref(bot)
	require.Equal(t, uint64(7), r.SteamID)
	require.True(t, r.Bot)

	require.Nil(t, optionalRef(nil))
}

func TestWeaponName(t *testing.T) {
	require.Equal(t, "world", weaponName(nil))
	require.Equal(t, "flashbang", weaponName(&common.Equipment{Type: common.EqFlash}))
	require.Equal(t, "molotov", weaponName(&common.Equipment{Type: common.EqIncendiary}))
	require.Equal(t, common.EqAK47.String(), weaponName(&common.Equipment{Type: common.EqAK47}))
}

func TestTeamFromCommon(t *testing.T) {
	require.Equal(t, model.TeamT, teamFromCommon(common.TeamTerrorists))
	require.Equal(t, model.TeamCT, teamFromCommon(common.TeamCounterTerrorists))
	require.Equal(t, model.TeamSpectators, teamFromCommon(common.TeamSpectators))
	require.Equal(t, model.TeamUnknown, teamFromCommon(common.TeamUnassigned))
}

func TestGrenadeFromCommon(t *testing.T) {
	g, ok := grenadeFromCommon(common.EqSmoke)
	require.True(t, ok)
	require.Equal(t, events.GrenadeSmoke, g)

	_, ok = grenadeFromCommon(common.EqKnife)
	require.False(t, ok)
}
