package demo

// MessageType identifies a net/user/game-event message inside a packet frame.
type MessageType uint32

const (
	MsgServerInfo    MessageType = 40  // svc_ServerInfo
	MsgVoiceData     MessageType = 47  // svc_VoiceData
	MsgSayText2      MessageType = 118 // UM_SayText2
	MsgGameEventList MessageType = 205 // GE_Source1LegacyGameEventList
	MsgGameEvent     MessageType = 207 // GE_Source1LegacyGameEvent
)

// Legacy game event key value types.
const (
	KeyString     = 1
	KeyFloat      = 2
	KeyLong       = 3
	KeyShort      = 4
	KeyByte       = 5
	KeyBool       = 6
	KeyUint64     = 7
	KeyController = 8
	KeyPawn       = 9
)
