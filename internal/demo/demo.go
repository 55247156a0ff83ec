// Package demo reads the CS2 demo container: the file header and the
// sequence of framed, optionally snappy-compressed commands that follow it.
package demo

import "fmt"

// Magic is the 8-byte stamp at the start of every CS2 demo.
const Magic = "PBDEMS2\x00"

// source1Magic marks CS:GO demos, which use a different container.
const source1Magic = "HL2DEMO\x00"

// CommandKind is the EDemoCommands value of a frame.
type CommandKind int32

const (
	CmdStop          CommandKind = 0
	CmdFileHeader    CommandKind = 1
	CmdFileInfo      CommandKind = 2
	CmdSyncTick      CommandKind = 3
	CmdSendTables    CommandKind = 4
	CmdClassInfo     CommandKind = 5
	CmdStringTables  CommandKind = 6
	CmdPacket        CommandKind = 7
	CmdSignonPacket  CommandKind = 8
	CmdConsoleCmd    CommandKind = 9
	CmdCustomData    CommandKind = 10
	CmdUserCmd       CommandKind = 12
	CmdFullPacket    CommandKind = 13
	CmdSaveGame      CommandKind = 14
	CmdSpawnGroups   CommandKind = 15
	CmdAnimationData CommandKind = 16

	// FlagCompressed is OR'ed into the command kind of snappy frames.
	FlagCompressed CommandKind = 64
)

var commandNames = map[CommandKind]string{
	CmdStop:          "stop",
	CmdFileHeader:    "file_header",
	CmdFileInfo:      "file_info",
	CmdSyncTick:      "sync_tick",
	CmdSendTables:    "send_tables",
	CmdClassInfo:     "class_info",
	CmdStringTables:  "string_tables",
	CmdPacket:        "packet",
	CmdSignonPacket:  "signon_packet",
	CmdConsoleCmd:    "console_cmd",
	CmdCustomData:    "custom_data",
	CmdUserCmd:       "user_cmd",
	CmdFullPacket:    "full_packet",
	CmdSaveGame:      "save_game",
	CmdSpawnGroups:   "spawn_groups",
	CmdAnimationData: "animation_data",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return fmt.Sprintf("cmd_%d", int32(k))
}

// Command is one decompressed frame.
type Command struct {
	Kind       CommandKind
	Tick       int
	Compressed bool
	Payload    []byte
}

// Header is the file header: container offsets plus the CDemoFileHeader
// message carried by the first frame.
type Header struct {
	FileInfoOffset    int32
	SpawnGroupsOffset int32

	NetworkProtocol int
	ServerName      string
	ClientName      string
	MapName         string
	GameDirectory   string
	FullpacketsVer  int
	DemoVersionName string
	DemoVersionGUID string
	BuildNum        int
	Game            string
}

// FileInfo is the trailing CDemoFileInfo summary.
type FileInfo struct {
	PlaybackTime   float32
	PlaybackTicks  int
	PlaybackFrames int
}
