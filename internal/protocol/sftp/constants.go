package sftp

// ProtocolVersion is the SFTP protocol version served. Version 3 is what
// sshfs and the OpenSSH client speak.
const ProtocolVersion = 3

// Packet types, draft-ietf-secsh-filexfer-02 section 3.
const (
	PacketInit     = 1
	PacketVersion  = 2
	PacketOpen     = 3
	PacketClose    = 4
	PacketRead     = 5
	PacketWrite    = 6
	PacketLstat    = 7
	PacketFstat    = 8
	PacketSetstat  = 9
	PacketFsetstat = 10
	PacketOpendir  = 11
	PacketReaddir  = 12
	PacketRemove   = 13
	PacketMkdir    = 14
	PacketRmdir    = 15
	PacketRealpath = 16
	PacketStat     = 17
	PacketRename   = 18
	PacketReadlink = 19
	PacketSymlink  = 20

	PacketStatus        = 101
	PacketHandle        = 102
	PacketData          = 103
	PacketName          = 104
	PacketAttrs         = 105
	PacketExtended      = 200
	PacketExtendedReply = 201
)

// Status codes carried in SSH_FXP_STATUS replies.
const (
	StatusOK               = 0
	StatusEOF              = 1
	StatusNoSuchFile       = 2
	StatusPermissionDenied = 3
	StatusFailure          = 4
	StatusBadMessage       = 5
	StatusNoConnection     = 6
	StatusConnectionLost   = 7
	StatusOpUnsupported    = 8
)

// Open flags (pflags) of SSH_FXP_OPEN.
const (
	FlagRead   = 0x00000001
	FlagWrite  = 0x00000002
	FlagAppend = 0x00000004
	FlagCreate = 0x00000008
	FlagTrunc  = 0x00000010
	FlagExcl   = 0x00000020
)

// Attribute presence flags.
const (
	AttrSize        = 0x00000001
	AttrUIDGID      = 0x00000002
	AttrPermissions = 0x00000004
	AttrAcModTime   = 0x00000008
	AttrExtended    = 0x80000000
)

// File type bits carried in the permissions field.
const (
	ModeIFDIR = 0x4000
	ModeIFREG = 0x8000
	ModeIFLNK = 0xA000
)

// Extended request methods understood by the server.
const (
	ExtensionHardlink    = "hardlink@openssh.com"
	ExtensionPosixRename = "posix-rename@openssh.com"
)

var packetNames = map[uint8]string{
	PacketInit:     "INIT",
	PacketVersion:  "VERSION",
	PacketOpen:     "OPEN",
	PacketClose:    "CLOSE",
	PacketRead:     "READ",
	PacketWrite:    "WRITE",
	PacketLstat:    "LSTAT",
	PacketFstat:    "FSTAT",
	PacketSetstat:  "SETSTAT",
	PacketFsetstat: "FSETSTAT",
	PacketOpendir:  "OPENDIR",
	PacketReaddir:  "READDIR",
	PacketRemove:   "REMOVE",
	PacketMkdir:    "MKDIR",
	PacketRmdir:    "RMDIR",
	PacketRealpath: "REALPATH",
	PacketStat:     "STAT",
	PacketRename:   "RENAME",
	PacketReadlink: "READLINK",
	PacketSymlink:  "SYMLINK",
	PacketExtended: "EXTENDED",
}

// PacketTypeName returns a printable name for a packet type, for logs and metrics.
func PacketTypeName(t uint8) string {
	if name, ok := packetNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}
