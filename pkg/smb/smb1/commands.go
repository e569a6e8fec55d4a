package smb1

import "fmt"

// Command is an SMB1 command code.
type Command uint8

// SMB1 command codes
const (
	CommandCreateDirectory      Command = 0x00
	CommandDeleteDirectory      Command = 0x01
	CommandOpen                 Command = 0x02
	CommandCreate               Command = 0x03
	CommandClose                Command = 0x04
	CommandFlush                Command = 0x05
	CommandDelete               Command = 0x06
	CommandRename               Command = 0x07
	CommandQueryInformation     Command = 0x08
	CommandSetInformation       Command = 0x09
	CommandRead                 Command = 0x0A
	CommandWrite                Command = 0x0B
	CommandLockByteRange        Command = 0x0C
	CommandUnlockByteRange      Command = 0x0D
	CommandCreateTemporary      Command = 0x0E
	CommandCreateNew            Command = 0x0F
	CommandCheckDirectory       Command = 0x10
	CommandProcessExit          Command = 0x11
	CommandSeek                 Command = 0x12
	CommandLockAndRead          Command = 0x13
	CommandWriteAndUnlock       Command = 0x14
	CommandReadRaw              Command = 0x1A
	CommandReadMpx              Command = 0x1B
	CommandReadMpxSecondary     Command = 0x1C
	CommandWriteRaw             Command = 0x1D
	CommandWriteMpx             Command = 0x1E
	CommandWriteMpxSecondary    Command = 0x1F
	CommandWriteComplete        Command = 0x20
	CommandQueryServer          Command = 0x21
	CommandSetInformation2      Command = 0x22
	CommandQueryInformation2    Command = 0x23
	CommandLockingAndX          Command = 0x24
	CommandTrans                Command = 0x25
	CommandTransSecondary       Command = 0x26
	CommandIoctl                Command = 0x27
	CommandIoctlSecondary       Command = 0x28
	CommandCopy                 Command = 0x29
	CommandMove                 Command = 0x2A
	CommandEcho                 Command = 0x2B
	CommandWriteAndClose        Command = 0x2C
	CommandOpenAndX             Command = 0x2D
	CommandReadAndX             Command = 0x2E
	CommandWriteAndX            Command = 0x2F
	CommandNewFileSize          Command = 0x30
	CommandCloseAndTreeDisc     Command = 0x31
	CommandTrans2               Command = 0x32
	CommandTrans2Secondary      Command = 0x33
	CommandFindClose2           Command = 0x34
	CommandFindNotifyClose      Command = 0x35
	CommandTreeConnect          Command = 0x70
	CommandTreeDisconnect       Command = 0x71
	CommandNegotiate            Command = 0x72
	CommandSessionSetupAndX     Command = 0x73
	CommandLogoffAndX           Command = 0x74
	CommandTreeConnectAndX      Command = 0x75
	CommandSecurityPackageAndX  Command = 0x7E
	CommandQueryInformationDisk Command = 0x80
	CommandSearch               Command = 0x81
	CommandFind                 Command = 0x82
	CommandFindUnique           Command = 0x83
	CommandFindClose            Command = 0x84
	CommandNTTransact           Command = 0xA0
	CommandNTTransactSecondary  Command = 0xA1
	CommandNTCreateAndX         Command = 0xA2
	CommandNTCancel             Command = 0xA4
	CommandNTRename             Command = 0xA5
	CommandOpenPrintFile        Command = 0xC0
	CommandWritePrintFile       Command = 0xC1
	CommandClosePrintFile       Command = 0xC2
	CommandGetPrintQueue        Command = 0xC3
	CommandReadBulk             Command = 0xD8
	CommandWriteBulk            Command = 0xD9
	CommandWriteBulkData        Command = 0xDA
	CommandInvalid              Command = 0xFE
	CommandNoAndX               Command = 0xFF
)

var commandNames = map[Command]string{
	CommandCreateDirectory:      "SMB_COM_CREATE_DIRECTORY",
	CommandDeleteDirectory:      "SMB_COM_DELETE_DIRECTORY",
	CommandOpen:                 "SMB_COM_OPEN",
	CommandCreate:               "SMB_COM_CREATE",
	CommandClose:                "SMB_COM_CLOSE",
	CommandFlush:                "SMB_COM_FLUSH",
	CommandDelete:               "SMB_COM_DELETE",
	CommandRename:               "SMB_COM_RENAME",
	CommandQueryInformation:     "SMB_COM_QUERY_INFORMATION",
	CommandSetInformation:       "SMB_COM_SET_INFORMATION",
	CommandRead:                 "SMB_COM_READ",
	CommandWrite:                "SMB_COM_WRITE",
	CommandLockByteRange:        "SMB_COM_LOCK_BYTE_RANGE",
	CommandUnlockByteRange:      "SMB_COM_UNLOCK_BYTE_RANGE",
	CommandCreateTemporary:      "SMB_COM_CREATE_TEMPORARY",
	CommandCreateNew:            "SMB_COM_CREATE_NEW",
	CommandCheckDirectory:       "SMB_COM_CHECK_DIRECTORY",
	CommandProcessExit:          "SMB_COM_PROCESS_EXIT",
	CommandSeek:                 "SMB_COM_SEEK",
	CommandLockAndRead:          "SMB_COM_LOCK_AND_READ",
	CommandWriteAndUnlock:       "SMB_COM_WRITE_AND_UNLOCK",
	CommandReadRaw:              "SMB_COM_READ_RAW",
	CommandReadMpx:              "SMB_COM_READ_MPX",
	CommandReadMpxSecondary:     "SMB_COM_READ_MPX_SECONDARY",
	CommandWriteRaw:             "SMB_COM_WRITE_RAW",
	CommandWriteMpx:             "SMB_COM_WRITE_MPX",
	CommandWriteMpxSecondary:    "SMB_COM_WRITE_MPX_SECONDARY",
	CommandWriteComplete:        "SMB_COM_WRITE_COMPLETE",
	CommandQueryServer:          "SMB_COM_QUERY_SERVER",
	CommandSetInformation2:      "SMB_COM_SET_INFORMATION2",
	CommandQueryInformation2:    "SMB_COM_QUERY_INFORMATION2",
	CommandLockingAndX:          "SMB_COM_LOCKING_ANDX",
	CommandTrans:                "SMB_COM_TRANSACTION",
	CommandTransSecondary:       "SMB_COM_TRANSACTION_SECONDARY",
	CommandIoctl:                "SMB_COM_IOCTL",
	CommandIoctlSecondary:       "SMB_COM_IOCTL_SECONDARY",
	CommandCopy:                 "SMB_COM_COPY",
	CommandMove:                 "SMB_COM_MOVE",
	CommandEcho:                 "SMB_COM_ECHO",
	CommandWriteAndClose:        "SMB_COM_WRITE_AND_CLOSE",
	CommandOpenAndX:             "SMB_COM_OPEN_ANDX",
	CommandReadAndX:             "SMB_COM_READ_ANDX",
	CommandWriteAndX:            "SMB_COM_WRITE_ANDX",
	CommandNewFileSize:          "SMB_COM_NEW_FILE_SIZE",
	CommandCloseAndTreeDisc:     "SMB_COM_CLOSE_AND_TREE_DISC",
	CommandTrans2:               "SMB_COM_TRANSACTION2",
	CommandTrans2Secondary:      "SMB_COM_TRANSACTION2_SECONDARY",
	CommandFindClose2:           "SMB_COM_FIND_CLOSE2",
	CommandFindNotifyClose:      "SMB_COM_FIND_NOTIFY_CLOSE",
	CommandTreeConnect:          "SMB_COM_TREE_CONNECT",
	CommandTreeDisconnect:       "SMB_COM_TREE_DISCONNECT",
	CommandNegotiate:            "SMB_COM_NEGOTIATE",
	CommandSessionSetupAndX:     "SMB_COM_SESSION_SETUP_ANDX",
	CommandLogoffAndX:           "SMB_COM_LOGOFF_ANDX",
	CommandTreeConnectAndX:      "SMB_COM_TREE_CONNECT_ANDX",
	CommandSecurityPackageAndX:  "SMB_COM_SECURITY_PACKAGE_ANDX",
	CommandQueryInformationDisk: "SMB_COM_QUERY_INFORMATION_DISK",
	CommandSearch:               "SMB_COM_SEARCH",
	CommandFind:                 "SMB_COM_FIND",
	CommandFindUnique:           "SMB_COM_FIND_UNIQUE",
	CommandFindClose:            "SMB_COM_FIND_CLOSE",
	CommandNTTransact:           "SMB_COM_NT_TRANSACT",
	CommandNTTransactSecondary:  "SMB_COM_NT_TRANSACT_SECONDARY",
	CommandNTCreateAndX:         "SMB_COM_NT_CREATE_ANDX",
	CommandNTCancel:             "SMB_COM_NT_CANCEL",
	CommandNTRename:             "SMB_COM_NT_RENAME",
	CommandOpenPrintFile:        "SMB_COM_OPEN_PRINT_FILE",
	CommandWritePrintFile:       "SMB_COM_WRITE_PRINT_FILE",
	CommandClosePrintFile:       "SMB_COM_CLOSE_PRINT_FILE",
	CommandGetPrintQueue:        "SMB_COM_GET_PRINT_QUEUE",
	CommandReadBulk:             "SMB_COM_READ_BULK",
	CommandWriteBulk:            "SMB_COM_WRITE_BULK",
	CommandWriteBulkData:        "SMB_COM_WRITE_BULK_DATA",
	CommandInvalid:              "SMB_COM_INVALID",
	CommandNoAndX:               "SMB_COM_NO_ANDX_COMMAND",
}

// Valid reports whether c is a defined command code.
func (c Command) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("SMB_COM(0x%02X)", uint8(c))
}
