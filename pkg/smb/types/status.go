package types

import "fmt"

// NTStatus is a 32-bit NT status code. The top two bits give the severity,
// bit 29 marks customer codes, bits 16-27 the facility and the low 16 bits
// the code.
type NTStatus uint32

// Severity is the top two bits of an NTStatus.
type Severity uint8

const (
	SeveritySuccess       Severity = 0
	SeverityInformational Severity = 1
	SeverityWarning       Severity = 2
	SeverityError         Severity = 3
)

func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return "success"
	case SeverityInformational:
		return "informational"
	case SeverityWarning:
		return "warning"
	}
	return "error"
}

// Severity returns the severity class.
func (s NTStatus) Severity() Severity {
	return Severity(s >> 30)
}

// Customer reports whether the customer bit is set.
func (s NTStatus) Customer() bool {
	return s&0x20000000 != 0
}

// Facility returns bits 16-27.
func (s NTStatus) Facility() uint16 {
	return uint16(s>>16) & 0x0FFF
}

// Code returns the low 16 bits.
func (s NTStatus) Code() uint16 {
	return uint16(s)
}

// IsSuccess returns true for success and informational codes
func (s NTStatus) IsSuccess() bool {
	return s.Severity() <= SeverityInformational
}

// IsWarning returns true for warning codes
func (s NTStatus) IsWarning() bool {
	return s.Severity() == SeverityWarning
}

// IsError returns true if the status indicates an error
func (s NTStatus) IsError() bool {
	return s.Severity() == SeverityError
}

// Failed reports whether a response carrying s should be surfaced as a
// failure. Errors always are; warnings are except BUFFER_OVERFLOW, which
// still delivers a usable (truncated) body.
func (s NTStatus) Failed() bool {
	if s.IsError() {
		return true
	}
	return s.IsWarning() && s != StatusBufferOverflow
}

func (s NTStatus) String() string {
	if e, ok := catalog[s]; ok {
		return e.name
	}
	return fmt.Sprintf("STATUS_0x%08X", uint32(s))
}

// StatusCategory groups status codes that callers handle the same way.
type StatusCategory int

const (
	CategoryUnknown StatusCategory = iota
	CategorySuccess
	CategoryPending
	CategoryMoreProcessing
	CategoryNoMoreFiles
	CategoryEndOfFile
	CategoryBufferOverflow
	CategoryNotFound
	CategoryAlreadyExists
	CategoryAccessDenied
	CategoryAuthFailure
	CategoryInvalidParameter
	CategoryInvalidHandle
	CategorySharingViolation
	CategoryNotSupported
	CategoryBadNetworkName
	CategorySessionExpired
	CategoryDiskFull
	CategoryNotEmpty
	CategoryNotADirectory
	CategoryIsADirectory
	CategoryCancelled
	CategoryLocked
	CategoryNetwork
	CategoryPipe
	CategoryInternal
)

var categoryNames = [...]string{
	CategoryUnknown:          "unknown",
	CategorySuccess:          "success",
	CategoryPending:          "pending",
	CategoryMoreProcessing:   "more processing required",
	CategoryNoMoreFiles:      "no more files",
	CategoryEndOfFile:        "end of file",
	CategoryBufferOverflow:   "buffer overflow",
	CategoryNotFound:         "not found",
	CategoryAlreadyExists:    "already exists",
	CategoryAccessDenied:     "access denied",
	CategoryAuthFailure:      "authentication failure",
	CategoryInvalidParameter: "invalid parameter",
	CategoryInvalidHandle:    "invalid handle",
	CategorySharingViolation: "sharing violation",
	CategoryNotSupported:     "not supported",
	CategoryBadNetworkName:   "bad network name",
	CategorySessionExpired:   "session expired",
	CategoryDiskFull:         "disk full",
	CategoryNotEmpty:         "directory not empty",
	CategoryNotADirectory:    "not a directory",
	CategoryIsADirectory:     "is a directory",
	CategoryCancelled:        "cancelled",
	CategoryLocked:           "locked",
	CategoryNetwork:          "network error",
	CategoryPipe:             "pipe error",
	CategoryInternal:         "internal error",
}

func (c StatusCategory) String() string {
	if c >= 0 && int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("StatusCategory(%d)", int(c))
}

// Status codes with a catalog entry.
const (
	StatusSuccess                    NTStatus = 0x00000000
	StatusTimeout                    NTStatus = 0x00000102
	StatusPending                    NTStatus = 0x00000103
	StatusReparse                    NTStatus = 0x00000104
	StatusMoreEntries                NTStatus = 0x00000105
	StatusNotifyCleanup              NTStatus = 0x0000010B
	StatusNotifyEnumDir              NTStatus = 0x0000010C
	StatusBufferOverflow             NTStatus = 0x80000005
	StatusNoMoreFiles                NTStatus = 0x80000006
	StatusDeviceBusy                 NTStatus = 0x80000011
	StatusEAListInconsistent         NTStatus = 0x80000014
	StatusNoMoreEntries              NTStatus = 0x8000001A
	StatusStoppedOnSymlink           NTStatus = 0x8000002D
	StatusUnsuccessful               NTStatus = 0xC0000001
	StatusNotImplemented             NTStatus = 0xC0000002
	StatusInvalidInfoClass           NTStatus = 0xC0000003
	StatusInfoLengthMismatch         NTStatus = 0xC0000004
	StatusAccessViolation            NTStatus = 0xC0000005
	StatusInvalidHandle              NTStatus = 0xC0000008
	StatusInvalidParameter           NTStatus = 0xC000000D
	StatusNoSuchDevice               NTStatus = 0xC000000E
	StatusNoSuchFile                 NTStatus = 0xC000000F
	StatusInvalidDeviceRequest       NTStatus = 0xC0000010
	StatusEndOfFile                  NTStatus = 0xC0000011
	StatusNoMediaInDevice            NTStatus = 0xC0000013
	StatusMoreProcessingReq          NTStatus = 0xC0000016
	StatusNoMemory                   NTStatus = 0xC0000017
	StatusAccessDenied               NTStatus = 0xC0000022
	StatusBufferTooSmall             NTStatus = 0xC0000023
	StatusObjectTypeMismatch         NTStatus = 0xC0000024
	StatusObjectNameInvalid          NTStatus = 0xC0000033
	StatusObjectNameNotFound         NTStatus = 0xC0000034
	StatusObjectNameCollision        NTStatus = 0xC0000035
	StatusObjectPathInvalid          NTStatus = 0xC0000039
	StatusObjectPathNotFound         NTStatus = 0xC000003A
	StatusObjectPathSyntaxBad        NTStatus = 0xC000003B
	StatusSharingViolation           NTStatus = 0xC0000043
	StatusQuotaExceeded              NTStatus = 0xC0000044
	StatusEAsNotSupported            NTStatus = 0xC000004F
	StatusFileLockConflict           NTStatus = 0xC0000054
	StatusLockNotGranted             NTStatus = 0xC0000055
	StatusDeletePending              NTStatus = 0xC0000056
	StatusNoLogonServers             NTStatus = 0xC000005E
	StatusNoSuchLogonSession         NTStatus = 0xC000005F
	StatusPrivilegeNotHeld           NTStatus = 0xC0000061
	StatusInvalidAccountName         NTStatus = 0xC0000062
	StatusNoSuchUser                 NTStatus = 0xC0000064
	StatusWrongPassword              NTStatus = 0xC000006A
	StatusIllFormedPassword          NTStatus = 0xC000006B
	StatusPasswordRestriction        NTStatus = 0xC000006C
	StatusLogonFailure               NTStatus = 0xC000006D
	StatusAccountRestriction         NTStatus = 0xC000006E
	StatusInvalidLogonHours          NTStatus = 0xC000006F
	StatusInvalidWorkstation         NTStatus = 0xC0000070
	StatusPasswordExpired            NTStatus = 0xC0000071
	StatusAccountDisabled            NTStatus = 0xC0000072
	StatusRangeNotLocked             NTStatus = 0xC000007E
	StatusDiskFull                   NTStatus = 0xC000007F
	StatusFileInvalid                NTStatus = 0xC0000098
	StatusInsufficientResources      NTStatus = 0xC000009A
	StatusMediaWriteProtected        NTStatus = 0xC00000A2
	StatusPipeNotAvailable           NTStatus = 0xC00000AC
	StatusInvalidPipeState           NTStatus = 0xC00000AD
	StatusPipeBusy                   NTStatus = 0xC00000AE
	StatusPipeDisconnected           NTStatus = 0xC00000B0
	StatusPipeClosing                NTStatus = 0xC00000B1
	StatusIOTimeout                  NTStatus = 0xC00000B5
	StatusFileForcedClosed           NTStatus = 0xC00000B6
	StatusFileIsADirectory           NTStatus = 0xC00000BA
	StatusNotSupported               NTStatus = 0xC00000BB
	StatusBadNetworkPath             NTStatus = 0xC00000BE
	StatusNetworkBusy                NTStatus = 0xC00000BF
	StatusInvalidNetworkResponse     NTStatus = 0xC00000C3
	StatusUnexpectedNetworkError     NTStatus = 0xC00000C4
	StatusNetworkNameDeleted         NTStatus = 0xC00000C9
	StatusNetworkAccessDenied        NTStatus = 0xC00000CA
	StatusBadNetworkName             NTStatus = 0xC00000CC
	StatusRequestNotAccepted         NTStatus = 0xC00000D0
	StatusNotSameDevice              NTStatus = 0xC00000D4
	StatusFileRenamed                NTStatus = 0xC00000D5
	StatusPipeEmpty                  NTStatus = 0xC00000D9
	StatusInternalError              NTStatus = 0xC00000E5
	StatusDirectoryNotEmpty          NTStatus = 0xC0000101
	StatusNotADirectory              NTStatus = 0xC0000103
	StatusNameTooLong                NTStatus = 0xC0000106
	StatusCancelled                  NTStatus = 0xC0000120
	StatusCannotDelete               NTStatus = 0xC0000121
	StatusFileDeleted                NTStatus = 0xC0000123
	StatusFileClosed                 NTStatus = 0xC0000128
	StatusPipeBroken                 NTStatus = 0xC000014B
	StatusLogonTypeNotGranted        NTStatus = 0xC000015B
	StatusInvalidDeviceState         NTStatus = 0xC0000184
	StatusTrustedRelationshipFailure NTStatus = 0xC000018D
	StatusTrustFailure               NTStatus = 0xC0000190
	StatusNetlogonNotStarted         NTStatus = 0xC0000192
	StatusAccountExpired             NTStatus = 0xC0000193
	StatusNetworkCredentialConflict  NTStatus = 0xC0000195
	StatusUserSessionDeleted         NTStatus = 0xC0000203
	StatusInsuffServerResources      NTStatus = 0xC0000205
	StatusConnectionDisconnected     NTStatus = 0xC000020C
	StatusConnectionReset            NTStatus = 0xC000020D
	StatusPasswordMustChange         NTStatus = 0xC0000224
	StatusNotFound                   NTStatus = 0xC0000225
	StatusAccountLockedOut           NTStatus = 0xC0000234
	StatusConnectionRefused          NTStatus = 0xC0000236
	StatusNetworkUnreachable         NTStatus = 0xC000023C
	StatusHostUnreachable            NTStatus = 0xC000023D
	StatusConnectionAborted          NTStatus = 0xC0000241
	StatusPathNotCovered             NTStatus = 0xC0000257
	StatusVolumeDismounted           NTStatus = 0xC000026E
	StatusNotAReparsePoint           NTStatus = 0xC0000275
	StatusNetworkSessionExpired      NTStatus = 0xC000035C
	StatusDowngradeDetected          NTStatus = 0xC0000388
	StatusServerUnavailable          NTStatus = 0xC0000466
	StatusHashNotSupported           NTStatus = 0xC000A100
	StatusHashNotPresent             NTStatus = 0xC000A101
)

type catalogEntry struct {
	name     string
	category StatusCategory
	desc     string
}

var catalog = map[NTStatus]catalogEntry{
	StatusSuccess:       {"STATUS_SUCCESS", CategorySuccess, "The operation completed successfully"},
	StatusTimeout:       {"STATUS_TIMEOUT", CategorySuccess, "The wait timed out"},
	StatusPending:       {"STATUS_PENDING", CategoryPending, "The operation is in progress"},
	StatusReparse:       {"STATUS_REPARSE", CategorySuccess, "The path must be reparsed"},
	StatusMoreEntries:   {"STATUS_MORE_ENTRIES", CategorySuccess, "More entries are available"},
	StatusNotifyCleanup: {"STATUS_NOTIFY_CLEANUP", CategorySuccess, "The handle was closed while a change notification was pending"},
	StatusNotifyEnumDir: {"STATUS_NOTIFY_ENUM_DIR", CategorySuccess, "Too many changes occurred; enumerate the directory"},

	StatusBufferOverflow:     {"STATUS_BUFFER_OVERFLOW", CategoryBufferOverflow, "The data was too large for the buffer and was truncated"},
	StatusNoMoreFiles:        {"STATUS_NO_MORE_FILES", CategoryNoMoreFiles, "No more files were found"},
	StatusDeviceBusy:         {"STATUS_DEVICE_BUSY", CategoryLocked, "The device is busy"},
	StatusEAListInconsistent: {"STATUS_EA_LIST_INCONSISTENT", CategoryInvalidParameter, "The extended attribute list is inconsistent"},
	StatusNoMoreEntries:      {"STATUS_NO_MORE_ENTRIES", CategoryNoMoreFiles, "No more entries are available"},
	StatusStoppedOnSymlink:   {"STATUS_STOPPED_ON_SYMLINK", CategoryNotSupported, "The create operation stopped after reaching a symbolic link"},

	StatusUnsuccessful:               {"STATUS_UNSUCCESSFUL", CategoryInternal, "The operation failed"},
	StatusNotImplemented:             {"STATUS_NOT_IMPLEMENTED", CategoryNotSupported, "The requested operation is not implemented"},
	StatusInvalidInfoClass:           {"STATUS_INVALID_INFO_CLASS", CategoryInvalidParameter, "Invalid information class"},
	StatusInfoLengthMismatch:         {"STATUS_INFO_LENGTH_MISMATCH", CategoryInvalidParameter, "Information length mismatch"},
	StatusAccessViolation:            {"STATUS_ACCESS_VIOLATION", CategoryInternal, "Access violation"},
	StatusInvalidHandle:              {"STATUS_INVALID_HANDLE", CategoryInvalidHandle, "Invalid handle"},
	StatusInvalidParameter:           {"STATUS_INVALID_PARAMETER", CategoryInvalidParameter, "Invalid parameter"},
	StatusNoSuchDevice:               {"STATUS_NO_SUCH_DEVICE", CategoryNotFound, "File not found"},
	StatusNoSuchFile:                 {"STATUS_NO_SUCH_FILE", CategoryNotFound, "File not found"},
	StatusInvalidDeviceRequest:       {"STATUS_INVALID_DEVICE_REQUEST", CategoryNotSupported, "The request is not valid for this device"},
	StatusEndOfFile:                  {"STATUS_END_OF_FILE", CategoryEndOfFile, "End of file reached"},
	StatusNoMediaInDevice:            {"STATUS_NO_MEDIA_IN_DEVICE", CategoryNotFound, "No media in device"},
	StatusMoreProcessingReq:          {"STATUS_MORE_PROCESSING_REQUIRED", CategoryMoreProcessing, "More processing is required"},
	StatusNoMemory:                   {"STATUS_NO_MEMORY", CategoryInternal, "Not enough memory"},
	StatusAccessDenied:               {"STATUS_ACCESS_DENIED", CategoryAccessDenied, "Access denied"},
	StatusBufferTooSmall:             {"STATUS_BUFFER_TOO_SMALL", CategoryInvalidParameter, "The buffer is too small"},
	StatusObjectTypeMismatch:         {"STATUS_OBJECT_TYPE_MISMATCH", CategoryInvalidParameter, "Object type mismatch"},
	StatusObjectNameInvalid:          {"STATUS_OBJECT_NAME_INVALID", CategoryInvalidParameter, "Invalid file name"},
	StatusObjectNameNotFound:         {"STATUS_OBJECT_NAME_NOT_FOUND", CategoryNotFound, "File not found"},
	StatusObjectNameCollision:        {"STATUS_OBJECT_NAME_COLLISION", CategoryAlreadyExists, "File already exists"},
	StatusObjectPathInvalid:          {"STATUS_OBJECT_PATH_INVALID", CategoryInvalidParameter, "Invalid path"},
	StatusObjectPathNotFound:         {"STATUS_OBJECT_PATH_NOT_FOUND", CategoryNotFound, "Path not found"},
	StatusObjectPathSyntaxBad:        {"STATUS_OBJECT_PATH_SYNTAX_BAD", CategoryInvalidParameter, "Invalid path"},
	StatusSharingViolation:           {"STATUS_SHARING_VIOLATION", CategorySharingViolation, "The file is in use by another process"},
	StatusQuotaExceeded:              {"STATUS_QUOTA_EXCEEDED", CategoryDiskFull, "Quota exceeded"},
	StatusEAsNotSupported:            {"STATUS_EAS_NOT_SUPPORTED", CategoryNotSupported, "Extended attributes are not supported"},
	StatusFileLockConflict:           {"STATUS_FILE_LOCK_CONFLICT", CategoryLocked, "A lock conflicts with the request"},
	StatusLockNotGranted:             {"STATUS_LOCK_NOT_GRANTED", CategoryLocked, "The lock was not granted"},
	StatusDeletePending:              {"STATUS_DELETE_PENDING", CategoryAccessDenied, "The file is pending deletion"},
	StatusNoLogonServers:             {"STATUS_NO_LOGON_SERVERS", CategoryAuthFailure, "No logon servers are available"},
	StatusNoSuchLogonSession:         {"STATUS_NO_SUCH_LOGON_SESSION", CategoryAuthFailure, "The logon session does not exist"},
	StatusPrivilegeNotHeld:           {"STATUS_PRIVILEGE_NOT_HELD", CategoryAccessDenied, "A required privilege is not held"},
	StatusInvalidAccountName:         {"STATUS_INVALID_ACCOUNT_NAME", CategoryAuthFailure, "Invalid account name"},
	StatusNoSuchUser:                 {"STATUS_NO_SUCH_USER", CategoryAuthFailure, "The user does not exist"},
	StatusWrongPassword:              {"STATUS_WRONG_PASSWORD", CategoryAuthFailure, "Wrong password"},
	StatusIllFormedPassword:          {"STATUS_ILL_FORMED_PASSWORD", CategoryAuthFailure, "Ill-formed password"},
	StatusPasswordRestriction:        {"STATUS_PASSWORD_RESTRICTION", CategoryAuthFailure, "Password restriction"},
	StatusLogonFailure:               {"STATUS_LOGON_FAILURE", CategoryAuthFailure, "Logon failure: unknown user name or bad password"},
	StatusAccountRestriction:         {"STATUS_ACCOUNT_RESTRICTION", CategoryAuthFailure, "Account restriction"},
	StatusInvalidLogonHours:          {"STATUS_INVALID_LOGON_HOURS", CategoryAuthFailure, "Logon not permitted at this time"},
	StatusInvalidWorkstation:         {"STATUS_INVALID_WORKSTATION", CategoryAuthFailure, "Logon not permitted from this workstation"},
	StatusPasswordExpired:            {"STATUS_PASSWORD_EXPIRED", CategoryAuthFailure, "Password expired"},
	StatusAccountDisabled:            {"STATUS_ACCOUNT_DISABLED", CategoryAuthFailure, "Account disabled"},
	StatusRangeNotLocked:             {"STATUS_RANGE_NOT_LOCKED", CategoryLocked, "The range is not locked"},
	StatusDiskFull:                   {"STATUS_DISK_FULL", CategoryDiskFull, "Disk full"},
	StatusFileInvalid:                {"STATUS_FILE_INVALID", CategoryInvalidHandle, "The file is no longer valid"},
	StatusInsufficientResources:      {"STATUS_INSUFFICIENT_RESOURCES", CategoryInternal, "Insufficient system resources"},
	StatusMediaWriteProtected:        {"STATUS_MEDIA_WRITE_PROTECTED", CategoryAccessDenied, "The media is write protected"},
	StatusPipeNotAvailable:           {"STATUS_PIPE_NOT_AVAILABLE", CategoryPipe, "No pipe instance is available"},
	StatusInvalidPipeState:           {"STATUS_INVALID_PIPE_STATE", CategoryPipe, "Invalid pipe state"},
	StatusPipeBusy:                   {"STATUS_PIPE_BUSY", CategoryPipe, "All pipe instances are busy"},
	StatusPipeDisconnected:           {"STATUS_PIPE_DISCONNECTED", CategoryPipe, "The pipe is disconnected"},
	StatusPipeClosing:                {"STATUS_PIPE_CLOSING", CategoryPipe, "The pipe is closing"},
	StatusIOTimeout:                  {"STATUS_IO_TIMEOUT", CategoryNetwork, "The I/O operation timed out"},
	StatusFileForcedClosed:           {"STATUS_FILE_FORCED_CLOSED", CategoryInvalidHandle, "The file was forcibly closed"},
	StatusFileIsADirectory:           {"STATUS_FILE_IS_A_DIRECTORY", CategoryIsADirectory, "The file is a directory"},
	StatusNotSupported:               {"STATUS_NOT_SUPPORTED", CategoryNotSupported, "The request is not supported"},
	StatusBadNetworkPath:             {"STATUS_BAD_NETWORK_PATH", CategoryBadNetworkName, "The network path was not found"},
	StatusNetworkBusy:                {"STATUS_NETWORK_BUSY", CategoryNetwork, "The network is busy"},
	StatusInvalidNetworkResponse:     {"STATUS_INVALID_NETWORK_RESPONSE", CategoryNetwork, "Invalid network response"},
	StatusUnexpectedNetworkError:     {"STATUS_UNEXPECTED_NETWORK_ERROR", CategoryNetwork, "Unexpected network error"},
	StatusNetworkNameDeleted:         {"STATUS_NETWORK_NAME_DELETED", CategoryBadNetworkName, "The network name was deleted"},
	StatusNetworkAccessDenied:        {"STATUS_NETWORK_ACCESS_DENIED", CategoryAccessDenied, "Network access denied"},
	StatusBadNetworkName:             {"STATUS_BAD_NETWORK_NAME", CategoryBadNetworkName, "The share does not exist"},
	StatusRequestNotAccepted:         {"STATUS_REQUEST_NOT_ACCEPTED", CategoryNetwork, "No more connections can be made"},
	StatusNotSameDevice:              {"STATUS_NOT_SAME_DEVICE", CategoryInvalidParameter, "Not the same device"},
	StatusFileRenamed:                {"STATUS_FILE_RENAMED", CategoryNotFound, "The file was renamed"},
	StatusPipeEmpty:                  {"STATUS_PIPE_EMPTY", CategoryPipe, "The pipe is empty"},
	StatusInternalError:              {"STATUS_INTERNAL_ERROR", CategoryInternal, "Internal error"},
	StatusDirectoryNotEmpty:          {"STATUS_DIRECTORY_NOT_EMPTY", CategoryNotEmpty, "The directory is not empty"},
	StatusNotADirectory:              {"STATUS_NOT_A_DIRECTORY", CategoryNotADirectory, "Not a directory"},
	StatusNameTooLong:                {"STATUS_NAME_TOO_LONG", CategoryInvalidParameter, "The name is too long"},
	StatusCancelled:                  {"STATUS_CANCELLED", CategoryCancelled, "The operation was cancelled"},
	StatusCannotDelete:               {"STATUS_CANNOT_DELETE", CategoryAccessDenied, "The file cannot be deleted"},
	StatusFileDeleted:                {"STATUS_FILE_DELETED", CategoryNotFound, "The file was deleted"},
	StatusFileClosed:                 {"STATUS_FILE_CLOSED", CategoryInvalidHandle, "The file handle is closed"},
	StatusPipeBroken:                 {"STATUS_PIPE_BROKEN", CategoryPipe, "The pipe is broken"},
	StatusLogonTypeNotGranted:        {"STATUS_LOGON_TYPE_NOT_GRANTED", CategoryAuthFailure, "The requested logon type is not granted"},
	StatusInvalidDeviceState:         {"STATUS_INVALID_DEVICE_STATE", CategoryInternal, "Invalid device state"},
	StatusTrustedRelationshipFailure: {"STATUS_TRUSTED_RELATIONSHIP_FAILURE", CategoryAuthFailure, "The trust relationship failed"},
	StatusTrustFailure:               {"STATUS_TRUST_FAILURE", CategoryAuthFailure, "Trust failure"},
	StatusNetlogonNotStarted:         {"STATUS_NETLOGON_NOT_STARTED", CategoryAuthFailure, "The Netlogon service is not started"},
	StatusAccountExpired:             {"STATUS_ACCOUNT_EXPIRED", CategoryAuthFailure, "Account expired"},
	StatusNetworkCredentialConflict:  {"STATUS_NETWORK_CREDENTIAL_CONFLICT", CategoryAuthFailure, "Conflicting credentials for this server"},
	StatusUserSessionDeleted:         {"STATUS_USER_SESSION_DELETED", CategorySessionExpired, "The user session was deleted"},
	StatusInsuffServerResources:      {"STATUS_INSUFF_SERVER_RESOURCES", CategoryInternal, "Insufficient server resources"},
	StatusConnectionDisconnected:     {"STATUS_CONNECTION_DISCONNECTED", CategoryNetwork, "The connection was disconnected"},
	StatusConnectionReset:            {"STATUS_CONNECTION_RESET", CategoryNetwork, "The connection was reset"},
	StatusPasswordMustChange:         {"STATUS_PASSWORD_MUST_CHANGE", CategoryAuthFailure, "The password must be changed"},
	StatusNotFound:                   {"STATUS_NOT_FOUND", CategoryNotFound, "Not found"},
	StatusAccountLockedOut:           {"STATUS_ACCOUNT_LOCKED_OUT", CategoryAuthFailure, "Account locked out"},
	StatusConnectionRefused:          {"STATUS_CONNECTION_REFUSED", CategoryNetwork, "The connection was refused"},
	StatusNetworkUnreachable:         {"STATUS_NETWORK_UNREACHABLE", CategoryNetwork, "The network is unreachable"},
	StatusHostUnreachable:            {"STATUS_HOST_UNREACHABLE", CategoryNetwork, "The host is unreachable"},
	StatusConnectionAborted:          {"STATUS_CONNECTION_ABORTED", CategoryNetwork, "The connection was aborted"},
	StatusPathNotCovered:             {"STATUS_PATH_NOT_COVERED", CategoryBadNetworkName, "The path is not covered by this DFS server"},
	StatusVolumeDismounted:           {"STATUS_VOLUME_DISMOUNTED", CategoryInvalidHandle, "The volume was dismounted"},
	StatusNotAReparsePoint:           {"STATUS_NOT_A_REPARSE_POINT", CategoryInvalidParameter, "Not a reparse point"},
	StatusNetworkSessionExpired:      {"STATUS_NETWORK_SESSION_EXPIRED", CategorySessionExpired, "The network session expired"},
	StatusDowngradeDetected:          {"STATUS_DOWNGRADE_DETECTED", CategoryAuthFailure, "A protocol downgrade was detected"},
	StatusServerUnavailable:          {"STATUS_SERVER_UNAVAILABLE", CategoryNetwork, "The server is unavailable"},
	StatusHashNotSupported:           {"STATUS_HASH_NOT_SUPPORTED", CategoryNotSupported, "Hash generation is not supported"},
	StatusHashNotPresent:             {"STATUS_HASH_NOT_PRESENT", CategoryNotFound, "The hash is not present"},
}

// StatusInfo is the catalog view of a status code.
type StatusInfo struct {
	Code        NTStatus
	Name        string
	Category    StatusCategory
	Description string
}

// Known reports whether the code has a catalog entry.
func (i StatusInfo) Known() bool {
	return i.Category != CategoryUnknown
}

// LookupStatus maps any 32-bit code to its catalog entry. Codes missing from
// the catalog get CategoryUnknown and a description built from the raw value.
func LookupStatus(code NTStatus) StatusInfo {
	if e, ok := catalog[code]; ok {
		return StatusInfo{Code: code, Name: e.name, Category: e.category, Description: e.desc}
	}
	return StatusInfo{
		Code:        code,
		Name:        code.String(),
		Category:    CategoryUnknown,
		Description: fmt.Sprintf("Unknown status 0x%08X (%s)", uint32(code), code.Severity()),
	}
}

// Info is shorthand for LookupStatus(s).
func (s NTStatus) Info() StatusInfo {
	return LookupStatus(s)
}

// Catalog returns every known status code with its entry.
func Catalog() []StatusInfo {
	out := make([]StatusInfo, 0, len(catalog))
	for code := range catalog {
		out = append(out, LookupStatus(code))
	}
	return out
}
