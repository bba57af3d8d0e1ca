package mgmt

// Command is the management protocol's u32 command tag (spec §4.3).
type Command uint32

// Commands, in the order spec §4.3 defines them.
const (
	CmdAddUser Command = iota
	CmdDelUser
	CmdListUsers
	CmdStats
	CmdSetTimeout
	CmdSetBuffer
	CmdSetMaxClients
	CmdEnableDissectors
	CmdDisableDissectors
	CmdReloadConfig
	CmdGetConfig
)

// String renders the command name for logging.
func (c Command) String() string {
	switch c {
	case CmdAddUser:
		return "ADD_USER"
	case CmdDelUser:
		return "DEL_USER"
	case CmdListUsers:
		return "LIST_USERS"
	case CmdStats:
		return "STATS"
	case CmdSetTimeout:
		return "SET_TIMEOUT"
	case CmdSetBuffer:
		return "SET_BUFFER"
	case CmdSetMaxClients:
		return "SET_MAX_CLIENTS"
	case CmdEnableDissectors:
		return "ENABLE_DISSECTORS"
	case CmdDisableDissectors:
		return "DISABLE_DISSECTORS"
	case CmdReloadConfig:
		return "RELOAD_CONFIG"
	case CmdGetConfig:
		return "GET_CONFIG"
	default:
		return "UNKNOWN"
	}
}
