package mgmt

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/kestrelnet/socks5gate/internal/config"
	"github.com/kestrelnet/socks5gate/internal/store"
)

// Handler dispatches one decoded request against the shared store and
// writes the command-keyed response frame. A Handler never touches another
// connection's state except through Store's mutex-guarded operations —
// spec §4.7: "A task never touches another task's state except through A's
// mutex-guarded operations and B's file write."
type Handler struct {
	Store  *store.Store
	Logger *slog.Logger

	// OnMutation is called after a request changes runtime state (user
	// table or runtime config), letting callers mirror the change into the
	// audit trail or dashboard without coupling this package to them.
	OnMutation func(cmd Command)
}

// Handle decodes nothing further (req is already decoded) and writes the
// command-specific response to w.
func (h *Handler) Handle(w io.Writer, req Request) error {
	if h.Logger != nil {
		h.Logger.Debug("mgmt command", "command", req.Command.String())
	}

	switch req.Command {
	case CmdAddUser:
		return h.handleAddUser(w, req)
	case CmdDelUser:
		return h.handleDelUser(w, req)
	case CmdListUsers:
		return h.handleListUsers(w)
	case CmdStats:
		return h.handleStats(w)
	case CmdSetTimeout:
		return h.handleSetTimeout(w, req)
	case CmdSetBuffer:
		return h.handleSetBuffer(w, req)
	case CmdSetMaxClients:
		return h.handleSetMaxClients(w, req)
	case CmdEnableDissectors:
		return h.handleSetDissectors(w, true)
	case CmdDisableDissectors:
		return h.handleSetDissectors(w, false)
	case CmdReloadConfig:
		return h.handleReloadConfig(w)
	case CmdGetConfig:
		return h.handleGetConfig(w)
	default:
		return WriteSimpleResponse(w, SimpleResponse{Success: false, Message: "unknown command"})
	}
}

func (h *Handler) handleAddUser(w io.Writer, req Request) error {
	if req.Username == "" || len(req.Username) > 63 || len(req.Password) > 63 {
		return WriteSimpleResponse(w, SimpleResponse{Success: false, Message: "invalid username or password"})
	}
	if err := h.Store.AddUser(req.Username, req.Password); err != nil {
		return WriteSimpleResponse(w, SimpleResponse{Success: false, Message: err.Error()})
	}
	h.notify(req.Command)
	return WriteSimpleResponse(w, SimpleResponse{Success: true, Message: fmt.Sprintf("user %q added", req.Username)})
}

func (h *Handler) handleDelUser(w io.Writer, req Request) error {
	if err := h.Store.DeleteUser(req.Username); err != nil {
		return WriteSimpleResponse(w, SimpleResponse{Success: false, Message: err.Error()})
	}
	h.notify(req.Command)
	return WriteSimpleResponse(w, SimpleResponse{Success: true, Message: fmt.Sprintf("user %q deleted", req.Username)})
}

func (h *Handler) handleListUsers(w io.Writer) error {
	users := h.Store.ListActiveUsers()
	entries := make([]UserEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, UserEntry{
			Username:           u.Username,
			TotalConnections:   u.Stats.TotalConnections,
			TotalBytes:         u.Stats.TotalBytes,
			CurrentConnections: u.Stats.CurrentConnections,
		})
	}
	return WriteUsersResponse(w, UsersResponse{
		Success:   true,
		Message:   fmt.Sprintf("%d active users", len(entries)),
		Users:     entries,
		UserCount: int32(len(entries)),
	})
}

func (h *Handler) handleStats(w io.Writer) error {
	snap := h.Store.GlobalSnapshot()
	return WriteStatsResponse(w, StatsResponse{
		Success:            true,
		Message:            "ok",
		TotalConnections:   snap.TotalConnections,
		TotalBytes:         snap.TotalBytes,
		CurrentConnections: snap.CurrentConnections,
		CurrentBytes:       snap.CurrentBytes,
		PeakConnections:    snap.PeakConnections,
		StartEpoch:         snap.StartTime.Unix(),
		UserCount:          int32(len(h.Store.ListActiveUsers())),
	})
}

func (h *Handler) handleSetTimeout(w io.Writer, req Request) error {
	v, err := parsePositiveArg(req.Username)
	if err != nil {
		return WriteSimpleResponse(w, SimpleResponse{Success: false, Message: err.Error()})
	}
	h.Store.Runtime.SetTimeoutMS(v)
	h.notify(req.Command)
	return WriteSimpleResponse(w, SimpleResponse{Success: true, Message: "timeout updated"})
}

func (h *Handler) handleSetBuffer(w io.Writer, req Request) error {
	v, err := parsePositiveArg(req.Username)
	if err != nil {
		return WriteSimpleResponse(w, SimpleResponse{Success: false, Message: err.Error()})
	}
	if v < config.MinBufferSize || v > config.MaxBufferCapacity {
		msg := fmt.Sprintf("buffer size must be between %d and %d", config.MinBufferSize, config.MaxBufferCapacity)
		return WriteSimpleResponse(w, SimpleResponse{Success: false, Message: msg})
	}
	h.Store.Runtime.SetBufferSize(v)
	h.notify(req.Command)
	return WriteSimpleResponse(w, SimpleResponse{Success: true, Message: "buffer size updated"})
}

func (h *Handler) handleSetMaxClients(w io.Writer, req Request) error {
	v, err := parsePositiveArg(req.Username)
	if err != nil {
		return WriteSimpleResponse(w, SimpleResponse{Success: false, Message: err.Error()})
	}
	h.Store.Runtime.SetMaxClients(v)
	h.notify(req.Command)
	return WriteSimpleResponse(w, SimpleResponse{Success: true, Message: "max clients updated"})
}

func (h *Handler) handleSetDissectors(w io.Writer, enabled bool) error {
	h.Store.Runtime.SetDissectorsEnabled(enabled)
	msg := "dissectors disabled"
	cmd := CmdDisableDissectors
	if enabled {
		msg = "dissectors enabled"
		cmd = CmdEnableDissectors
	}
	h.notify(cmd)
	return WriteSimpleResponse(w, SimpleResponse{Success: true, Message: msg})
}

func (h *Handler) handleReloadConfig(w io.Writer) error {
	h.notify(CmdReloadConfig)
	return WriteSimpleResponse(w, SimpleResponse{Success: true, Message: "config reloaded"})
}

func (h *Handler) handleGetConfig(w io.Writer) error {
	rc := h.Store.Runtime
	return WriteConfigResponse(w, ConfigResponse{
		Success:           true,
		Message:           "ok",
		TimeoutMS:         int32(rc.TimeoutMS()),
		BufferSize:        int32(rc.BufferSize()),
		MaxClients:        int32(rc.MaxClients()),
		DissectorsEnabled: rc.DissectorsEnabled(),
	})
}

func (h *Handler) notify(cmd Command) {
	if h.OnMutation != nil {
		h.OnMutation(cmd)
	}
}

func parsePositiveArg(raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric argument %q", raw)
	}
	if v <= 0 {
		return 0, fmt.Errorf("argument must be positive, got %d", v)
	}
	return v, nil
}
