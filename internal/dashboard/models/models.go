// Package models defines the JSON response types for the dashboard's
// read-only REST API.
package models

import "time"

// StatusResponse is a simple status response, e.g. for GET /health.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CPUStats reports host CPU usage, sampled by gopsutil over a short window.
type CPUStats struct {
	NumCPU      int     `json:"num_cpu"`
	UsedPercent float64 `json:"used_percent"`
	IdlePercent float64 `json:"idle_percent"`
}

// MemoryStats reports host memory usage in megabytes.
type MemoryStats struct {
	TotalMB     float64 `json:"total_mb"`
	FreeMB      float64 `json:"free_mb"`
	UsedMB      float64 `json:"used_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// GlobalStatsResponse mirrors store.GlobalStatsSnapshot for the dashboard.
type GlobalStatsResponse struct {
	TotalConnections   uint64    `json:"total_connections"`
	TotalBytes         uint64    `json:"total_bytes"`
	CurrentConnections int64     `json:"current_connections"`
	CurrentBytes       uint64    `json:"current_bytes"`
	PeakConnections    int64     `json:"peak_connections"`
	StartTime          time.Time `json:"start_time"`
}

// ServerStatsResponse is the response for GET /stats: proxy traffic counters
// plus host resource usage.
type ServerStatsResponse struct {
	Uptime        string              `json:"uptime"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	StartTime     time.Time           `json:"start_time"`
	CPU           CPUStats            `json:"cpu"`
	Memory        MemoryStats         `json:"memory"`
	Proxy         GlobalStatsResponse `json:"proxy"`
}

// UserResponse is one row of GET /users. Password is deliberately omitted.
type UserResponse struct {
	Username              string  `json:"username"`
	TotalConnections      uint64  `json:"total_connections"`
	TotalBytes            uint64  `json:"total_bytes"`
	CurrentConnections    int64   `json:"current_connections"`
	CurrentBytes          uint64  `json:"current_bytes"`
	TotalConnectedSeconds float64 `json:"total_connected_seconds"`
}

// UsersResponse is the response for GET /users.
type UsersResponse struct {
	Users []UserResponse `json:"users"`
	Count int            `json:"count"`
}

// ActivityEventResponse is one row of GET /activity.
type ActivityEventResponse struct {
	ConnID     uint64 `json:"conn_id"`
	OccurredAt string `json:"occurred_at"`
	Event      string `json:"event"`
	Username   string `json:"username,omitempty"`
	PeerAddr   string `json:"peer_addr,omitempty"`
	DestHost   string `json:"dest_host,omitempty"`
	DestPort   int    `json:"dest_port,omitempty"`
	Bytes      uint64 `json:"bytes,omitempty"`
}

// ActivityResponse is the response for GET /activity.
type ActivityResponse struct {
	Events []ActivityEventResponse `json:"events"`
	Count  int                     `json:"count"`
}
