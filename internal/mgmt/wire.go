// Package mgmt implements the fixed-layout binary management protocol
// (spec §4.3): a 132-byte request frame and command-keyed fixed-size
// response records, carried over loopback TCP on port 8080.
//
// Integers are encoded host-byte-order, the Open Question in spec §9 frozen
// in SPEC_FULL.md to host order to match a co-located reference client.
package mgmt

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Field widths from spec §4.3.
const (
	usernameFieldLen = 64
	passwordFieldLen = 64
	messageFieldLen  = 1024
	maxUsersField    = 10 // mirrors config.MaxUsers
)

// hostEndian is frozen to the running architecture's native order.
var hostEndian = binary.NativeEndian

// Request is the 132-byte fixed request frame: (command, username[64], password[64]).
type Request struct {
	Command  Command
	Username string
	Password string
}

// RequestSize is the wire size of a Request frame.
const RequestSize = 4 + usernameFieldLen + passwordFieldLen

// ReadRequest decodes one fixed-size request frame from r. Any short read
// is a protocol failure that terminates the handler (spec §4.3).
func ReadRequest(r io.Reader) (Request, error) {
	buf := make([]byte, RequestSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Request{}, fmt.Errorf("mgmt: short read on request frame: %w", err)
	}
	req := Request{
		Command:  Command(hostEndian.Uint32(buf[0:4])),
		Username: cstring(buf[4 : 4+usernameFieldLen]),
		Password: cstring(buf[4+usernameFieldLen : 4+usernameFieldLen+passwordFieldLen]),
	}
	return req, nil
}

// WriteRequest encodes a request frame (used by the admin CLI collaborator).
func WriteRequest(w io.Writer, req Request) error {
	buf := make([]byte, RequestSize)
	hostEndian.PutUint32(buf[0:4], uint32(req.Command))
	putCString(buf[4:4+usernameFieldLen], req.Username)
	putCString(buf[4+usernameFieldLen:4+usernameFieldLen+passwordFieldLen], req.Password)
	_, err := w.Write(buf)
	return err
}

// SimpleResponse is (success, message) — 1028 bytes.
type SimpleResponse struct {
	Success bool
	Message string
}

const simpleResponseSize = 4 + messageFieldLen

// UserEntry is one row in a Users response.
type UserEntry struct {
	Username           string
	TotalConnections   uint64
	TotalBytes         uint64
	CurrentConnections int64
}

const userEntrySize = usernameFieldLen + 8 + 8 + 8

// UsersResponse is (success, message, users[MAX_USERS], user_count).
type UsersResponse struct {
	Success   bool
	Message   string
	Users     []UserEntry
	UserCount int32
}

const usersResponseSize = simpleResponseSize + maxUsersField*userEntrySize + 4

// StatsResponse is (success, message, stats, user_count).
type StatsResponse struct {
	Success            bool
	Message            string
	TotalConnections   uint64
	TotalBytes         uint64
	CurrentConnections int64
	CurrentBytes       uint64
	PeakConnections    int64
	StartEpoch         int64
	UserCount          int32
}

const statsResponseSize = simpleResponseSize + 8*5 + 8 + 4

// ConfigResponse is (success, message, timeout_ms, buffer_size, max_clients, dissectors_enabled).
type ConfigResponse struct {
	Success           bool
	Message           string
	TimeoutMS         int32
	BufferSize        int32
	MaxClients        int32
	DissectorsEnabled bool
}

const configResponseSize = simpleResponseSize + 4 + 4 + 4 + 4

// WriteSimpleResponse encodes and writes a SimpleResponse frame.
func WriteSimpleResponse(w io.Writer, r SimpleResponse) error {
	buf := make([]byte, simpleResponseSize)
	putSimple(buf, r.Success, r.Message)
	_, err := w.Write(buf)
	return err
}

// WriteUsersResponse encodes and writes a UsersResponse frame.
func WriteUsersResponse(w io.Writer, r UsersResponse) error {
	buf := make([]byte, usersResponseSize)
	off := putSimple(buf, r.Success, r.Message)

	for i := 0; i < maxUsersField; i++ {
		entryOff := off + i*userEntrySize
		if i < len(r.Users) {
			u := r.Users[i]
			putCString(buf[entryOff:entryOff+usernameFieldLen], u.Username)
			p := entryOff + usernameFieldLen
			hostEndian.PutUint64(buf[p:p+8], u.TotalConnections)
			hostEndian.PutUint64(buf[p+8:p+16], u.TotalBytes)
			hostEndian.PutUint64(buf[p+16:p+24], uint64(u.CurrentConnections))
		}
	}
	off += maxUsersField * userEntrySize
	hostEndian.PutUint32(buf[off:off+4], uint32(r.UserCount))

	_, err := w.Write(buf)
	return err
}

// WriteStatsResponse encodes and writes a StatsResponse frame.
func WriteStatsResponse(w io.Writer, r StatsResponse) error {
	buf := make([]byte, statsResponseSize)
	off := putSimple(buf, r.Success, r.Message)

	hostEndian.PutUint64(buf[off:off+8], r.TotalConnections)
	off += 8
	hostEndian.PutUint64(buf[off:off+8], r.TotalBytes)
	off += 8
	hostEndian.PutUint64(buf[off:off+8], uint64(r.CurrentConnections))
	off += 8
	hostEndian.PutUint64(buf[off:off+8], r.CurrentBytes)
	off += 8
	hostEndian.PutUint64(buf[off:off+8], uint64(r.PeakConnections))
	off += 8
	hostEndian.PutUint64(buf[off:off+8], uint64(r.StartEpoch))
	off += 8
	hostEndian.PutUint32(buf[off:off+4], uint32(r.UserCount))

	_, err := w.Write(buf)
	return err
}

// WriteConfigResponse encodes and writes a ConfigResponse frame.
func WriteConfigResponse(w io.Writer, r ConfigResponse) error {
	buf := make([]byte, configResponseSize)
	off := putSimple(buf, r.Success, r.Message)

	hostEndian.PutUint32(buf[off:off+4], uint32(r.TimeoutMS))
	off += 4
	hostEndian.PutUint32(buf[off:off+4], uint32(r.BufferSize))
	off += 4
	hostEndian.PutUint32(buf[off:off+4], uint32(r.MaxClients))
	off += 4
	var d uint32
	if r.DissectorsEnabled {
		d = 1
	}
	hostEndian.PutUint32(buf[off:off+4], d)

	_, err := w.Write(buf)
	return err
}

// ReadSimpleResponse decodes a SimpleResponse frame, used by the admin CLI.
func ReadSimpleResponse(r io.Reader) (SimpleResponse, error) {
	buf := make([]byte, simpleResponseSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return SimpleResponse{}, fmt.Errorf("mgmt: short read on simple response: %w", err)
	}
	success, message := getSimple(buf)
	return SimpleResponse{Success: success, Message: message}, nil
}

// ReadUsersResponse decodes a UsersResponse frame.
func ReadUsersResponse(r io.Reader) (UsersResponse, error) {
	buf := make([]byte, usersResponseSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return UsersResponse{}, fmt.Errorf("mgmt: short read on users response: %w", err)
	}
	success, message := getSimple(buf)
	off := simpleResponseSize

	count := int32(hostEndian.Uint32(buf[off+maxUsersField*userEntrySize : off+maxUsersField*userEntrySize+4]))
	entries := make([]UserEntry, 0, count)
	for i := 0; i < int(count) && i < maxUsersField; i++ {
		entryOff := off + i*userEntrySize
		p := entryOff + usernameFieldLen
		entries = append(entries, UserEntry{
			Username:           cstring(buf[entryOff : entryOff+usernameFieldLen]),
			TotalConnections:   hostEndian.Uint64(buf[p : p+8]),
			TotalBytes:         hostEndian.Uint64(buf[p+8 : p+16]),
			CurrentConnections: int64(hostEndian.Uint64(buf[p+16 : p+24])),
		})
	}

	return UsersResponse{Success: success, Message: message, Users: entries, UserCount: count}, nil
}

// ReadStatsResponse decodes a StatsResponse frame.
func ReadStatsResponse(r io.Reader) (StatsResponse, error) {
	buf := make([]byte, statsResponseSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return StatsResponse{}, fmt.Errorf("mgmt: short read on stats response: %w", err)
	}
	success, message := getSimple(buf)
	off := simpleResponseSize

	resp := StatsResponse{Success: success, Message: message}
	resp.TotalConnections = hostEndian.Uint64(buf[off : off+8])
	off += 8
	resp.TotalBytes = hostEndian.Uint64(buf[off : off+8])
	off += 8
	resp.CurrentConnections = int64(hostEndian.Uint64(buf[off : off+8]))
	off += 8
	resp.CurrentBytes = hostEndian.Uint64(buf[off : off+8])
	off += 8
	resp.PeakConnections = int64(hostEndian.Uint64(buf[off : off+8]))
	off += 8
	resp.StartEpoch = int64(hostEndian.Uint64(buf[off : off+8]))
	off += 8
	resp.UserCount = int32(hostEndian.Uint32(buf[off : off+4]))

	return resp, nil
}

// ReadConfigResponse decodes a ConfigResponse frame.
func ReadConfigResponse(r io.Reader) (ConfigResponse, error) {
	buf := make([]byte, configResponseSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return ConfigResponse{}, fmt.Errorf("mgmt: short read on config response: %w", err)
	}
	success, message := getSimple(buf)
	off := simpleResponseSize

	resp := ConfigResponse{Success: success, Message: message}
	resp.TimeoutMS = int32(hostEndian.Uint32(buf[off : off+4]))
	off += 4
	resp.BufferSize = int32(hostEndian.Uint32(buf[off : off+4]))
	off += 4
	resp.MaxClients = int32(hostEndian.Uint32(buf[off : off+4]))
	off += 4
	resp.DissectorsEnabled = hostEndian.Uint32(buf[off:off+4]) != 0

	return resp, nil
}

func getSimple(buf []byte) (success bool, message string) {
	success = hostEndian.Uint32(buf[0:4]) != 0
	message = cstring(buf[4 : 4+messageFieldLen])
	return success, message
}

func putSimple(buf []byte, success bool, message string) int {
	var s uint32
	if success {
		s = 1
	}
	hostEndian.PutUint32(buf[0:4], s)
	putCString(buf[4:4+messageFieldLen], message)
	return 4 + messageFieldLen
}

func putCString(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
