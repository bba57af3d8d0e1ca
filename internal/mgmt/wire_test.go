package mgmt

import (
	"bytes"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	req := Request{Command: CmdAddUser, Username: "alice", Password: "secret"}
	var buf bytes.Buffer
	if err := WriteRequest(&buf, req); err != nil {
		t.Fatalf("WriteRequest: %v", err)
	}
	if buf.Len() != RequestSize {
		t.Fatalf("encoded request size = %d, want %d", buf.Len(), RequestSize)
	}

	got, err := ReadRequest(&buf)
	if err != nil {
		t.Fatalf("ReadRequest: %v", err)
	}
	if got != req {
		t.Fatalf("got %+v, want %+v", got, req)
	}
}

func TestReadRequestShortFails(t *testing.T) {
	buf := bytes.NewBuffer(make([]byte, RequestSize-1))
	if _, err := ReadRequest(buf); err == nil {
		t.Fatal("expected error on short request frame")
	}
}

func TestSimpleResponseSize(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSimpleResponse(&buf, SimpleResponse{Success: true, Message: "ok"}); err != nil {
		t.Fatalf("WriteSimpleResponse: %v", err)
	}
	if buf.Len() != 1028 {
		t.Fatalf("simple response size = %d, want 1028", buf.Len())
	}
}

func TestUsersResponseSize(t *testing.T) {
	var buf bytes.Buffer
	err := WriteUsersResponse(&buf, UsersResponse{
		Success: true,
		Message: "2 users",
		Users: []UserEntry{
			{Username: "alice", TotalConnections: 3, TotalBytes: 100},
			{Username: "bob"},
		},
		UserCount: 2,
	})
	if err != nil {
		t.Fatalf("WriteUsersResponse: %v", err)
	}
	if buf.Len() != usersResponseSize {
		t.Fatalf("users response size = %d, want %d", buf.Len(), usersResponseSize)
	}
}

func TestConfigResponseRoundTripBytes(t *testing.T) {
	var buf bytes.Buffer
	err := WriteConfigResponse(&buf, ConfigResponse{
		Success: true, Message: "ok",
		TimeoutMS: 5000, BufferSize: 8192, MaxClients: 1024, DissectorsEnabled: true,
	})
	if err != nil {
		t.Fatalf("WriteConfigResponse: %v", err)
	}
	if buf.Len() != configResponseSize {
		t.Fatalf("config response size = %d, want %d", buf.Len(), configResponseSize)
	}
}

func TestSimpleResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := SimpleResponse{Success: true, Message: "user \"alice\" added"}
	if err := WriteSimpleResponse(&buf, want); err != nil {
		t.Fatalf("WriteSimpleResponse: %v", err)
	}
	got, err := ReadSimpleResponse(&buf)
	if err != nil {
		t.Fatalf("ReadSimpleResponse: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestUsersResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := UsersResponse{
		Success: true,
		Message: "2 active users",
		Users: []UserEntry{
			{Username: "alice", TotalConnections: 3, TotalBytes: 100, CurrentConnections: 1},
			{Username: "bob", TotalConnections: 0, TotalBytes: 0, CurrentConnections: 0},
		},
		UserCount: 2,
	}
	if err := WriteUsersResponse(&buf, want); err != nil {
		t.Fatalf("WriteUsersResponse: %v", err)
	}
	got, err := ReadUsersResponse(&buf)
	if err != nil {
		t.Fatalf("ReadUsersResponse: %v", err)
	}
	if got.Success != want.Success || got.Message != want.Message || got.UserCount != want.UserCount {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if len(got.Users) != len(want.Users) {
		t.Fatalf("got %d users, want %d", len(got.Users), len(want.Users))
	}
	for i := range want.Users {
		if got.Users[i] != want.Users[i] {
			t.Fatalf("user %d: got %+v, want %+v", i, got.Users[i], want.Users[i])
		}
	}
}

func TestStatsResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := StatsResponse{
		Success: true, Message: "ok",
		TotalConnections: 10, TotalBytes: 2048, CurrentConnections: 2,
		CurrentBytes: 512, PeakConnections: 5, StartEpoch: 1700000000, UserCount: 3,
	}
	if err := WriteStatsResponse(&buf, want); err != nil {
		t.Fatalf("WriteStatsResponse: %v", err)
	}
	got, err := ReadStatsResponse(&buf)
	if err != nil {
		t.Fatalf("ReadStatsResponse: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestConfigResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := ConfigResponse{
		Success: true, Message: "ok",
		TimeoutMS: 5000, BufferSize: 8192, MaxClients: 1024, DissectorsEnabled: true,
	}
	if err := WriteConfigResponse(&buf, want); err != nil {
		t.Fatalf("WriteConfigResponse: %v", err)
	}
	got, err := ReadConfigResponse(&buf)
	if err != nil {
		t.Fatalf("ReadConfigResponse: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
