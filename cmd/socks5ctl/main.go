// Command socks5ctl is the administrative client for the proxy's
// management plane: it connects over TCP, sends one fixed-size request
// frame, and prints the command-keyed response. Grounded on
// original_source/src/client.c's exit-message convention (✓/✗) and flag
// table (§6/§7 of the design), reimplemented with Go's flag package in the
// style of the teacher's cmd binaries.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/kestrelnet/socks5gate/internal/mgmt"
)

const dialTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:8080", "management server address")
	addUser := flag.String("u", "", "add a user (format: user:password)")
	delUser := flag.String("d", "", "delete a user")
	listUsers := flag.Bool("l", false, "list configured users")
	stats := flag.Bool("s", false, "show proxy statistics")
	setTimeout := flag.String("t", "", "set connection timeout (ms)")
	setBuffer := flag.String("b", "", "set buffer size (bytes)")
	setMaxClients := flag.String("m", "", "set maximum number of clients")
	enableDissectors := flag.Bool("e", false, "enable protocol dissectors")
	disableDissectors := flag.Bool("x", false, "disable protocol dissectors")
	reloadConfig := flag.Bool("r", false, "reload configuration")
	showConfig := flag.Bool("c", false, "show current server configuration")
	flag.Parse()

	switch {
	case *addUser != "":
		user, pass, ok := splitUserPass(*addUser)
		if !ok {
			fmt.Println("✗ invalid format for user, use user:password")
			return 1
		}
		return doSimple(*addr, mgmt.CmdAddUser, user, pass)
	case *delUser != "":
		return doSimple(*addr, mgmt.CmdDelUser, *delUser, "")
	case *listUsers:
		return doListUsers(*addr)
	case *stats:
		return doStats(*addr)
	case *setTimeout != "":
		return doSimple(*addr, mgmt.CmdSetTimeout, *setTimeout, "")
	case *setBuffer != "":
		return doSimple(*addr, mgmt.CmdSetBuffer, *setBuffer, "")
	case *setMaxClients != "":
		return doSimple(*addr, mgmt.CmdSetMaxClients, *setMaxClients, "")
	case *enableDissectors:
		return doSimple(*addr, mgmt.CmdEnableDissectors, "", "")
	case *disableDissectors:
		return doSimple(*addr, mgmt.CmdDisableDissectors, "", "")
	case *reloadConfig:
		return doSimple(*addr, mgmt.CmdReloadConfig, "", "")
	case *showConfig:
		return doShowConfig(*addr)
	default:
		flag.Usage()
		return 0
	}
}

func splitUserPass(s string) (user, pass string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func dial(addr string) (net.Conn, error) {
	return net.DialTimeout("tcp", addr, dialTimeout)
}

func doSimple(addr string, cmd mgmt.Command, username, password string) int {
	conn, err := dial(addr)
	if err != nil {
		fmt.Printf("✗ could not connect to management server at %s\n", addr)
		return 1
	}
	defer conn.Close()

	if err := mgmt.WriteRequest(conn, mgmt.Request{Command: cmd, Username: username, Password: password}); err != nil {
		fmt.Println("✗ could not send command to management server")
		return 1
	}

	resp, err := mgmt.ReadSimpleResponse(conn)
	if err != nil {
		fmt.Println("✗ could not receive response from management server")
		return 1
	}

	if resp.Success {
		fmt.Printf("✓ %s\n", resp.Message)
		return 0
	}
	fmt.Printf("✗ %s\n", resp.Message)
	return 1
}

func doListUsers(addr string) int {
	conn, err := dial(addr)
	if err != nil {
		fmt.Printf("✗ could not connect to management server at %s\n", addr)
		return 1
	}
	defer conn.Close()

	if err := mgmt.WriteRequest(conn, mgmt.Request{Command: mgmt.CmdListUsers}); err != nil {
		fmt.Println("✗ could not send command to management server")
		return 1
	}

	resp, err := mgmt.ReadUsersResponse(conn)
	if err != nil {
		fmt.Println("✗ could not receive response from management server")
		return 1
	}

	if !resp.Success {
		fmt.Printf("✗ %s\n", resp.Message)
		return 1
	}

	fmt.Printf("Configured users (%d):\n", resp.UserCount)
	if len(resp.Users) == 0 {
		fmt.Println("  (no users configured)")
		return 0
	}
	for _, u := range resp.Users {
		fmt.Printf("  - %s (connections: %d, bytes: %d, current: %d)\n",
			u.Username, u.TotalConnections, u.TotalBytes, u.CurrentConnections)
	}
	return 0
}

func doStats(addr string) int {
	conn, err := dial(addr)
	if err != nil {
		fmt.Printf("✗ could not connect to management server at %s\n", addr)
		return 1
	}
	defer conn.Close()

	if err := mgmt.WriteRequest(conn, mgmt.Request{Command: mgmt.CmdStats}); err != nil {
		fmt.Println("✗ could not send command to management server")
		return 1
	}

	resp, err := mgmt.ReadStatsResponse(conn)
	if err != nil {
		fmt.Println("✗ could not receive response from management server")
		return 1
	}

	if !resp.Success {
		fmt.Printf("✗ %s\n", resp.Message)
		return 1
	}

	fmt.Println("PROXY STATISTICS")
	fmt.Printf("  total connections:     %d\n", resp.TotalConnections)
	fmt.Printf("  current connections:   %d\n", resp.CurrentConnections)
	fmt.Printf("  peak connections:      %d\n", resp.PeakConnections)
	fmt.Printf("  total bytes:           %d\n", resp.TotalBytes)
	fmt.Printf("  current bytes:         %d\n", resp.CurrentBytes)
	fmt.Printf("  configured users:      %d\n", resp.UserCount)
	if resp.StartEpoch > 0 {
		uptime := time.Since(time.Unix(resp.StartEpoch, 0))
		fmt.Printf("  uptime:                %s\n", uptime.Round(time.Second))
	}
	if resp.TotalConnections > 0 {
		avg := resp.TotalBytes / resp.TotalConnections
		fmt.Printf("  average per connection: %d bytes\n", avg)
	}
	return 0
}

func doShowConfig(addr string) int {
	conn, err := dial(addr)
	if err != nil {
		fmt.Printf("✗ could not connect to management server at %s\n", addr)
		return 1
	}
	defer conn.Close()

	if err := mgmt.WriteRequest(conn, mgmt.Request{Command: mgmt.CmdGetConfig}); err != nil {
		fmt.Println("✗ could not send command to management server")
		return 1
	}

	resp, err := mgmt.ReadConfigResponse(conn)
	if err != nil {
		fmt.Println("✗ could not receive response from management server")
		return 1
	}

	if !resp.Success {
		fmt.Printf("✗ %s\n", resp.Message)
		return 1
	}

	fmt.Println("CURRENT SERVER CONFIGURATION")
	fmt.Printf("  connection timeout: %d ms\n", resp.TimeoutMS)
	fmt.Printf("  buffer size:        %d bytes\n", resp.BufferSize)
	fmt.Printf("  maximum clients:    %d\n", resp.MaxClients)
	dissectors := "disabled"
	if resp.DissectorsEnabled {
		dissectors = "enabled"
	}
	fmt.Printf("  protocol dissectors: %s\n", dissectors)
	return 0
}
