package net

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceType = "_tutorboard._tcp"

// Advertise announces a hub on port to the LAN. Close the returned server
// to stop.
func Advertise(name string, port int) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("advertise: hostname: %w", err)
	}
	if name == "" {
		name = host
	}
	service, err := mdns.NewMDNSService(name, serviceType, "", "", port, []net.IP{net.ParseIP(OutgoingIP())}, []string{"TutorBoard"})
	if err != nil {
		return nil, fmt.Errorf("advertise: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("advertise: start responder: %w", err)
	}
	return server, nil
}

// Host is a hub found on the LAN.
type Host struct {
	Name string
	Addr string
}

// Browse looks for hubs for up to timeout, or until ctx's deadline, and
// returns what answered.
func Browse(ctx context.Context, timeout time.Duration) ([]Host, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	var hosts []Host
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		seen := map[string]bool{}
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			addr := net.JoinHostPort(e.AddrV4.String(), fmt.Sprint(e.Port))
			if seen[addr] {
				continue
			}
			seen[addr] = true
			hosts = append(hosts, Host{Name: e.Name, Addr: addr})
		}
	}()

	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = timeout
	err := mdns.Query(params)
	close(entries)
	<-collected
	if err != nil {
		return hosts, fmt.Errorf("browse: %w", err)
	}
	return hosts, nil
}
