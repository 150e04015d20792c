package net

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// LinkScheme prefixes share links handed to guests.
const LinkScheme = "tutorboard://"

// OutgoingIP finds the address other machines on the LAN can reach this
// host on. No packet is sent.
func OutgoingIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		// offline networks: take the first usable interface address
		return firstIPv4().String()
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String()
}

func firstIPv4() net.IP {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	return net.IPv4(127, 0, 0, 1)
}

// ShareLink builds the link a guest opens to join the host at ip:port.
func ShareLink(ip string, port int) string {
	return LinkScheme + net.JoinHostPort(ip, strconv.Itoa(port))
}

// ParseShareLink accepts a share link or a bare host:port and returns
// host:port.
func ParseShareLink(link string) (string, error) {
	addr := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(link), LinkScheme), "/")
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("share link %q: %w", link, err)
	}
	if host == "" {
		return "", fmt.Errorf("share link %q: missing host", link)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("share link %q: bad port %q", link, port)
	}
	return addr, nil
}
