package utils

import (
	"fmt"
	"net"
)

// GetOutboundIP returns the preferred local IP, discovered by dialing out.
// No packet is actually sent (UDP).
func GetOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", fmt.Errorf("failed to discover outbound ip: %w", err)
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}
