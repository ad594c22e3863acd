// File: protocol/handshake_serializer.go
// Package protocol
// Helpers serializing the HTTP side of the WebSocket handshake.
package protocol

import (
	"fmt"
	"io"
	"net/http"
)

// WriteHandshakeResponse writes the 101 status line and hdr to w.
func WriteHandshakeResponse(w io.Writer, hdr http.Header) error {
	if _, err := fmt.Fprintf(w, "HTTP/1.1 101 Switching Protocols\r\n"); err != nil {
		return err
	}
	for k, vs := range hdr {
		for _, v := range vs {
			if _, err := fmt.Fprintf(w, "%s: %s\r\n", k, v); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprint(w, "\r\n")
	return err
}

// WriteHandshakeError rejects a failed upgrade with a plain HTTP status.
func WriteHandshakeError(w io.Writer, status int, reason error) error {
	body := reason.Error()
	_, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\nContent-Type: text/plain\r\nContent-Length: %d\r\nConnection: close\r\n%s\r\n%s",
		status, http.StatusText(status), len(body), versionHeader(status), body)
	return err
}

func versionHeader(status int) string {
	if status == http.StatusUpgradeRequired {
		return HeaderSecWebSocketVer + ": " + RequiredWebSocketVersion + "\r\n"
	}
	return ""
}
