// Package ipc locates the local Unix-socket channel between the tabclip
// daemon and its CLI tools and browser bridge. The daemon listens on the
// socket; copy/status sub-commands probe for it and fall back to a direct
// DevTools connection when it is absent.
package ipc

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
)

// SocketPath returns the platform-appropriate path for the IPC socket.
//
//   - Linux / macOS: $XDG_RUNTIME_DIR/tabclip.sock, else $TMPDIR/tabclip.sock
//     (override with $TABCLIP_SOCKET)
//   - Windows:       \\.\pipe\tabclip      (named pipe — not yet implemented)
func SocketPath() string {
	if s := os.Getenv("TABCLIP_SOCKET"); s != "" {
		return s
	}
	if runtime.GOOS == "windows" {
		return `\\.\pipe\tabclip`
	}
	// Linux: prefer XDG_RUNTIME_DIR, it is per-user and tmpfs-backed.
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "tabclip.sock")
	}
	return filepath.Join(os.TempDir(), "tabclip.sock")
}

// IsRunning reports whether a tabclip daemon appears to be listening on the
// IPC socket. It does a cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	c, err := net.Dial("unix", SocketPath())
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Dial connects to the daemon's IPC socket.
func Dial() (net.Conn, error) {
	return net.Dial("unix", SocketPath())
}

// Listen creates a net.Listener on the IPC socket path, removing any stale
// socket file left behind by a crashed daemon first.
func Listen() (net.Listener, error) {
	path := SocketPath()
	_ = os.Remove(path)
	return net.Listen("unix", path)
}
