//go:build windows

package shutdown

import "os"

// SIGTERM does not exist on Windows.
var signals = []os.Signal{os.Interrupt}
