package gateway

import "errors"

var errNotSyscallConn = errors.New("gateway: connection does not expose a raw file descriptor")
