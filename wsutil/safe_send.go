package wsutil

import "log/slog"

// SafeSend delivers data to a client send channel without blocking the game
// loop. A full channel drops the message; a closed channel is recovered and
// logged.
func SafeSend(ch chan []byte, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("send on closed channel", "tag", "wsutil", "recovered", r)
		}
	}()
	select {
	case ch <- data:
	default:
	}
}
