// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"bytes"
	"log/slog"
	"sync"
)

// lineLogger is an io.Writer that emits one log record per complete line of
// child output. A trailing partial line is held until Flush.
type lineLogger struct {
	mu      sync.Mutex
	logger  *slog.Logger
	command string
	stream  string
	buf     bytes.Buffer
}

func newLineLogger(logger *slog.Logger, command, stream string) *lineLogger {
	return &lineLogger{logger: logger, command: command, stream: stream}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf.Write(p)
	for {
		line, err := l.buf.ReadBytes('\n')
		if err != nil {
			// No newline yet: put the fragment back for the next write.
			l.buf.Reset()
			l.buf.Write(line)
			break
		}
		l.emit(bytes.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush logs any buffered partial line.
func (l *lineLogger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.buf.Len() > 0 {
		l.emit(bytes.TrimRight(l.buf.Bytes(), "\r\n"))
		l.buf.Reset()
	}
}

func (l *lineLogger) emit(line []byte) {
	l.logger.Info(string(line), "cmd", l.command, "stream", l.stream)
}
