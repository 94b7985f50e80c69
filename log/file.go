package log

import (
	"io"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Output returns the writer for log entries. If file is set, entries are
// additionally written to a size-rotated file.
func Output(file string) io.Writer {
	if file == "" {
		return os.Stderr
	}
	return io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   file,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
}
