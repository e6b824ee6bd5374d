package common

import (
	"io"
	"log"
	"os"
)

var (
	logger = log.New(os.Stderr, "[hdmiwave] ", log.LstdFlags|log.Lmicroseconds)
)

func Logf(format string, args ...interface{}) {
	logger.Printf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	logger.Fatalf(format, args...)
}

// SetLogOutput redirects log output; the daemon installs a rotating writer.
func SetLogOutput(w io.Writer) {
	logger.SetOutput(w)
}
