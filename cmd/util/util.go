package util

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/cdnsync/pkg/errors"
)

// Mocked out for unit testing.
var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// HandleFatalError prints `err` and exits. Errors with a friendly message are
// printed as is, without the context that was attached to them.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")

	if msg, ok := errors.GetFriendlyMessage(err); ok {
		fmt.Fprintln(stderr, msg)
	} else {
		fmt.Fprintf(stderr, "%sError: %s\n", Prefix(StatusError), err)
	}
	exit(1)
}

// HandlePanic logs the stack trace of a panic before letting it crash the
// process. It should be deferred at the top of main.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{
			"panic": r,
			"stack": string(debug.Stack()),
		}).Error("Unexpected panic")
		panic(r)
	}
}
