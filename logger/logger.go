package logger

import (
	"io"
	"log"
	"os"

	"github.com/fatih/color"
)

var (
	Info  *log.Logger
	Warn  *log.Logger
	Error *log.Logger
)

func init() {
	SetOutput(os.Stdout, os.Stderr)
}

// SetOutput redirects the leveled loggers, e.g. to io.Discard in tests.
func SetOutput(out, errOut io.Writer) {
	Info = log.New(out,
		color.GreenString("[INFO] "),
		log.Ldate|log.Ltime|log.Lshortfile)
	Warn = log.New(out,
		color.YellowString("[WARN] "),
		log.Ldate|log.Ltime|log.Lshortfile)
	Error = log.New(errOut,
		color.RedString("[ERROR] "),
		log.Ldate|log.Ltime|log.Lshortfile)
}
