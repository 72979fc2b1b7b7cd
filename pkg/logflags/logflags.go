package logflags

import (
	"errors"
	"io/ioutil"
	"log"
	"strings"
)

var catalog = false
var dolphin = false
var image = false
var workspace = false

// Catalog returns true if the type catalog should log type construction
// and cache activity.
func Catalog() bool {
	return catalog
}

// CatalogLogger returns a logger for the type catalog.
func CatalogLogger() Logger {
	return makeLogger(catalog, Fields{"layer": "catalog"})
}

// Dolphin returns true if the emulator hook should log attach attempts
// and memory traffic.
func Dolphin() bool {
	return dolphin
}

// DolphinLogger returns a logger for the live emulator backend.
func DolphinLogger() Logger {
	return makeLogger(dolphin, Fields{"layer": "dolphin"})
}

// Image returns true if the file-backed memory image should log load and
// save activity.
func Image() bool {
	return image
}

// ImageLogger returns a logger for the file-backed memory image.
func ImageLogger() Logger {
	return makeLogger(image, Fields{"layer": "image"})
}

// Workspace returns true if workspace assembly should be logged.
func Workspace() bool {
	return workspace
}

// WorkspaceLogger returns a logger for workspace assembly.
func WorkspaceLogger() Logger {
	return makeLogger(workspace, Fields{"layer": "workspace"})
}

var errLogstrWithoutLog = errors.New("log output specified without enabling logging")

// Setup sets the logging layers based on the contents of logstr.
func Setup(logFlag bool, logstr string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "catalog"
	}
	v := strings.Split(logstr, ",")
	for _, logcmd := range v {
		switch logcmd {
		case "catalog":
			catalog = true
		case "dolphin":
			dolphin = true
		case "image":
			image = true
		case "workspace":
			workspace = true
		}
	}
	return nil
}
