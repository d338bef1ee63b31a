// Package constants defines application-wide constants and version information.
package constants

import "runtime"

// AppName is reported in logs and the server banner
const AppName = "hydrograph"

// Version holds the application version information
const Version = "1.0-" + runtime.GOOS + "/" + runtime.GOARCH
