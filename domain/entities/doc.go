// Package entities provides the value types shared by the script host.
// They carry no engine state: namespace snapshots, load and tick reports,
// ownership tags and the enumerations used by configuration.
package entities
