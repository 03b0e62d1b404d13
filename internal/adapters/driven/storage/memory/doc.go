// Package memory provides in-process implementations of driven.Store and
// driven.ConfigStore. Nothing survives a restart; use them for tests and
// local experiments.
package memory
