// Package infra holds the adapters behind the core contracts: catalog file
// loaders, the remote scorer, metrics sinks, the MQTT outcome publisher and
// the zerolog logger. Subpackages import core, never the other way round.
package infra
