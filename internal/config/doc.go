// Package config loads the actionfeed YAML configuration file.
//
// Missing values fall back to defaults, secrets can be supplied through the
// environment and the result is checked with struct tags before use.
package config
