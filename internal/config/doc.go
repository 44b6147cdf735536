// Package config loads and validates the PhotoMedit configuration.
//
// Configuration comes from a YAML file (path in the PHOTOMEDIT_CONFIG
// environment variable, default "config.yaml"), with a .env file loaded
// first for environment overrides. The result is an immutable Registry
// value passed into every component at construction time; there is no
// ambient global lookup.
package config
