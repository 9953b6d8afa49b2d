// Package config provides configuration structures and utilities for notecrawl.
// It defines the crawl target, pacing and rate-limit policy values, collaborator
// settings (API endpoint, proxy, persistence backend) and report preferences,
// and loads them from a YAML file, the environment and CLI flags.
package config
