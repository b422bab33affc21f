// Package config provides configuration management for pastetrace.
package config
