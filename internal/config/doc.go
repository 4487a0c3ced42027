// Package config manages user-level settings stored at ~/.clapp/config.yaml.
// Values can be overridden with CLAPP_* environment variables. Current returns
// a typed Settings snapshot (apps root, index URL, network timeouts, publish
// directory) that the service layer is built from.
package config
