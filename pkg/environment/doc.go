// Package environment names the deployment environments the service knows
// about and normalises their spellings from configuration.
package environment
