// Package config defines the analysis configuration file.
//
// The file is YAML. Every field is optional, missing ones take defaults:
//
//	validity: warn          # off, warn or fatal
//	recording: false        # record per-iteration block entry states
//	max_iterations: 10000   # block visits before giving up
//	log_level: info         # debug, info, warn or error
//	dump:
//	  dir: ""               # no dump when empty
//	  format: json          # json, sqlite or both
//	diverging:              # functions never returning, on top of defaults
//	  - my::abort
package config
