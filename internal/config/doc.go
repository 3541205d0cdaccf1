// Package config provides configuration management for clusterdrill.
//
// Configuration is assembled from layers, each overriding the last:
//
//  1. Built-in defaults, tuned for a local six-node cluster with
//     three masters on ports 7000-7005.
//
//  2. User configuration (~/.config/clusterdrill/config.yaml), for
//     personal settings shared across projects.
//
//  3. Project configuration (./.clusterdrill/config.yaml), for
//     settings a team checks into version control.
//
//  4. CLUSTERDRILL_* environment variables, for CI overrides.
//
// A configuration file covers the same surface the flags do:
//
//	cluster:
//	  seeds: ["127.0.0.1:7000"]
//	  targetMasters: 3
//	  flushTimeout: 3s
//	  probeBackoff: 100ms
//	workload:
//	  requests: 10
//	  value: 123
//	drill:
//	  cases: 30
//	  timeout: 5m
//	  reportPath: ./reports
//	log:
//	  level: info
//	  format: text
//	metrics:
//	  addr: ":9753"
//
// Environment variables map field-for-field: CLUSTERDRILL_SEEDS is a
// comma-separated address list, CLUSTERDRILL_FLUSH_TIMEOUT a duration
// string, and so on. An invalid value fails loading with the variable
// name in the error instead of being silently ignored.
package config
