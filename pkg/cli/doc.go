// Package cli implements the schemaflow command line tool.
//
// diff, validate and plan run the evolution engine locally against schema
// files (JSON or YAML); apply and history talk to a running schemaflow
// server over its HTTP API.
package cli
