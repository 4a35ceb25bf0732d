// Package config handles configuration file parsing and validation for mhroute.
//
// The configuration is a TOML file with one section per concern:
//
//   - [general]: verbosity
//   - [selection]: interface priority policy used when no subnet matches
//   - [routing]: policy routing (table numbering, firewall mark chain and rule
//     template, gateway inference, strict mode)
//   - [endpoint]: socket options applied to bound UDP endpoints
//   - [resolver]: nameserver used to resolve peer host names
//   - [api]: listen address of the status API
//
// A missing file is not an error: LoadConfig returns DefaultConfig so the tool
// works on a bare host. Sections and keys left out of the file keep their
// default values.
//
//	cfg, err := config.LoadConfig("/etc/mhroute/mhroute.conf")
//	if err != nil {
//	    log.Fatalf("%v", err)
//	}
//	if err := cfg.ValidateConfig(); err != nil {
//	    log.Fatalf("%v", err)
//	}
//
// The mark rule is an iptables rule specification with template variables:
// {{device}}, {{local_addr}}, {{fwmark}}, {{table}} and {{port}}.
package config
