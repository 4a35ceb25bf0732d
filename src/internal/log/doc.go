// Package log provides leveled console logging for mhroute.
//
// Levels are DEBUG (verbose mode only), INFO, WARN and ERROR. Messages carry a
// colored level prefix; INFO and below go to stdout, ERROR goes to stderr unless
// SetForceStdErr routes everything there.
//
//	log.SetVerbose(true)
//	log.Debugf("bound %s on %s", addr, iface)
//	log.Warnf("SO_MARK on %s failed: %v", iface, err)
//
// Output writers can be replaced with SetOutput, which tests use to capture
// messages. All functions are safe for concurrent use.
package log
