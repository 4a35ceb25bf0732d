// Package endpoint opens UDP sockets pinned to a selected interface and sends
// datagrams from them.
//
// A Binder selects the local interface for a requested address, installs
// policy routing for it through a networking.Session and binds the socket
// with SO_BINDTODEVICE and SO_MARK applied before bind. A Dispatcher builds
// the peer address matching the endpoint family, resolving host names with
// DNS and mapping IPv4 peers into IPv6 when asked to.
package endpoint
