// Package mtp40f implements a driver for the MTP40-F CO2 / air pressure sensor module
// connected over a UART.
//
// The module speaks a fixed-length binary protocol. Every request and response is a frame:
//
//	[0x42 0x4D][Address(1)][Reserved(1)][Command(1)][Length_Hi][Length_Lo][Payload...][Checksum_Hi][Checksum_Lo]
//
// The checksum is the arithmetic sum of all preceding bytes truncated to 16 bits and
// transmitted big-endian. Responses carry no usable length prefix, so the expected
// response length is fixed per command.
//
// # Transactions
//
// A transaction is a single half-duplex exchange:
//
//  1. Discard any stale bytes waiting on the transport.
//  2. Write and flush the request frame.
//  3. Poll the transport for bytes, yielding between polls, until the expected number of
//     bytes has arrived or the request timeout (1s by default) expires.
//  4. Validate the response checksum.
//
// Only one transaction is in flight at a time; each top-level [Device] operation holds
// the device lock for its whole duration.
//
// # Polling
//
// [Device.Poll] applies a warm-up gate (no reads for a configured period after
// [Device.Setup]) and a minimum read interval (2s by default) before reading the CO2
// concentration and, when a consumer is configured, the air pressure reference.
// [Device.Run] drives Poll periodically.
//
// # Errors
//
// Every failure is returned to the caller and recorded as the device's last error
// ([Device.LastError]); none is fatal and the next poll retries independently.
package mtp40f
