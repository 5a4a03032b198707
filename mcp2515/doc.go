// Package mcp2515 drives a Microchip MCP2515 stand-alone CAN controller
// attached over SPI. The driver translates high-level operations (send a
// frame, program acceptance filters, switch operating mode) into ordered SPI
// instruction sequences and packs 29-bit CAN identifiers into the chip's
// split SIDH/SIDL/EID8/EID0 register layout.
//
// All calls are blocking and strictly sequential; a Dev owns its spi.Conn
// exclusively for the duration of every call and is not safe for concurrent
// use. Two controllers on one host bind to two distinct transports.
package mcp2515
