package spiproto

// Addr is an MCP2515 register address. The register map is the one
// standardized in the datasheet; addresses auto-increment during multi-byte
// WRITE and READ transactions.
type Addr uint8

const (
	RXF0SIDH Addr = 0x00
	RXF1SIDH Addr = 0x04
	RXF2SIDH Addr = 0x08
	BFPCTRL  Addr = 0x0C
	TXRTSCTRL Addr = 0x0D
	CANSTAT  Addr = 0x0E
	CANCTRL  Addr = 0x0F
	RXF3SIDH Addr = 0x10
	RXF4SIDH Addr = 0x14
	RXF5SIDH Addr = 0x18
	TEC      Addr = 0x1C
	REC      Addr = 0x1D
	RXM0SIDH Addr = 0x20
	RXM1SIDH Addr = 0x24
	CNF3     Addr = 0x28
	CNF2     Addr = 0x29
	CNF1     Addr = 0x2A
	CANINTE  Addr = 0x2B
	CANINTF  Addr = 0x2C
	EFLG     Addr = 0x2D
	TXB0CTRL Addr = 0x30
	TXB0SIDH Addr = 0x31
	TXB0D0   Addr = 0x36
	TXB1CTRL Addr = 0x40
	TXB1SIDH Addr = 0x41
	TXB1D0   Addr = 0x46
	TXB2CTRL Addr = 0x50
	TXB2SIDH Addr = 0x51
	TXB2D0   Addr = 0x56
	RXB0CTRL Addr = 0x60
	RXB0SIDH Addr = 0x61
	RXB0D0   Addr = 0x66
	RXB1CTRL Addr = 0x70
	RXB1SIDH Addr = 0x71
	RXB1D0   Addr = 0x76
)

// CANCTRL bits.
const (
	REQOPMask     = 0xE0
	REQOPNormal   = 0x00
	REQOPSleep    = 0x20
	REQOPLoopback = 0x40
	REQOPListen   = 0x60
	REQOPConfig   = 0x80
	ABAT          = 0x10
	OSM           = 0x08
)

// TXBnCTRL bits.
const (
	ABTF  = 0x40
	MLOA  = 0x20
	TXERR = 0x10
	TXREQ = 0x08
)

// RXBnCTRL bits. The FILHIT field is 1 bit wide on RXB0 and 3 bits wide on
// RXB1; on RXB0 the composite BUKT|BUKT1|FILHIT0 value >= RolloverFilter0
// means the frame spilled into RXB1.
const (
	RXMMask         = 0x60
	RXMAny          = 0x60
	BUKT            = 0x04
	BUKT1           = 0x02
	FilHit0         = 0x01
	FilHitMask      = 0x07
	RolloverFilter0 = 0x06
	RolloverFilter1 = 0x07
)

// SIDL bits, shared by the TX/RX buffer, mask and filter banks. SRR is
// meaningful only in received SIDL; EXIDE marks extended transmission on
// TXBnSIDL and extended-only matching on RXFnSIDL.
const (
	SIDLStdMask = 0xE0
	SRR         = 0x10
	IDE         = 0x08
	EXIDE       = 0x08
	EIDHiMask   = 0x03
)

// DLC register bits.
const (
	RTR     = 0x40
	DLCMask = 0x0F
)

// CNF3 bits.
const (
	WAKFIL     = 0x40
	PhSeg2Mask = 0x07
)

// CNF2 bits.
const (
	BTLMODE    = 0x80
	SAM        = 0x40
	PhSeg1Mask = 0x38
	PrSegMask  = 0x07
)

// CNF1 bits.
const (
	SJWMask = 0xC0
	SJW1TQ  = 0x00
	BRPMask = 0x3F
)

// CANINTE/CANINTF bits.
const (
	MERRE = 0x80
	WAKIE = 0x40
	ERRIE = 0x20
	TX2IE = 0x10
	TX1IE = 0x08
	TX0IE = 0x04
	RX1IE = 0x02
	RX0IE = 0x01
)

// EFLG bits. Only RX1OVR and RX0OVR are host-clearable; the rest track the
// TEC/REC counters and reset when the counters do.
const (
	RX1OVR = 0x80
	RX0OVR = 0x40
	TXBO   = 0x20
	TXEP   = 0x10
	RXEP   = 0x08
	TXWAR  = 0x04
	RXWAR  = 0x02
	EWARN  = 0x01
)
