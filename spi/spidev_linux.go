//go:build linux

package spi

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux spidev ioctl plumbing. Request codes follow the kernel's
// include/uapi/linux/spi/spidev.h encoding (magic 'k' = 107) with the
// asm-generic _IOC layout.
const (
	iocMagic = 107

	iocNrBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocWrite = 1
)

// spi_ioc_transfer, 32 bytes.
type xfer struct {
	txBuf    uint64
	rxBuf    uint64
	length   uint32
	speedHz  uint32
	delayUs  uint16
	bits     uint8
	csChange uint8
	txNBits  uint8
	rxNBits  uint8
	pad      uint16
}

func requestCode(dir, typ, nr, size uintptr) uintptr {
	return dir<<iocDirShift | typ<<iocTypeShift | nr<<iocNrShift | size<<iocSizeShift
}

func msgRequestCode(n uintptr) uintptr {
	return requestCode(iocWrite, iocMagic, 0, n*uintptr(unsafe.Sizeof(xfer{})))
}

// Spidev is a Conn backed by a /dev/spidevB.C character device. The kernel
// asserts chip select for the duration of each transfer, so every TxRx call
// maps to one CS-framed transaction.
type Spidev struct {
	f       *os.File
	speedHz uint32
	scratch []byte
}

// Open opens the spidev node at path (e.g. /dev/spidev0.0) and configures it
// for the MCP2515: mode 0, 8-bit words, 6 MHz.
func Open(path string) (*Spidev, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("spidev open: %w", err)
	}
	d := &Spidev{f: f, speedHz: DefaultHz}
	if err := d.configure(); err != nil {
		f.Close()
		return nil, err
	}
	return d, nil
}

func (d *Spidev) configure() error {
	mode := uint8(Mode0)
	if err := d.ioctl(requestCode(iocWrite, iocMagic, 1, 1), uintptr(unsafe.Pointer(&mode))); err != nil {
		return fmt.Errorf("spidev set mode: %w", err)
	}
	bits := uint8(WordBits)
	if err := d.ioctl(requestCode(iocWrite, iocMagic, 3, 1), uintptr(unsafe.Pointer(&bits))); err != nil {
		return fmt.Errorf("spidev set bits: %w", err)
	}
	speed := d.speedHz
	if err := d.ioctl(requestCode(iocWrite, iocMagic, 4, 4), uintptr(unsafe.Pointer(&speed))); err != nil {
		return fmt.Errorf("spidev set speed: %w", err)
	}
	return nil
}

// TxRx performs one full-duplex transfer. When rx is nil the clocked-in bytes
// are discarded into an internal scratch buffer (spidev requires a valid rx
// pointer for full-duplex messages).
func (d *Spidev) TxRx(tx, rx []byte) error {
	if len(tx) == 0 {
		return nil
	}
	if rx == nil {
		if cap(d.scratch) < len(tx) {
			d.scratch = make([]byte, len(tx))
		}
		rx = d.scratch[:len(tx)]
	}
	if len(rx) != len(tx) {
		return fmt.Errorf("spidev txrx: rx length %d != tx length %d", len(rx), len(tx))
	}
	p := xfer{
		txBuf:   uint64(uintptr(unsafe.Pointer(&tx[0]))),
		rxBuf:   uint64(uintptr(unsafe.Pointer(&rx[0]))),
		length:  uint32(len(tx)),
		speedHz: d.speedHz,
		bits:    WordBits,
	}
	if err := d.ioctl(msgRequestCode(1), uintptr(unsafe.Pointer(&p))); err != nil {
		return fmt.Errorf("spidev transfer: %w", err)
	}
	return nil
}

func (d *Spidev) ioctl(req, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), req, arg)
	if errno != 0 {
		return errno
	}
	return nil
}

// Close releases the device node.
func (d *Spidev) Close() error {
	return d.f.Close()
}
