package client

import (
	"context"
	"fmt"

	"github.com/ardnew/stkbridge/device"
	"github.com/ardnew/stkbridge/device/hal/fifo"
	"github.com/ardnew/stkbridge/pkg"
)

// OpenFIFO attaches to the first bridge on the FIFO bus at busDir and waits
// until it reports connected.
func OpenFIFO(ctx context.Context, busDir string) (Transport, error) {
	dir, err := fifo.Discover(busDir)
	if err != nil {
		return nil, err
	}
	h, err := fifo.Dial(dir, device.DefaultInAddress, device.DefaultOutAddress)
	if err != nil {
		return nil, fmt.Errorf("attach %s: %w", dir, err)
	}
	if err := h.WaitConnected(ctx); err != nil {
		h.Close()
		return nil, err
	}
	pkg.LogInfo(pkg.ComponentHost, "attached to fifo bridge", "dir", dir)
	return h, nil
}
