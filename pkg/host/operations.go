package host

import (
	"context"
	"fmt"

	"github.com/umi-eng/hftwo/pkg/command"
)

// Typed convenience operations over the raw Issue/Execute surface.
// Each sends one command and decodes its response payload.

// statusErr converts a non-OK response into an error
func statusErr(id command.ID, resp *command.Response) error {
	if resp.Status == command.StatusOK {
		return nil
	}
	return fmt.Errorf("%s failed: %s (info 0x%02X)", id, resp.Status, resp.StatusInfo)
}

// BinInfo queries device mode and flash geometry
func (h *Host) BinInfo(ctx context.Context) (*command.BinInfo, error) {
	resp, err := h.Execute(ctx, command.IDBinInfo, nil)
	if err != nil {
		return nil, err
	}
	if err := statusErr(command.IDBinInfo, resp); err != nil {
		return nil, err
	}
	return resp.BinInfo()
}

// Info queries the device's free-form info string
func (h *Host) Info(ctx context.Context) (string, error) {
	resp, err := h.Execute(ctx, command.IDInfo, nil)
	if err != nil {
		return "", err
	}
	if err := statusErr(command.IDInfo, resp); err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// ResetIntoApp resets the device into its application
func (h *Host) ResetIntoApp(ctx context.Context) error {
	resp, err := h.Execute(ctx, command.IDResetIntoApp, nil)
	if err != nil {
		return err
	}
	return statusErr(command.IDResetIntoApp, resp)
}

// ResetIntoBootloader resets the device into its bootloader
func (h *Host) ResetIntoBootloader(ctx context.Context) error {
	resp, err := h.Execute(ctx, command.IDResetIntoBootloader, nil)
	if err != nil {
		return err
	}
	return statusErr(command.IDResetIntoBootloader, resp)
}

// StartFlash announces the start of a flashing sequence
func (h *Host) StartFlash(ctx context.Context) error {
	resp, err := h.Execute(ctx, command.IDStartFlash, nil)
	if err != nil {
		return err
	}
	return statusErr(command.IDStartFlash, resp)
}

// WriteFlashPage writes one flash page at the given address
func (h *Host) WriteFlashPage(ctx context.Context, address uint32, page []byte) error {
	resp, err := h.Execute(ctx, command.IDWriteFlashPage, command.WriteFlashPageArgs{
		Address: address,
		Data:    page,
	})
	if err != nil {
		return err
	}
	return statusErr(command.IDWriteFlashPage, resp)
}

// ChecksumPages returns checksums for a range of flash pages
func (h *Host) ChecksumPages(ctx context.Context, address, numPages uint32) ([]uint16, error) {
	resp, err := h.Execute(ctx, command.IDChecksumPages, command.ChecksumPagesArgs{
		Address:  address,
		NumPages: numPages,
	})
	if err != nil {
		return nil, err
	}
	if err := statusErr(command.IDChecksumPages, resp); err != nil {
		return nil, err
	}
	return resp.Checksums()
}

// ReadWords reads words from device memory
func (h *Host) ReadWords(ctx context.Context, address, numWords uint32) ([]uint32, error) {
	resp, err := h.Execute(ctx, command.IDReadWords, command.ReadWordsArgs{
		Address:  address,
		NumWords: numWords,
	})
	if err != nil {
		return nil, err
	}
	if err := statusErr(command.IDReadWords, resp); err != nil {
		return nil, err
	}
	return resp.Words()
}

// WriteWords writes words to device memory
func (h *Host) WriteWords(ctx context.Context, address uint32, words []uint32) error {
	resp, err := h.Execute(ctx, command.IDWriteWords, command.WriteWordsArgs{
		Address: address,
		Words:   words,
	})
	if err != nil {
		return err
	}
	return statusErr(command.IDWriteWords, resp)
}

// Dmesg fetches the device's diagnostic log
func (h *Host) Dmesg(ctx context.Context) (string, error) {
	resp, err := h.Execute(ctx, command.IDDmesg, nil)
	if err != nil {
		return "", err
	}
	if err := statusErr(command.IDDmesg, resp); err != nil {
		return "", err
	}
	return resp.Text(), nil
}
