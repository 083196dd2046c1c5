package wiredoc

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ValentinKolb/wiredoc/journal/index"
	"github.com/ValentinKolb/wiredoc/wire"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a local store's headers, optionally resuming from a pebble sidecar index",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().String("index-dir", "", wrapString("Directory for the pebble HeaderNumber->offset sidecar index. Required; every scan records into it"))
	scanCmd.Flags().Bool("resume", false, wrapString("Resume from the last offset recorded in --index-dir instead of scanning from the start"))
}

func runScan(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	indexDir := viper.GetString("index-dir")
	if indexDir == "" {
		return errors.New("--index-dir is required")
	}
	idx, err := index.Open(indexDir)
	if err != nil {
		return err
	}
	defer idx.Close()

	w, s, err := openWire()
	if err != nil {
		return err
	}
	defer s.Close()

	headerNumber := int64(0)
	startOffset := int64(0)
	if viper.GetBool("resume") {
		if found, off, ok, err := idx.Nearest(int64(1) << 62); err != nil {
			return err
		} else if ok {
			// off is where the last-recorded document's header begins;
			// reread it to learn where its body ends, so the scan
			// resumes right after it instead of rereading it.
			if err := s.SetReadPosition(off); err != nil {
				return err
			}
			kind, err := w.ReadDataHeader(false)
			if err != nil {
				return err
			}
			if kind != wire.HeaderData {
				return fmt.Errorf("scan: index points at a non-data header at offset %d", off)
			}
			headerNumber = found + 1
			startOffset = s.ReadLimit()
		}
	}

	if startOffset == 0 {
		if s.ReadVolatileInt(0) == wire.NotInitialized {
			fmt.Println("(empty stream)")
			return nil
		}
		if err := s.SetReadPosition(0); err != nil {
			return err
		}
		if err := w.ReadFirstHeader(0); err != nil {
			if errors.Is(err, wire.ErrEndOfStream) {
				fmt.Println("(empty stream)")
				return nil
			}
			return err
		}
		startOffset = s.ReadLimit()
	}

	if err := s.SetReadPosition(startOffset); err != nil {
		return err
	}

	scanned := 0
	for {
		kind, err := w.ReadDataHeader(false)
		if errors.Is(err, wire.ErrEndOfStream) {
			break
		}
		if err != nil {
			return err
		}
		if kind != wire.HeaderData {
			break
		}

		offset := s.ReadLimit()
		headerOffset := s.ReadPosition() - 4
		fmt.Printf("header #%d at offset %d\n", headerNumber, headerOffset)
		if err := idx.Put(headerNumber, headerOffset); err != nil {
			return err
		}

		if err := s.SetReadPosition(offset); err != nil {
			return err
		}
		headerNumber++
		scanned++
	}

	fmt.Printf("scanned %d header(s) from offset %d\n", scanned, startOffset)
	return nil
}
