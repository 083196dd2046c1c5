package wiredoc

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ValentinKolb/wiredoc/wire"
)

var writeCmd = &cobra.Command{
	Use:   "write [text]",
	Short: "Append one document to a local store",
	Args:  cobra.ExactArgs(1),
	RunE:  runWrite,
}

func init() {
	writeCmd.Flags().Int64("timeout", 5, wrapString("Seconds to wait for a contended reservation before giving up"))
}

func runWrite(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	w, s, err := openWire()
	if err != nil {
		return err
	}
	defer s.Close()

	format, err := resolveFormat()
	if err != nil {
		return err
	}

	first, err := w.WriteFirstHeader()
	if err != nil {
		return err
	}
	if first {
		if err := w.UpdateFirstHeader(); err != nil {
			return err
		}
	} else if err := w.ReadFirstHeader(0); err != nil {
		return err
	}

	offset, err := w.WriteHeader(wire.UnknownLength, time.Duration(viper.GetInt64("timeout"))*time.Second, nil)
	if err != nil {
		return err
	}

	fw := format.NewWriter(w)
	if err := fw.WriteField(wire.Named("payload")).Text(args[0]); err != nil {
		return err
	}
	if err := fw.Close(); err != nil {
		return err
	}

	if err := w.UpdateHeader(wire.UnknownLength, offset, false); err != nil {
		return err
	}

	fmt.Printf("wrote document at offset %d\n", offset)
	return nil
}
