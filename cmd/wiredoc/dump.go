package wiredoc

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ValentinKolb/wiredoc/wire"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Decode every document in a local store, in order",
	RunE:  runDump,
}

func runDump(cmd *cobra.Command, _ []string) error {
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

	if err := s.SetReadPosition(0); err != nil {
		return err
	}
	if s.ReadVolatileInt(0) == wire.NotInitialized {
		fmt.Println("(empty stream)")
		return nil
	}
	if err := w.ReadFirstHeader(0); err != nil {
		if errors.Is(err, wire.ErrEndOfStream) {
			fmt.Println("(empty stream)")
			return nil
		}
		return err
	}
	// ReadFirstHeader bounded the read window to the meta document's body;
	// jump past it to where the first data document's header would start.
	if err := s.SetReadPosition(s.ReadLimit()); err != nil {
		return err
	}

	count := 0
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

		fr := format.NewReader(w)
		_, v, ok, err := fr.ReadField(wire.Named("payload"))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Printf("%d: <missing payload>\n", count)
		} else if text, err := v.Text(); err == nil {
			fmt.Printf("%d: %s\n", count, text)
		} else {
			fmt.Printf("%d: <undecodable: %v>\n", count, err)
		}
		count++
	}

	fmt.Printf("%d document(s)\n", count)
	return nil
}
