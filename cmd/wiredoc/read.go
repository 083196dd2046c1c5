package wiredoc

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ValentinKolb/wiredoc/wire"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read the document at --offset from a local store",
	RunE:  runRead,
}

func init() {
	readCmd.Flags().Int64("offset", 4, wrapString("Byte offset of the document's header"))
}

func runRead(cmd *cobra.Command, _ []string) error {
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

	if err := s.SetReadPosition(viper.GetInt64("offset")); err != nil {
		return err
	}

	kind, err := w.ReadDataHeader(false)
	if err != nil {
		return err
	}
	if kind != wire.HeaderData {
		return fmt.Errorf("no ready data document at offset %d", viper.GetInt64("offset"))
	}

	fr := format.NewReader(w)
	_, v, ok, err := fr.ReadField(wire.Named("payload"))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("payload: <missing>")
		return nil
	}
	text, err := v.Text()
	if err != nil {
		return err
	}
	fmt.Printf("payload: %s\n", text)
	return nil
}
