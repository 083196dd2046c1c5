package wiredoc

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/ValentinKolb/wiredoc/store"
	"github.com/ValentinKolb/wiredoc/store/heap"
	"github.com/ValentinKolb/wiredoc/store/mmap"
	"github.com/ValentinKolb/wiredoc/wire"
	"github.com/ValentinKolb/wiredoc/wire/binary"
	"github.com/ValentinKolb/wiredoc/wire/raw"
	"github.com/ValentinKolb/wiredoc/wire/text"
)

// openStore resolves the --file/--capacity flags into a concrete
// store.ByteStore: a heap-backed store when --file is empty, an
// mmap-backed one (created if absent) otherwise, mirroring the teacher's
// local-vs-remote store split in cmd/kv/cmd/serve without the RPC hop.
func openStore() (store.ByteStore, error) {
	capacity := viper.GetInt64("capacity")
	path := viper.GetString("file")

	if path == "" {
		return heap.New(capacity), nil
	}

	s, err := mmap.Open(path)
	if err == nil {
		return s, nil
	}
	return mmap.Create(path, capacity)
}

// resolveFormat maps the --format flag to a concrete wire.Format.
func resolveFormat() (wire.Format, error) {
	switch viper.GetString("format") {
	case "text":
		return text.New(), nil
	case "binary":
		return binary.New(), nil
	case "raw":
		return raw.New(), nil
	default:
		return nil, fmt.Errorf("invalid format %q (expected text, binary or raw)", viper.GetString("format"))
	}
}

// openWire opens the configured store and wraps it in a Wire using a
// BusyPauser, the default single-process back-off strategy.
func openWire() (*wire.Wire, store.ByteStore, error) {
	s, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	w := wire.New(s, wire.NewBusyPauser(), nil)
	return w, s, nil
}
