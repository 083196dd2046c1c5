package wiredoc

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const Version = "0.1.0"

// RootCmd is the base wiredoc command.
var RootCmd = &cobra.Command{
	Use:   "wiredoc",
	Short: "Frame, write and read documents through a polymorphic wire format",
	Long: `wiredoc (v` + Version + `)

A document-framing and format-agnostic value codec library, with three
interchangeable wire formats (text, binary, raw) over one abstract
document model.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	key := "format"
	RootCmd.PersistentFlags().String(key, "binary", wrapString("Wire format to use (text, binary, raw)"))

	key = "file"
	RootCmd.PersistentFlags().String(key, "", wrapString("Path to an mmap-backed store file. Empty uses an in-process heap store that does not persist across invocations"))

	key = "capacity"
	RootCmd.PersistentFlags().Int64(key, 16*1024*1024, wrapString("Capacity of a newly created store, in bytes"))

	RootCmd.AddCommand(writeCmd)
	RootCmd.AddCommand(readCmd)
	RootCmd.AddCommand(dumpCmd)
	RootCmd.AddCommand(scanCmd)
	RootCmd.AddCommand(serveCmd)
}

func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("wiredoc")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Execute runs RootCmd. Called once by main.main.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
