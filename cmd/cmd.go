package cmd

import (
	"fmt"
	"os"

	"github.com/iliad-lang/iliad/vm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	easy "github.com/t-tomalak/logrus-easy-formatter"
)

func App() (app *cobra.Command) {
	app = &cobra.Command{
		Use:   "iliad [path]",
		Short: "Launch the `iliad` interpreter",
		Args:  cobra.MaximumNArgs(1),
	}

	app.Flags().SortFlags = true
	defaultVerbosityStr := "INFO"
	verbosity := app.Flags().StringP("verbosity", "v", defaultVerbosityStr, "Logging verbosity")

	app.Run = func(cmd *cobra.Command, args []string) {
		verbosityLvl, err := logrus.ParseLevel(*verbosity)
		if err != nil {
			verbosityLvl, _ = logrus.ParseLevel(defaultVerbosityStr)
		}
		logrus.SetLevel(verbosityLvl)
		logrus.SetFormatter(&easy.Formatter{LogFormat: "//DBG// %msg%\n"})

		if err := appMain(args); err != nil {
			logrus.Fatal(err)
			os.Exit(1)
		}
	}
	return
}

// appMain dispatches on argument count: no args starts the REPL, one arg
// is handed to loadFile (a stub that always returns an error, so no file is
// interpreted), and cobra.MaximumNArgs(1) already turns
// anything past that into a usage message and a non-zero exit before this
// ever runs.
func appMain(args []string) error {
	if len(args) == 0 {
		return vm.NewVM().REPL()
	}
	return loadFile(args[0])
}

// loadFile is currently stubbed: file-loading is out of scope for the core
// this ships, which only commits to the REPL-fed `Interpret(src string)`
// entry point.
func loadFile(path string) error {
	return fmt.Errorf("loading %s: file execution is not yet implemented", path)
}
