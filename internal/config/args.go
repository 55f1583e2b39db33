package config

import (
	"fmt"

	"github.com/timtadh/getopt"
)

// Options is the parsed command line of a notegen binary.
type Options struct {
	ConfigFile string
	Explicit   bool // ConfigFile was named on the command line
	Help       bool
	Args       []string
}

// ParseArgs parses -c/--config FILE and -h/--help from args (without the
// program name). Remaining operands are returned in Args.
func ParseArgs(args []string, defaultFile string) (*Options, error) {
	rest, optargs, err := getopt.GetOpt(args, "hc:", []string{"help", "config="})
	if err != nil {
		return nil, err
	}
	opts := &Options{ConfigFile: defaultFile, Args: rest}
	for _, oa := range optargs {
		switch oa.Opt() {
		case "-h", "--help":
			opts.Help = true
		case "-c", "--config":
			opts.ConfigFile = oa.Arg()
			opts.Explicit = true
		default:
			return nil, fmt.Errorf("unknown option %s", oa.Opt())
		}
	}
	return opts, nil
}

// Usage returns the help text for a binary taking the standard options.
func Usage(name, operands, defaultFile string) string {
	return fmt.Sprintf(`usage: %s [-c FILE] [-h] %s

options:
  -c, --config FILE   yaml configuration (default %s)
  -h, --help          print this help and exit
`, name, operands, defaultFile)
}
