package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/davecgh/go-spew/spew"
	"github.com/wouanagaine/treecodec/internal/bridge"
	"github.com/wouanagaine/treecodec/internal/codec"
	"github.com/wouanagaine/treecodec/internal/codecerr"
	"github.com/wouanagaine/treecodec/internal/config"
	"github.com/wouanagaine/treecodec/internal/value"
)

// CLI defines the command-line interface
var CLI struct {
	Input      string `help:"Path to input file. If not specified, reads from stdin." short:"i" type:"path"`
	Output     string `help:"Path to output file. If not specified, writes to stdout." short:"o" type:"path"`
	From       string `help:"Input format." enum:"json,cbor" default:"json"`
	To         string `help:"Output format." enum:"json,cbor" default:"json"`
	Pretty     bool   `help:"Indent JSON output." short:"p"`
	StripTypes bool   `help:"Remove embedded type-name keys from records." short:"s"`
	Config     string `help:"Path to an options file. Defaults to the nearest .treecodec.yml." type:"path"`
	Debug      bool   `help:"Dump the decoded value tree to stderr." short:"d"`
	Version    bool   `help:"Show version information." short:"v"`
}

// Version information
const (
	Version = "0.1.0"
)

func main() {
	parser := kong.Must(&CLI,
		kong.Name("treecodec"),
		kong.Description("Convert JSON and CBOR documents through a typed value tree"),
		kong.UsageOnError(),
	)

	if _, err := parser.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	if CLI.Version {
		fmt.Printf("treecodec version %s\n", Version)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", codecerr.UserFriendlyError(err))
		fmt.Fprintf(os.Stderr, "\nFor help, run: treecodec --help\n")
		os.Exit(1)
	}
}

// run executes the main program logic
func run() error {
	opts, err := loadOptions()
	if err != nil {
		return err
	}

	data, err := readInput()
	if err != nil {
		return err
	}

	tree, err := decode(data, CLI.From)
	if err != nil {
		return err
	}

	if CLI.StripTypes {
		tree = stripTypeKeys(tree, opts.TypeKey)
	}

	if CLI.Debug {
		spew.Fdump(os.Stderr, tree)
	}

	out, err := encode(tree, CLI.To, CLI.Pretty)
	if err != nil {
		return err
	}
	return writeOutput(out)
}

// loadOptions reads the options file named on the command line, or the
// nearest one found walking up from the working directory.
func loadOptions() (codec.Options, error) {
	path := CLI.Config
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		return codec.DefaultOptions(), nil
	}
	return config.Load(path)
}

func decode(data []byte, format string) (*value.Value, error) {
	if format == "cbor" {
		return bridge.DecodeCBOR(data)
	}
	return bridge.DecodeJSON(data)
}

func encode(tree *value.Value, format string, pretty bool) ([]byte, error) {
	if format == "cbor" {
		return bridge.EncodeCBOR(tree)
	}
	if pretty {
		out, err := bridge.EncodeJSONIndent(tree, "  ")
		if err != nil {
			return nil, err
		}
		return append(out, '\n'), nil
	}
	out, err := bridge.EncodeJSON(tree)
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// stripTypeKeys rebuilds the tree without the reserved type-name key in any
// record.
func stripTypeKeys(v *value.Value, typeKey string) *value.Value {
	switch v.Kind() {
	case value.KindSequence:
		seq := value.NewSequence()
		for _, elem := range v.Elements() {
			seq.Append(stripTypeKeys(elem, typeKey))
		}
		return seq
	case value.KindRecord:
		rec := value.NewRecord()
		for _, e := range v.Entries() {
			if e.Key == typeKey {
				continue
			}
			rec.Set(e.Key, stripTypeKeys(e.Value, typeKey))
		}
		return rec
	default:
		return v
	}
}

// readInput reads bytes from the input file or stdin.
func readInput() ([]byte, error) {
	if CLI.Input != "" {
		data, err := os.ReadFile(CLI.Input)
		if err != nil {
			return nil, codecerr.Wrap(codecerr.KindParse,
				fmt.Sprintf("failed to read input file '%s'", CLI.Input), err)
		}
		return data, nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, codecerr.Wrap(codecerr.KindParse, "failed to read from stdin", err)
	}
	if len(data) == 0 {
		return nil, codecerr.New(codecerr.KindParse, "no input provided: specify a file with -i or pipe data to stdin")
	}
	return data, nil
}

// writeOutput writes bytes to the output file or stdout.
func writeOutput(out []byte) error {
	if CLI.Output != "" {
		if err := os.WriteFile(CLI.Output, out, 0644); err != nil {
			return codecerr.Wrap(codecerr.KindEncode,
				fmt.Sprintf("failed to write to file '%s'", CLI.Output), err)
		}
		return nil
	}
	if _, err := os.Stdout.Write(out); err != nil {
		return codecerr.Wrap(codecerr.KindEncode, "failed to write to stdout", err)
	}
	return nil
}
