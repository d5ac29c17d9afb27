package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tidwall/sjson"

	"github.com/renatogalera/worldgen/pkg/worldstream"
)

func newDecodeCmd(_ *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode a captured route stream (file or stdin) into a title and prompt",
		Long: `Runs a saved response of the LLM route through the same decoder the generate
command uses. Handy to check what a misbehaving model stream resolves to.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = os.Stdin
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			res := worldstream.Decode(cmd.Context(), in, worldstream.WithLogger(log.Logger))
			if res.Err != nil {
				log.Warn().Err(res.Err).Msg("Stream did not end cleanly")
			}

			if asJSON {
				out, err := resultJSON(res)
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}
			if res.Empty() {
				fmt.Println("Nothing usable in this stream; the client would fall back to a plain request.")
				return nil
			}
			info := "source: " + res.Source.String()
			if res.NestedEcho {
				info += " (recovered from echoed protocol)"
			}
			printWorld(res.Title, res.Prompt, info)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func resultJSON(res worldstream.Result) ([]byte, error) {
	out := []byte(`{}`)
	fields := []struct {
		path  string
		value any
	}{
		{"title", res.Title},
		{"prompt", res.Prompt},
		{"source", res.Source.String()},
		{"nestedEcho", res.NestedEcho},
		{"empty", res.Empty()},
	}
	var err error
	for _, f := range fields {
		if out, err = sjson.SetBytes(out, f.path, f.value); err != nil {
			return nil, err
		}
	}
	if res.Err != nil {
		return sjson.SetBytes(out, "error", res.Err.Error())
	}
	return out, nil
}
