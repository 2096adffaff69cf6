// The sharc CLI archives a demo graph of shared pointers into a sealed frame,
// inspects frames in place and profiles the round trip.
package main

import (
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rawbytedev/sharc"
	"github.com/rawbytedev/sharc/archive"
	"github.com/rawbytedev/sharc/internal/demo"
)

func setupLogger(c *cli.Context) error {
	if !c.Bool("debug") {
		return nil
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	archive.SetLogger(l)
	return nil
}

func printSummary(c *cli.Context, s demo.Summary) error {
	switch c.String("format") {
	case "yaml":
		out, err := yaml.Marshal(s)
		if err != nil {
			return errors.Wrap(err, "marshal summary")
		}
		_, err = c.App.Writer.Write(out)
		return err
	case "text":
		fmt.Fprintf(c.App.Writer, "archive %d bytes, label %q\n", s.Size, s.Label)
		fmt.Fprintf(c.App.Writer, "a @%d -> %d = %d\n", s.A.Pos, s.A.Target, s.A.Value)
		fmt.Fprintf(c.App.Writer, "b @%d -> %d = %d\n", s.B.Pos, s.B.Target, s.B.Value)
		if s.W.None {
			fmt.Fprintf(c.App.Writer, "w @%d -> none\n", s.W.Pos)
		} else {
			fmt.Fprintf(c.App.Writer, "w @%d -> %d = %d\n", s.W.Pos, s.W.Target, s.W.Value)
		}
		fmt.Fprintf(c.App.Writer, "shared: %t\n", s.Shared)
		return nil
	default:
		return errors.Newf("unknown format %q, expected yaml or text", c.String("format"))
	}
}

func main() {
	formatFlag := &cli.StringFlag{Name: "format", Value: "yaml", Usage: "Output format (yaml, text)", EnvVars: []string{"SHARC_FORMAT"}}

	app := &cli.App{
		Name:  "sharc",
		Usage: "Archive object graphs with shared pointers and read them in place",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Value: false, Usage: "Log registry activity at debug level", EnvVars: []string{"SHARC_DEBUG"}},
		},
		Before: setupLogger,
	}
	app.Commands = []*cli.Command{
		{
			Name:  "demo",
			Usage: "Seal a graph where two strong pointers and a weak pointer share one value",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "value", Value: 42, Usage: "Shared value"},
				&cli.StringFlag{Name: "label", Value: "demo", Usage: "Graph label"},
				&cli.StringFlag{Name: "out", Value: "graph.sharc", TakesFile: true, Usage: "Output frame path"},
				&cli.BoolFlag{Name: "compress", Value: false, Usage: "zstd compress the frame"},
				formatFlag,
			},
			Action: func(c *cli.Context) error {
				codec := demo.NewCodec()
				g := demo.Sample(int32(c.Int("value")), c.String("label"))
				defer g.Release()

				frame, err := sharc.Seal(codec, g, sharc.Options{Compress: c.Bool("compress")})
				if err != nil {
					return errors.Wrap(err, "seal graph")
				}
				if err := os.WriteFile(c.String("out"), frame, 0o644); err != nil {
					return errors.Wrap(err, "write frame")
				}
				root, data, err := sharc.Open(codec, frame)
				if err != nil {
					return errors.Wrap(err, "reopen frame")
				}
				return printSummary(c, demo.Describe(root, len(data)))
			},
		},
		{
			Name:  "inspect",
			Usage: "Describe a sealed demo graph without deserializing it",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "in", Value: "graph.sharc", TakesFile: true, Usage: "Frame path"},
				formatFlag,
			},
			Action: func(c *cli.Context) error {
				frame, err := os.ReadFile(c.String("in"))
				if err != nil {
					return errors.Wrap(err, "read frame")
				}
				root, data, err := sharc.Open(demo.NewCodec(), frame)
				if err != nil {
					return errors.Wrapf(err, "open %s", c.String("in"))
				}
				return printSummary(c, demo.Describe(root, len(data)))
			},
		},
		{
			Name:  "profile",
			Usage: "Round trip the demo graph and write a heap profile",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "iterations", Value: 10000, Usage: "Round trips to run"},
				&cli.StringFlag{Name: "out", Value: "mem.prof", TakesFile: true, Usage: "Heap profile path"},
				&cli.StringFlag{Name: "pprof-addr", Value: "", Usage: "Serve net/http/pprof on this address while running, e.g. localhost:6060"},
			},
			Action: func(c *cli.Context) error {
				if addr := c.String("pprof-addr"); addr != "" {
					go func() {
						if err := http.ListenAndServe(addr, nil); err != nil {
							archive.Logger().Warn("pprof server stopped", zap.Error(err))
						}
					}()
				}
				f, err := os.Create(c.String("out"))
				if err != nil {
					return errors.Wrap(err, "create profile")
				}
				defer f.Close()
				runtime.MemProfileRate = 1

				codec := demo.NewCodec()
				g := demo.Sample(42, "profile")
				defer g.Release()
				for i := 0; i < c.Int("iterations"); i++ {
					data, err := sharc.ToBytes(codec, g, sharc.Options{})
					if err != nil {
						return err
					}
					got, err := sharc.FromBytes(codec, data, sharc.Options{})
					if err != nil {
						return err
					}
					got.Release()
				}
				return pprof.WriteHeapProfile(f)
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "sharc: %+v\n", err)
		os.Exit(1)
	}
}
