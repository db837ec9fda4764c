package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/ardnew/usbmidi/internal/cmd"
)

func main() {
	userCfg := findUserConfig(os.Args[1:])
	yamlPaths, tomlPaths := cmd.ConfigCandidatePaths(userCfg)

	var cli cmd.CLI
	ctx := kong.Parse(&cli,
		kong.Name(cmd.AppName),
		kong.Description(cmd.Description()),
		kong.UsageOnError(),
		// Flags and environment override values from these files.
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	cli.Log.Setup(os.Stderr)

	sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx.BindTo(sigctx, (*context.Context)(nil))
	ctx.BindTo(os.Stdout, (*io.Writer)(nil))

	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

func findUserConfig(args []string) string {
	for i, a := range args {
		if strings.HasPrefix(a, "--config=") {
			return a[len("--config="):]
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("USBMIDI_CONFIG")
}
