package cli

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"github.com/computerscienceiscool/metagate/pkg/app"
	"github.com/computerscienceiscool/metagate/pkg/config"
	"github.com/computerscienceiscool/metagate/pkg/scratch"
)

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"root":            "sandbox.roots",
	"strict-symlinks": "sandbox.strict_symlinks",
	"runner":          "mediator.runner",
	"timeout":         "mediator.timeout",
	"docker-image":    "mediator.docker.image",
	"log-level":       "logging.level",
}

// buildConfig layers flags over the environment, the config file and the
// defaults. A scratch workspace replaces the configured roots.
func buildConfig(flags *pflag.FlagSet, ws *scratch.Workspace) (*config.Config, error) {
	configFile, _ := flags.GetString("config")
	v := config.NewViper(configFile)

	for flag, key := range flagKeys {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	if ws != nil {
		v.Set("sandbox.roots", []string{ws.Dir})
	}

	return config.Decode(v)
}

// bootstrapApp wraps the app.Bootstrap function
func bootstrapApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app.App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return app.Bootstrap(ctx, cfg, logOut)
}
