package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/TimurManjosov/licadvisor/internal/catalog"
	"github.com/TimurManjosov/licadvisor/internal/cli"
	"github.com/TimurManjosov/licadvisor/internal/client"
	"github.com/TimurManjosov/licadvisor/internal/rules"
)

// loadLocalCatalog reads the --catalog file, or the embedded catalog when
// no path is given.
func loadLocalCatalog(ctx context.Context, path string) ([]rules.Rule, string, error) {
	var src catalog.Source = catalog.EmbeddedSource{}
	if path != "" {
		src = catalog.NewFileSource(path)
	}
	list, err := src.Load(ctx)
	if err != nil {
		return nil, "", err
	}
	return list, src.Name(), nil
}

func newAPIClient() (*client.Client, error) {
	envCfg, err := cli.GetEnvConfig(env, baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return client.NewClient(envCfg.BaseURL, envCfg.APIKey), nil
}

func logf(w io.Writer, msg string, args ...any) {
	if verbose {
		fmt.Fprintf(w, msg+"\n", args...)
	}
}
