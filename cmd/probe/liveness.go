package probe

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/go-gasless/internal/config"
)

func newLiveness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "liveness",
		Short: "Runs liveness probes",
		Long:  `This command asks the running server for its ready state (/-/ready).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			verbose, err := cmd.Flags().GetBool(verboseFlag)
			if err != nil {
				return errors.Wrapf(err, "failed to get %s flag", verboseFlag)
			}

			return runLiveness(cmd.Context(), config.DefaultServiceConfigFromEnv(), verbose)
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")

	return cmd
}

func runLiveness(ctx context.Context, cfg config.Server, verbose bool) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.Management.ProbeReadinessTimeout)
	defer cancel()

	url := strings.TrimSuffix(cfg.Echo.BaseURL, "/") + "/-/ready"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "liveness probe failed")
	}
	defer res.Body.Close()

	if verbose {
		//nolint:forbidigo // CLI output
		fmt.Printf("%s: %d\n", url, res.StatusCode)
	}

	if res.StatusCode != http.StatusOK {
		return errors.Errorf("liveness probe failed: status %d", res.StatusCode)
	}

	return nil
}
