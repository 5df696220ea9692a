package workflows

import (
	"context"
	"fmt"
	"os"

	"github.com/PolarWolf314/mops/internal/configs"
	kerrors "github.com/PolarWolf314/mops/internal/errors"
)

// InitConfigOptions configures the config init workflow.
type InitConfigOptions struct {
	// Force overwrites an existing config file.
	Force bool

	// KeyFiles seeds key_files in the new config.
	KeyFiles []string
}

// InitConfig writes a config file with default settings and returns its
// path.
//
// Returns ErrConfigExists if the file exists and Force is not set.
func InitConfig(ctx context.Context, opts InitConfigOptions) (string, error) {
	path := configs.ConfigPath()

	if _, err := os.Stat(path); err == nil && !opts.Force {
		return path, fmt.Errorf("%w: %s", kerrors.ErrConfigExists, path)
	}

	config := configs.Default()
	config.KeyFiles = opts.KeyFiles
	if err := configs.Save(config); err != nil {
		return path, err
	}
	return path, nil
}
