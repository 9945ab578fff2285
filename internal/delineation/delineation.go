// Package delineation provides the catchment.Resolver implementations the
// service can be configured with.
package delineation

import (
	"fmt"

	"github.com/yungbote/catchment-service/internal/catchment"
	"github.com/yungbote/catchment-service/internal/config"
	"github.com/yungbote/catchment-service/internal/platform/logger"
)

// New selects a resolver by cfg.Resolver.Type.
func New(cfg *config.Config, log *logger.Logger) (catchment.Resolver, error) {
	switch cfg.Resolver.Type {
	case config.ResolverMock:
		return NewMock(), nil
	case config.ResolverCommand:
		return NewCommand(log, cfg.NHDPlus2, cfg.Resolver), nil
	default:
		return nil, fmt.Errorf("unsupported resolver type %q", cfg.Resolver.Type)
	}
}
