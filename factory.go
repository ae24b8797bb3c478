// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"github.com/luxfi/database"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"

	"github.com/luxfi/governance/config"
)

// Factory builds governance engines from a shared configuration.
type Factory struct {
	Config config.Config
}

func (f *Factory) New(
	db database.Database,
	logger log.Logger,
	registerer metric.Registerer,
) (*Engine, error) {
	return New(db, f.Config, logger, registerer)
}
