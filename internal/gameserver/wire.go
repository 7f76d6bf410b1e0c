//go:build wireinject

package gameserver

import (
	"github.com/google/wire"

	"github.com/cory-johannsen/slapfight/internal/config"
)

// InitializeApp builds the simulator and its logger from cfg.
func InitializeApp(cfg config.Config) (*App, func(), error) {
	wire.Build(ProviderSet, wire.Struct(new(App), "*"))
	return nil, nil, nil
}
