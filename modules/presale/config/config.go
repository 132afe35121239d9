package config

import "github.com/magnet-network/presale-engine/internal/postgres"

type Config struct {
	Database    string          `mapstructure:"database"` // Database to store presale ledger state. e.g. `postgres` | `memory`
	Postgres    postgres.Config `mapstructure:"postgres"`
	APIHandlers []string        `mapstructure:"api_handlers"` // API handlers to enable. e.g. `http`

	// Owner is the sale owner (admin) wallet address. The engine rejects
	// owner-gated operations from any other sender.
	Owner string `mapstructure:"owner"`

	// JettonMaster is the master address of the jetton being sold.
	JettonMaster string `mapstructure:"jetton_master"`
}
