// Package config loads env-tagged structs using github.com/caarlos0/env,
// with optional dotenv files read through github.com/joho/godotenv.
//
// Each component in this module exposes its own Config struct (connpool.Config,
// tenant.Config, pg.Config, ...). The composition root loads each one once and
// hands the values to constructors; nothing is cached globally here.
//
//	var poolCfg connpool.Config
//	config.MustLoad(&poolCfg)
//
//	var control pg.Config
//	config.MustLoad(&control, config.WithPrefix("CONTROL_"))
package config
