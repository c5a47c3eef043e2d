// Package autoload initialises the global logger from LOG_* environment variables.
package autoload

import (
	configx "github.com/tanpawarit/Product-Shopping-Assistant/pkg/config"
	logx "github.com/tanpawarit/Product-Shopping-Assistant/pkg/logger"
)

func init() {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
