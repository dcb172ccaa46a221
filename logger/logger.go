// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package logger

import (
	"go.uber.org/zap"
)

var myLogger *zap.SugaredLogger

// Set sets a global logger
func Set(logger *zap.SugaredLogger) {
	myLogger = logger
}

func I() *zap.SugaredLogger {
	return myLogger
}

// Setup installs a production logger, or a development one in debug mode.
func Setup(debug bool) error {
	var l *zap.Logger
	var err error
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	Set(l.Sugar())
	return nil
}

func init() {
	Set(zap.NewNop().Sugar())
}
