package utils

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Quit blocks until SIGINT or SIGTERM and then runs Close.
func Quit(serviceName string, Close func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	Wait(quit, serviceName, Close)
}

// Wait blocks until quit delivers a signal and then runs Close.
func Wait(quit <-chan os.Signal, serviceName string, Close func()) {
	sig := <-quit
	logrus.WithField("signal", sig).Infof("Closing %s !!!", serviceName)
	Close()
}
