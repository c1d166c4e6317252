package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wjemai/tftpd/internal/tftp"
	"github.com/wjemai/tftpd/pkg/store"
	"github.com/wjemai/tftpd/pkg/utils"
)

var (
	tftpPort    = utils.GetEnv[string]("TFTP_PORT", "69", false)
	logLevel    = utils.GetEnv[string]("LOG_LEVEL", "info", false)
	tftpBaseDir = utils.GetEnv[string]("TFTP_BASE_DIR", utils.UserHomeDirPath(), false)
)

func main() {
	l := utils.NewLogger(logLevel)
	defer func() {
		_ = l.Sync()
	}()

	sl := l.Sugar()

	fs := store.NewOSStore(tftpBaseDir)
	s := tftp.NewServer(sl, fs, tftpPort)

	go func() {
		if err := s.ListenAndServe(); err != nil {
			sl.Error(err.Error())
		}
	}()

	sl.Info(fmt.Sprintf("listening on port %s, serving %s", tftpPort, tftpBaseDir))

	defer func() {
		if err := s.Close(); err != nil {
			sl.Error(err.Error())

			return
		}

		sl.Info(fmt.Sprintf("closed connection on port %s", tftpPort))
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-signalChan
}
