package main

import (
	"context"
	"os"

	"github.com/wjemai/tftpd/pkg/client"
	"github.com/wjemai/tftpd/pkg/utils"
	"github.com/wjemai/tftpd/pkg/wire"
)

var (
	logLevel   = utils.GetEnv[string]("TFTP_LOG_LEVEL", "info", false)
	serverAddr = utils.GetEnv[string]("TFTP_SERVER", "127.0.0.1:69", false)
)

// main demonstrates a round-trip Get against a running tftpd, for manual
// exercise of the server; not a general-purpose TFTP CLI.
func main() {
	l := utils.NewLogger(logLevel).Sugar()

	c := client.NewClient(l)

	if err := c.Connect(serverAddr); err != nil {
		l.Error(err)
		os.Exit(1)
	}

	defer func() {
		if err := c.Close(); err != nil {
			l.Error(err.Error())
		}
	}()

	if len(os.Args) < 2 {
		l.Info("usage: tftpc <filename>")

		return
	}

	filename := os.Args[1]

	data, err := c.Get(context.Background(), filename, wire.ModeOctet)
	if err != nil {
		l.Error(err)
		os.Exit(1)
	}

	l.Infof("fetched %s: %d bytes", filename, len(data))

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		l.Error(err)
		os.Exit(1)
	}
}
