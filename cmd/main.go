package main

import (
	"fmt"
	"os"

	"firecontrol/cmd/sweeper"
	"firecontrol/src/security"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Firecontrol CMD"
	app.Usage = "The firecontrol command line interface"

	app.Commands = []cli.Command{
		sweeperCMD,
		sweepOnceCMD,
		encryptCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	sweeperCMD = cli.Command{
		Name:        "sweeper",
		Usage:       "run slot-reconciliation loop",
		Action:      sweeperAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the periodic slot-reconciliation sweep`,
	}
	sweepOnceCMD = cli.Command{
		Name:        "sweep_once",
		Usage:       "run one reconciliation sweep and exit",
		Action:      sweepOnceAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run a single reconciliation sweep, for ad hoc operator use`,
	}
	encryptCMD = cli.Command{
		Name:        "encrypt_credential",
		Usage:       "seal an agent credential for storage",
		Action:      encryptAction,
		ArgsUsage:   "<plaintext>",
		Flags:       []cli.Flag{},
		Description: `Encrypt a credential with AGENT_CREDENTIALS_KEY for use in AGENT_API_KEY_ENC / AGENT_API_SECRET_ENC`,
	}
)

func sweeperAction(_ *cli.Context) error {

	logrus.Info("Starting sweeper CMD")
	logrus.WithField("cmd", "sweeper")

	s := &sweeper.Sweeper{}
	err := s.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func encryptAction(c *cli.Context) error {
	plaintext := c.Args().First()
	if plaintext == "" {
		return fmt.Errorf("usage: encrypt_credential <plaintext>")
	}

	sealed, err := security.EncryptString(plaintext)
	if err != nil {
		logrus.WithError(err).Error("Failed to encrypt credential")
		return err
	}

	fmt.Println(sealed)
	return nil
}

func sweepOnceAction(_ *cli.Context) error {

	logrus.Info("Starting one-shot sweep CMD")
	logrus.WithField("cmd", "sweep_once")

	s := &sweeper.Sweeper{}
	err := s.RunOnce()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}
