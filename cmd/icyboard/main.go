// Command icyboard is the board server entrypoint: it loads
// icyboard.toml, opens the user store, and either dumps the effective
// configuration or runs a single local session over stdin/stdout for
// testing a board without a telnet/websocket front end wired up.
package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/icyboard/icyboard/internal/bbsconfig"
	"github.com/icyboard/icyboard/internal/bbsnode"
	"github.com/icyboard/icyboard/internal/bbssession"
	"github.com/icyboard/icyboard/internal/bbsterm"
	"github.com/icyboard/icyboard/internal/bbsuser"
	"github.com/icyboard/icyboard/internal/icylog"
)

var configFileFlag = cli.StringFlag{
	Name:  "config",
	Usage: "icyboard.toml configuration file",
	Value: "icyboard.toml",
}

var nodeFlag = cli.IntFlag{
	Name:  "node",
	Usage: "node index to occupy for this local session",
	Value: 0,
}

func main() {
	app := cli.NewApp()
	app.Name = "icyboard"
	app.Usage = "PCBoard-compatible BBS with an embedded PPL runtime"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{configFileFlag}
	app.Commands = []cli.Command{runCommand, dumpConfigCommand, whoCommand}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "icyboard:", err)
		os.Exit(1)
	}
}

var runCommand = cli.Command{
	Name:   "run",
	Usage:  "run one local session over stdin/stdout",
	Flags:  []cli.Flag{nodeFlag},
	Action: runLocal,
}

var dumpConfigCommand = cli.Command{
	Name:   "dumpconfig",
	Usage:  "show the effective configuration as TOML",
	Action: dumpConfig,
}

var whoCommand = cli.Command{
	Name:   "who",
	Usage:  "show the current node table (empty outside a running server)",
	Action: whoAction,
}

func loadConfig(ctx *cli.Context) (bbsconfig.Board, error) {
	return bbsconfig.Load(ctx.GlobalString(configFileFlag.Name))
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	out, err := bbsconfig.Dump(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func whoAction(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	table := bbsnode.NewTable(cfg.NumNodes)
	fmt.Print(table.WhosOn())
	return nil
}

// runLocal opens one session bound to stdin/stdout, the same path a
// telnet/websocket front end would drive per connection — useful for
// exercising a board's menus and PPL scripts without a network listener.
func runLocal(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	users, err := bbsuser.Open(cfg.DataPath + "/users")
	if err != nil {
		return err
	}
	defer users.Close()

	loader, err := bbssession.NewLoader(340, 64)
	if err != nil {
		return err
	}

	table := bbsnode.NewTable(cfg.NumNodes)
	term := bbsterm.New(bbsterm.Ansi, os.Stdout, os.Stdin)
	log := icylog.New(os.Stderr, icylog.LevelInfo)

	sess, err := bbssession.New(table, ctx.Int(nodeFlag.Name), cfg, users, loader, term, log)
	if err != nil {
		return err
	}
	return sess.Run()
}
