// Command ppeasm is the PPL front-end tool: it parses and semantically
// analyzes a .pps source file, reporting diagnostics ("check") or listing
// the compiled variable table a script would allocate ("dump"), the way a
// PCBoard sysop would inspect a .ppe before installing it.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/icyboard/icyboard/internal/ppl/parser"
	"github.com/icyboard/icyboard/internal/ppl/semantic"
	"github.com/icyboard/icyboard/internal/ppl/vartable"
)

var versionFlag = cli.IntFlag{
	Name:  "version",
	Usage: "PPL language version to compile against",
	Value: 340,
}

func main() {
	app := cli.NewApp()
	app.Name = "ppeasm"
	app.Usage = "inspect PPL source: check for errors or dump its variable table"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{versionFlag}
	app.Commands = []cli.Command{checkCommand, dumpCommand}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ppeasm:", err)
		os.Exit(1)
	}
}

var checkCommand = cli.Command{
	Name:      "check",
	Usage:     "parse and semantically analyze a .pps file, reporting diagnostics",
	ArgsUsage: "<file.pps>",
	Action:    checkAction,
}

var dumpCommand = cli.Command{
	Name:      "dump",
	Usage:     "list the variable table a .pps file compiles to",
	ArgsUsage: "<file.pps>",
	Action:    dumpAction,
}

func compileFile(ctx *cli.Context) (*semantic.Analyzer, *vartable.Table, error) {
	path := ctx.Args().First()
	if path == "" {
		return nil, nil, fmt.Errorf("ppeasm: missing <file.pps> argument")
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	version := ctx.GlobalInt(versionFlag.Name)
	prog, errs := parser.Parse(filepath.Base(path), string(src), version, nil)
	if len(errs) > 0 {
		return nil, nil, errs[0]
	}

	an := semantic.New(version)
	table, _ := an.Analyze(prog)
	return an, table, nil
}

func checkAction(ctx *cli.Context) error {
	an, _, err := compileFile(ctx)
	if err != nil {
		return err
	}
	failed := false
	for _, d := range an.Diagnostics {
		fmt.Fprintln(os.Stdout, d)
		if d.IsError {
			failed = true
		}
	}
	if !failed {
		fmt.Println("OK: no errors")
	} else {
		return fmt.Errorf("ppeasm: compilation failed")
	}
	return nil
}

var entryKindNames = [...]string{
	"Constant", "UserVariable", "Variable", "LocalVariable",
	"FunctionResult", "Parameter", "FunctionEntry", "ProcedureEntry",
}

func dumpAction(ctx *cli.Context) error {
	_, table, err := compileFile(ctx)
	if err != nil {
		return err
	}
	if table == nil {
		return fmt.Errorf("ppeasm: nothing to dump")
	}

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"ID", "Kind", "Type", "Value"})
	for _, e := range table.Entries {
		kind := "?"
		if int(e.Kind) < len(entryKindNames) {
			kind = entryKindNames[e.Kind]
		}
		tw.Append([]string{
			strconv.Itoa(e.Header.ID),
			kind,
			fmt.Sprintf("%d", e.Header.VariableType),
			e.Value.ToPPLString(),
		})
	}
	tw.Render()
	return nil
}
