package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/paritytech/revive-sub000/internal/buildpipeline"
	"github.com/paritytech/revive-sub000/internal/evm"
	"github.com/paritytech/revive-sub000/internal/object"
	"github.com/paritytech/revive-sub000/internal/tac"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm [flags] <hex|file>",
	Short: "Print the control flow graph of EVM bytecode or the listing of a blob",
	Args:  cobra.ExactArgs(1),
	RunE:  disasmExecution,
}

func init() {
	disasmCmd.Flags().String("format", "bytecode", "what to print for EVM input (bytecode|ir|edges)")
	disasmCmd.Flags().String("name", "contract", "contract name used in the listing")
}

func disasmExecution(cmd *cobra.Command, args []string) error {
	formatValue, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format, err := tac.ParseDumpFormat(formatValue)
	if err != nil {
		return err
	}
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}

	data, err := readInput(args[0])
	if err != nil {
		return err
	}
	if _, err := object.Detect(data); err == nil {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		tc, err := cfg.Toolchain(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		d, ok := tc.CodeGenerator.(buildpipeline.Disassembler)
		if !ok {
			return fmt.Errorf("backend %s cannot disassemble", cfg.Backend)
		}
		text, err := d.Disassemble(cmd.Context(), data)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	}

	code, err := evm.ParseHex(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("input is neither an object nor hex bytecode: %w", err)
	}
	p := tac.NewProgram(name, evm.Decode(code))
	if format == tac.DumpIR {
		p.Optimize()
	}
	return p.Dump(cmd.OutOrStdout(), format)
}

// readInput returns the contents of the file arg, or arg itself when no such
// file exists.
func readInput(arg string) ([]byte, error) {
	// #nosec G304 -- the user names the input
	data, err := os.ReadFile(arg)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, os.ErrNotExist):
		return []byte(arg), nil
	default:
		return nil, err
	}
}
