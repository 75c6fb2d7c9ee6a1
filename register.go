package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexandro/contentsieve/register"
	"github.com/lexandro/contentsieve/server"
)

func newRegisterCommand() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "register project [directory] | register user [-- serve-args...]",
		Short: "Register the MCP server in .mcp.json or ~/.claude.json",
		Example: `  contentsieve register project              # ./.mcp.json
  contentsieve register project ~/notes      # ~/notes/.mcp.json
  contentsieve register user -- --config /etc/sieve.yaml`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			positional, serverArgs := args, []string(nil)
			if dash := cmd.ArgsLenAtDash(); dash >= 0 {
				positional, serverArgs = args[:dash], args[dash:]
			}
			if len(positional) == 0 || len(positional) > 2 {
				return fmt.Errorf("expected a scope and an optional directory: %w", register.ErrUnknownScope)
			}

			options := register.Options{
				Scope:      positional[0],
				ServerName: name,
				ServerArgs: serverArgs,
			}
			if len(positional) > 1 {
				if options.Scope != register.ScopeProject {
					return errors.New("a directory is only accepted for the project scope")
				}
				options.Directory = positional[1]
			}

			configPath, err := register.Register(options)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %q in %s\n", name, configPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", server.Name, "Server name in the client configuration")
	return cmd
}
