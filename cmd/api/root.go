package main

import (
	"github.com/spf13/cobra"
)

// envFile es el .env opcional que se carga antes de leer la configuracion.
var envFile string

// NewRootCmd crea el comando raiz del servicio de autenticacion.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "authsvc",
		Short:        "Authentication service",
		Long:         `authsvc serves registration, login, email verification and password reset over HTTP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewReapCmd())

	return cmd
}
