package cmd

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Запустить кассу в фоновом режиме",
	Long: `Держит кассу открытой: следит за связью с сервером, отправляет очередь
при восстановлении связи и периодически. Завершается по Ctrl+C.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return app.Run(cmd.Context())
	},
}
