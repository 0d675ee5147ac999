package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var saleFile string

var saleCmd = &cobra.Command{
	Use:   "sale",
	Short: "Продажи",
}

var saleAddCmd = &cobra.Command{
	Use:   "add [payload]",
	Short: "Записать продажу в очередь",
	Long: `Записывает продажу локально со статусом pending. Работает без сети.

Содержимое - любой JSON: аргумент, файл (--file) или stdin ("-").`,
	Example: `  possync sale add '{"items":[{"sku":"TEA-GRN","qty":2}],"total":50000}'
  cat sale.json | possync sale add -`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := readPayload(cmd.InOrStdin(), args, saleFile)
		if err != nil {
			return err
		}

		id, err := app.RecordSale(cmd.Context(), payload)
		if err != nil {
			return fmt.Errorf("ошибка записи продажи: %w", err)
		}

		return render(cmd, map[string]any{"id": id, "status": "pending"}, func(w io.Writer) {
			fmt.Fprintf(w, "%s Продажа #%d записана, ожидает отправки\n", okMark("✓"), id)
		})
	},
}

// readPayload берет JSON из аргумента, файла или stdin
func readPayload(stdin io.Reader, args []string, file string) (json.RawMessage, error) {
	var raw []byte
	var err error

	switch {
	case file != "":
		raw, err = os.ReadFile(file)
	case len(args) == 0 || args[0] == "-":
		raw, err = io.ReadAll(stdin)
	default:
		raw = []byte(args[0])
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения данных: %w", err)
	}

	raw = []byte(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return nil, fmt.Errorf("пустые данные")
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("данные не являются корректным JSON")
	}

	return raw, nil
}

func init() {
	saleAddCmd.Flags().StringVarP(&saleFile, "file", "f", "", "файл с JSON продажи")
	saleCmd.AddCommand(saleAddCmd)
}
