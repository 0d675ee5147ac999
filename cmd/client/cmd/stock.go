package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var (
	stockSKU   string
	stockDelta int64
	stockNote  string
)

var stockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Остатки",
}

var stockAdjustCmd = &cobra.Command{
	Use:   "adjust [payload]",
	Short: "Записать корректировку остатков в очередь",
	Example: `  possync stock adjust --sku TEA-GRN --delta -2 --note "damaged"
  possync stock adjust '{"sku":"TEA-GRN","delta":5}'`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var payload json.RawMessage
		var err error

		if stockSKU != "" {
			payload, err = stockPayload(stockSKU, stockDelta, stockNote)
		} else {
			payload, err = readPayload(cmd.InOrStdin(), args, "")
		}
		if err != nil {
			return err
		}

		id, err := app.AdjustStock(cmd.Context(), payload)
		if err != nil {
			return fmt.Errorf("ошибка записи корректировки: %w", err)
		}

		return render(cmd, map[string]any{"id": id, "status": "pending"}, func(w io.Writer) {
			fmt.Fprintf(w, "%s Корректировка #%d записана, ожидает отправки\n", okMark("✓"), id)
		})
	},
}

func stockPayload(sku string, delta int64, note string) (json.RawMessage, error) {
	if delta == 0 {
		return nil, fmt.Errorf("--delta не может быть 0")
	}

	body := struct {
		SKU   string `json:"sku"`
		Delta int64  `json:"delta"`
		Note  string `json:"note,omitempty"`
	}{SKU: sku, Delta: delta, Note: note}

	return json.Marshal(body)
}

func init() {
	stockAdjustCmd.Flags().StringVar(&stockSKU, "sku", "", "артикул товара")
	stockAdjustCmd.Flags().Int64Var(&stockDelta, "delta", 0, "изменение остатка (может быть отрицательным)")
	stockAdjustCmd.Flags().StringVar(&stockNote, "note", "", "комментарий")
	stockCmd.AddCommand(stockAdjustCmd)
}
