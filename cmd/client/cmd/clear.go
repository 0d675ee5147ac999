package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Удалить очереди продаж и корректировок",
	Long: `Удаляет все записи очередей, включая неотправленные. Кэш товаров
и покупателей не затрагивается.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if !clearYes {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return fmt.Errorf("подтвердите удаление флагом --yes")
			}

			st, err := app.Status(ctx)
			if err != nil {
				return err
			}

			ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
				fmt.Sprintf("Будут удалены записи, в том числе неотправленные: %d. Продолжить?", st.Store.TotalPending()))
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Отменено")
				return nil
			}
		}

		if err := app.ClearOfflineData(ctx); err != nil {
			return err
		}

		return render(cmd, map[string]string{"status": "cleared"}, func(w io.Writer) {
			fmt.Fprintf(w, "%s Офлайн-данные удалены\n", okMark("✓"))
		})
	},
}

func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "д", "да":
		return true, nil
	default:
		return false, nil
	}
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "не спрашивать подтверждение")
}
