package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"possync/internal/offline/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Отправить очередь на сервер сейчас",
	Long: `Выполняет ручной проход синхронизации: все pending записи отправляются
по одной. Неотправленные остаются в очереди до следующей попытки.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		res, err := app.SyncNow(cmd.Context())
		if err != nil {
			return fmt.Errorf("ошибка синхронизации: %w", err)
		}

		return render(cmd, res, func(w io.Writer) { printSyncResult(w, res) })
	},
}

func printSyncResult(w io.Writer, res *syncer.Result) {
	total := res.Total()

	switch {
	case total.Attempted == 0 && total.Failed == 0:
		fmt.Fprintf(w, "%s Нечего отправлять\n", okMark("✓"))
	case total.Failed == 0:
		fmt.Fprintf(w, "%s Отправлено записей: %d\n", okMark("✓"), total.Synced)
	default:
		fmt.Fprintf(w, "%s Отправлено: %d, не отправлено: %d\n", warnMark("!"), total.Synced, total.Failed)
	}

	for _, c := range res.Collections {
		if c.Attempted == 0 && c.Failed == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-18s отправлено %d из %d", c.Collection, c.Synced, c.Attempted)
		if c.DeadLettered > 0 {
			fmt.Fprintf(w, ", %s", errMark(fmt.Sprintf("исчерпали попытки: %d", c.DeadLettered)))
		}
		fmt.Fprintln(w)
	}

	for i, f := range res.Failures {
		if i == 3 {
			fmt.Fprintf(w, "  ... и еще %d ошибок\n", len(res.Failures)-3)
			break
		}
		fmt.Fprintf(w, "  • %s #%d: %v\n", f.Collection, f.EntryID, f.Err)
	}

	if res.Shared {
		fmt.Fprintln(w, "  (присоединились к уже идущей синхронизации)")
	}
	fmt.Fprintf(w, "Время выполнения: %v\n", res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond))
}
