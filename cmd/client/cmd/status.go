package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"possync/internal/app/client"
	"possync/internal/offline/store"
)

var statusDead bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Состояние связи, очереди и кэша",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if statusDead {
			dead, err := app.DeadLetters(ctx)
			if err != nil {
				return err
			}
			return render(cmd, dead, func(w io.Writer) { printDeadLetters(w, dead) })
		}

		app.CheckConnection(ctx)

		st, err := app.Status(ctx)
		if err != nil {
			return err
		}

		return render(cmd, st, func(w io.Writer) { printStatus(w, st) })
	},
}

func printStatus(w io.Writer, st *client.Status) {
	conn := okMark("online")
	if !st.Online {
		conn = warnMark("offline")
	}
	fmt.Fprintf(w, "%s %s (%s)\n", bold("Сервер:"), conn, st.Server)

	fmt.Fprintln(w, bold("Очередь:"))
	printQueue(w, store.Transactions, st.Store.Transactions)
	printQueue(w, store.InventoryUpdates, st.Store.InventoryUpdates)

	fmt.Fprintln(w, bold("Кэш:"))
	fmt.Fprintf(w, "  товаров %d, покупателей %d, обновлен %s\n",
		st.Store.Products, st.Store.Customers, formatTime(st.LastRefresh))

	fmt.Fprintf(w, "%s %s", bold("Хранилище:"), formatBytes(st.Store.UsageBytes))
	if st.Sealed {
		fmt.Fprint(w, ", зашифровано")
	}
	fmt.Fprintln(w)

	if st.Background && len(st.PendingTags) > 0 {
		fmt.Fprintf(w, "%s ожидают %v\n", bold("Фоновая синхронизация:"), st.PendingTags)
	}
}

func printQueue(w io.Writer, c store.Collection, q store.QueueStats) {
	pending := strconv.Itoa(q.Pending)
	if q.Pending > 0 {
		pending = warnMark(pending)
	}
	fmt.Fprintf(w, "  %-18s ожидают %s, отправлено %d", c, pending, q.Synced)
	if q.Failed > 0 {
		fmt.Fprintf(w, ", %s", errMark(fmt.Sprintf("исчерпали попытки %d", q.Failed)))
	}
	fmt.Fprintln(w)
}

func printDeadLetters(w io.Writer, dead []*store.Entry) {
	if len(dead) == 0 {
		fmt.Fprintf(w, "%s Нет записей, отклоненных сервером\n", okMark("✓"))
		return
	}
	for _, e := range dead {
		fmt.Fprintf(w, "#%d %s попыток %d, отказов %d, последняя ошибка: %s\n  %s\n",
			e.ID, formatTime(e.Timestamp), e.Attempts, e.Rejections, errMark(e.LastError), string(e.Payload))
	}
}

func init() {
	statusCmd.Flags().BoolVar(&statusDead, "dead", false, "показать записи, окончательно отклоненные сервером")
}
