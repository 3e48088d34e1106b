package commands

import (
	"os"

	"bakalari-backend/lib/scrapers/bakalari/timetable"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints the classes, teachers and rooms the portal publishes timetables for.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient(cmd.Context())
		defer client.Close()

		columns := [][]string{
			client.Objects(timetable.KindClass),
			client.Objects(timetable.KindTeacher),
			client.Objects(timetable.KindRoom),
		}

		maxRowCount := 0
		for _, col := range columns {
			if len(col) > maxRowCount {
				maxRowCount = len(col)
			}
		}

		rows := make([]table.Row, maxRowCount)
		for i := 0; i < len(rows); i++ {
			rows[i] = make(table.Row, len(columns))
			for colIdx, col := range columns {
				if i < len(col) {
					rows[i][colIdx] = col[i]
				} else {
					rows[i][colIdx] = ""
				}
			}
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Class", "Teacher", "Room"})
		t.AppendRows(rows)
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
