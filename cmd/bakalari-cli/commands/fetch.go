package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"bakalari-backend/lib/scrapers/bakalari"
	"bakalari-backend/lib/scrapers/bakalari/timetable"
	"bakalari-backend/lib/serviceutil"
	"bakalari-backend/lib/sqliteutil"
	"bakalari-backend/lib/timezone"
	"bakalari-backend/services/snapshots"
	snapshotsdb "bakalari-backend/services/snapshots/db"

	"github.com/antzucaro/matchr"
	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

var fetchKind *string
var fetchWhich *string
var fetchOut *string
var fetchSnapshotDb *string

func init() {
	fetchKind = fetchCmd.Flags().String("kind", "class", "What the name refers to: class, teacher or room.")
	fetchWhich = fetchCmd.Flags().String("which", "actual", "The timetable window: permanent, actual or next.")
	fetchOut = fetchCmd.Flags().String("out", "timetable.json", "The file to write the timetable to, '-' for stdout.")
	fetchSnapshotDb = fetchCmd.Flags().String("snapshot-db", "", "Also record the timetable into this snapshot database.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--kind class|teacher|room] [--which permanent|actual|next] <name>",
	Short: "Fetches one timetable and writes it out as JSON.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		kind, ok := parseKind(*fetchKind)
		if !ok {
			serviceutil.Fatal("unknown kind", fmt.Errorf("%q is not class, teacher or room", *fetchKind))
		}
		which, ok := parseWhich(*fetchWhich)
		if !ok {
			serviceutil.Fatal("unknown window", fmt.Errorf("%q is not permanent, actual or next", *fetchWhich))
		}

		client := createClient(cmd.Context())
		defer client.Close()

		selector, ok := client.Selector(kind, name)
		if !ok {
			suggestion := closestName(client, kind, name)
			if suggestion != "" {
				serviceutil.Fatal("unknown name", fmt.Errorf("%q is not known to the portal, did you mean %q?", name, suggestion))
			}
			serviceutil.Fatal("unknown name", fmt.Errorf("%q is not known to the portal", name))
		}

		tt, err := client.Timetable(cmd.Context(), which, selector)
		if err != nil {
			serviceutil.Fatal("failed to fetch timetable", err)
		}

		data, err := json.MarshalIndent(tt, "", "  ")
		if err != nil {
			serviceutil.Fatal("failed to serialize timetable", err)
		}
		if *fetchOut == "-" {
			fmt.Println(string(data))
		} else {
			renderTimetable(tt)
			err = os.WriteFile(*fetchOut, data, 0644)
			if err != nil {
				serviceutil.Fatal("failed to write output file", err)
			}
			slog.Info("wrote timetable", "file", *fetchOut)
		}

		if *fetchSnapshotDb != "" {
			recordSnapshot(cmd.Context(), which, kind, name, tt)
		}
	},
}

func parseKind(s string) (timetable.Kind, bool) {
	switch timetable.Kind(s) {
	case timetable.KindClass, timetable.KindTeacher, timetable.KindRoom:
		return timetable.Kind(s), true
	}
	return "", false
}

func parseWhich(s string) (timetable.Which, bool) {
	switch timetable.Which(s) {
	case timetable.WhichPermanent, timetable.WhichActual, timetable.WhichNext:
		return timetable.Which(s), true
	}
	return "", false
}

// closestName finds the best fuzzy match for a name the portal does
// not know, so typos produce a usable suggestion instead of a bare
// failure.
func closestName(client *bakalari.Client, kind timetable.Kind, name string) string {
	best := ""
	bestSimilarity := 0.8
	for _, known := range client.Objects(kind) {
		similarity := matchr.JaroWinkler(name, known, false)
		if similarity > bestSimilarity {
			best = known
			bestSimilarity = similarity
		}
	}
	return best
}

func recordSnapshot(ctx context.Context, which timetable.Which, kind timetable.Kind, name string, tt *timetable.Timetable) {
	db, err := sqliteutil.OpenDB(snapshotsdb.Schema, *fetchSnapshotDb)
	if err != nil {
		serviceutil.Fatal("failed to open snapshot db", err)
	}
	defer db.Close()

	service := snapshots.NewService(db)
	err = service.Record(ctx, snapshots.Target{
		Portal: resolvedUrl,
		Which:  which,
		Kind:   kind,
		Name:   name,
	}, tt, timezone.Now())
	if err != nil {
		serviceutil.Fatal("failed to record snapshot", err)
	}
	slog.Info("recorded snapshot", "db", *fetchSnapshotDb)
}
