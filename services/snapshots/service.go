// Package snapshots persists fetched timetables so consumers can see
// what a portal published at earlier points in time.
package snapshots

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"bakalari-backend/lib/scrapers/bakalari/timetable"
	"bakalari-backend/lib/timezone"
	"bakalari-backend/services/snapshots/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/snapshots")

// ErrNoSnapshot means no snapshot has ever been recorded for the
// requested target.
var ErrNoSnapshot = errors.New("no snapshot recorded")

type Service struct {
	db  *sql.DB
	qry *db.Queries
}

func NewService(database *sql.DB) Service {
	return Service{
		db:  database,
		qry: db.New(database),
	}
}

// Target identifies one recorded timetable: the portal it came from
// and the window and entity it was fetched for. Name is the entity's
// display name, not the portal's internal identifier, since the
// identifiers are not stable across sessions.
type Target struct {
	Portal string
	Which  timetable.Which
	Kind   timetable.Kind
	Name   string
}

func (t Target) params() db.GetTargetIdParams {
	return db.GetTargetIdParams{
		Portal: t.Portal,
		Kind:   string(t.Kind),
		Name:   t.Name,
		Which:  string(t.Which),
	}
}

type Snapshot struct {
	Time      time.Time
	Timetable *timetable.Timetable
}

// Record stores one fetched timetable. Only the last snapshot of a
// target per calendar day is kept, re-recording within the same day
// replaces the earlier one.
func (s Service) Record(ctx context.Context, target Target, tt *timetable.Timetable, at time.Time) error {
	ctx, span := tracer.Start(ctx, "Record")
	defer span.End()

	span.SetAttributes(
		attribute.String("portal", target.Portal),
		attribute.String("kind", string(target.Kind)),
		attribute.String("name", target.Name),
		attribute.String("which", string(target.Which)),
	)

	data, err := json.Marshal(tt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = txqry.CreateTarget(ctx, db.CreateTargetParams{
		Portal: target.Portal,
		Kind:   string(target.Kind),
		Name:   target.Name,
		Which:  string(target.Which),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	targetId, err := txqry.GetTargetId(ctx, target.params())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	startOfToday := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, timezone.Location).Unix()
	startOfTomorrow := time.Date(at.Year(), at.Month(), at.Day()+1, 0, 0, 0, 0, timezone.Location).Unix()
	err = txqry.DeleteSnapshotsIn(ctx, db.DeleteSnapshotsInParams{
		TargetID: targetId,
		After:    startOfToday,
		Before:   startOfTomorrow,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	err = txqry.CreateSnapshot(ctx, db.CreateSnapshotParams{
		TargetID: targetId,
		Time:     at.Unix(),
		Data:     string(data),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return tx.Commit()
}

// Latest returns the most recently recorded snapshot of a target.
func (s Service) Latest(ctx context.Context, target Target) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Latest")
	defer span.End()

	targetId, err := s.qry.GetTargetId(ctx, target.params())
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{}, err
	}

	row, err := s.qry.GetLatestSnapshot(ctx, targetId)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{}, err
	}

	var tt timetable.Timetable
	err = json.Unmarshal([]byte(row.Data), &tt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{}, err
	}
	return Snapshot{Time: time.Unix(row.Time, 0), Timetable: &tt}, nil
}

// History returns every snapshot of a target in chronological order.
func (s Service) History(ctx context.Context, target Target) ([]Snapshot, error) {
	ctx, span := tracer.Start(ctx, "History")
	defer span.End()

	targetId, err := s.qry.GetTargetId(ctx, target.params())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	rows, err := s.qry.ListSnapshots(ctx, targetId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	snapshots := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		var tt timetable.Timetable
		err = json.Unmarshal([]byte(row.Data), &tt)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		snapshots = append(snapshots, Snapshot{
			Time:      time.Unix(row.Time, 0),
			Timetable: &tt,
		})
	}
	return snapshots, nil
}

// Targets lists every target recorded for one portal.
func (s Service) Targets(ctx context.Context, portal string) ([]Target, error) {
	ctx, span := tracer.Start(ctx, "Targets")
	defer span.End()

	rows, err := s.qry.ListTargets(ctx, portal)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	targets := make([]Target, len(rows))
	for i, row := range rows {
		targets[i] = Target{
			Portal: row.Portal,
			Which:  timetable.Which(row.Which),
			Kind:   timetable.Kind(row.Kind),
			Name:   row.Name,
		}
	}
	return targets, nil
}
