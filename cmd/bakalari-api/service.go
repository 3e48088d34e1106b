package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"bakalari-backend/lib/scrapers/bakalari"
	"bakalari-backend/lib/scrapers/bakalari/timetable"
	"bakalari-backend/lib/timezone"
	"bakalari-backend/services/snapshots"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("cmd/bakalari-api")

// Service exposes portal timetables over plain REST. Sessions are
// cached per portal url so repeated requests reuse one login and one
// directory fetch, and every successfully fetched timetable is also
// recorded as a snapshot.
type Service struct {
	config    Config
	sessions  *expirable.LRU[string, *bakalari.Client]
	snapshots snapshots.Service
}

func NewService(config Config, snapshotService snapshots.Service) *Service {
	return &Service{
		config: config,
		sessions: expirable.NewLRU(64, func(url string, client *bakalari.Client) {
			client.Close()
		}, time.Minute*15),
		snapshots: snapshotService,
	}
}

func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if s.config.Auth.Username != "" {
		r.Use(middleware.BasicAuth("bakalari-api", map[string]string{
			s.config.Auth.Username: s.config.Auth.Password,
		}))
	}

	r.Get("/classes", s.handleObjects(timetable.KindClass))
	r.Get("/teachers", s.handleObjects(timetable.KindTeacher))
	r.Get("/rooms", s.handleObjects(timetable.KindRoom))
	r.Get("/timetable/{which}/{kind}/{name}", s.handleTimetable)
	return r
}

func (s *Service) getClient(r *http.Request) (*bakalari.Client, string, int, error) {
	url := r.URL.Query().Get("url")
	if url == "" {
		return nil, "", http.StatusBadRequest, errors.New("missing url query parameter")
	}

	cached, hit := s.sessions.Get(url)
	if hit {
		return cached, url, 0, nil
	}

	var client *bakalari.Client
	var err error
	portal, known := s.config.portal(url)
	if known && portal.Username != "" {
		client, err = bakalari.FromCredentials(r.Context(), bakalari.Options{
			BaseUrl:  url,
			Username: portal.Username,
			Password: portal.Password,
		})
	} else {
		client, err = bakalari.Anonymous(r.Context(), url)
	}
	if err != nil {
		return nil, "", http.StatusBadGateway, err
	}

	s.sessions.Add(url, client)
	return client, url, 0, nil
}

type objectsResponse struct {
	Names []string `json:"names"`
}

func (s *Service) handleObjects(kind timetable.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "handleObjects")
		defer span.End()
		r = r.WithContext(ctx)

		client, _, status, err := s.getClient(r)
		if err != nil {
			writeError(w, status, err)
			return
		}
		writeJson(w, http.StatusOK, objectsResponse{Names: client.Objects(kind)})
	}
}

func (s *Service) handleTimetable(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "handleTimetable")
	defer span.End()
	r = r.WithContext(ctx)

	which := timetable.Which(chi.URLParam(r, "which"))
	switch which {
	case timetable.WhichPermanent, timetable.WhichActual, timetable.WhichNext:
	default:
		writeError(w, http.StatusBadRequest, errors.New("window must be permanent, actual or next"))
		return
	}
	kind := timetable.Kind(chi.URLParam(r, "kind"))
	switch kind {
	case timetable.KindClass, timetable.KindTeacher, timetable.KindRoom:
	default:
		writeError(w, http.StatusBadRequest, errors.New("kind must be class, teacher or room"))
		return
	}
	name := chi.URLParam(r, "name")

	client, url, status, err := s.getClient(r)
	if err != nil {
		writeError(w, status, err)
		return
	}

	selector, ok := client.Selector(kind, name)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no such name on this portal"))
		return
	}

	tt, err := client.Timetable(ctx, which, selector)
	if errors.Is(err, bakalari.ErrAuthRequired) {
		// the cached session went stale server-side, drop it so the
		// next request builds a fresh one
		s.sessions.Remove(url)
		writeError(w, http.StatusBadGateway, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	err = s.snapshots.Record(ctx, snapshots.Target{
		Portal: url,
		Which:  which,
		Kind:   kind,
		Name:   name,
	}, tt, timezone.Now())
	if err != nil {
		slog.WarnContext(ctx, "failed to record snapshot", "err", err)
	}

	writeJson(w, http.StatusOK, tt)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJson(w, status, errorResponse{Error: err.Error()})
}

func writeJson(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
