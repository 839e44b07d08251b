package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/okian/matchengine/internal/adapters/http/api"
	"github.com/okian/matchengine/internal/adapters/mq/queue"
	"github.com/okian/matchengine/internal/adapters/mq/worker"
	"github.com/okian/matchengine/internal/adapters/repository"
	service "github.com/okian/matchengine/internal/app"
	"github.com/okian/matchengine/internal/domain/apperr"
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/internal/domain/types"
	"github.com/okian/matchengine/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	cronSecret = "cron-secret"
	jwtSecret  = "jwt-secret"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

var now = time.Date(2025, time.March, 5, 9, 0, 0, 0, time.UTC)

type harness struct {
	router http.Handler
	store  *repository.MemoryStore
	queue  *queue.InMemoryQueue
	svc    *service.Service
}

func newHarness() *harness {
	clock := types.FixedClock{At: now}
	store := repository.NewMemoryStore(
		repository.WithClock(clock),
		repository.WithStudents(model.Student{ID: "stu-1", TenantID: "uni-a", Skills: []string{"go"}}),
		repository.WithListings(
			model.Listing{ID: "lst-1", TenantID: "uni-a", RequiredSkills: []string{"go"}, HoursPerWeek: 20},
			model.Listing{ID: "lst-b", TenantID: "uni-b", HoursPerWeek: 20},
		),
		repository.WithSportSeasons(model.SportSeason{
			ID: "season-1", Sport: "Soccer", SeasonType: model.InSeason,
			StartMonth: time.January, EndMonth: time.December,
			PracticeHoursPerWeek: 10, CompetitionHoursPerWeek: 5, Intensity: 3,
		}),
	)
	q := queue.NewInMemoryQueue(queue.WithClock(clock))
	svc := service.New(service.WithStore(store), service.WithQueue(q), service.WithClock(clock))

	server := api.NewServer(svc, svc, api.WithCronSecret(cronSecret), api.WithJWTSecret(jwtSecret))
	return &harness{router: server.Routes(context.Background()), store: store, queue: q, svc: svc}
}

func token(secret string, claims jwt.MapClaims) string {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return signed
}

func studentToken() string {
	return token(jwtSecret, jwt.MapClaims{
		"sub":       "stu-1",
		"tenant_id": "uni-a",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
}

func (h *harness) do(method, path, bearer, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given the API server", t, func() {
		h := newHarness()

		Convey("Then health serves Prometheus metrics", func() {
			w := h.do(http.MethodGet, "/healthz", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then stats are JSON", func() {
			w := h.do(http.MethodGet, "/stats", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
			So(decode(w)["batchSize"], ShouldEqual, 50)
		})

		Convey("Then unknown routes are 404", func() {
			w := h.do(http.MethodGet, "/nope", "", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestCronRoutes(t *testing.T) {
	Convey("Given a pending sweep", t, func() {
		h := newHarness()
		_, err := h.svc.InvalidateStudentScores(context.Background(), "stu-1", "manual")
		So(err, ShouldBeNil)

		Convey("When the cron secret is missing", func() {
			w := h.do(http.MethodPost, "/cron/recompute-matches", "", "")

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(decode(w)["code"], ShouldEqual, "unauthorized")
			})
		})

		Convey("When the cron secret is wrong", func() {
			w := h.do(http.MethodPost, "/cron/recompute-matches", "guess", "")
			So(w.Code, ShouldEqual, http.StatusUnauthorized)

			Convey("Then nothing was claimed", func() {
				pending, err := h.queue.Pending(context.Background())
				So(err, ShouldBeNil)
				So(pending, ShouldEqual, 1)
			})
		})

		Convey("When the cron secret is valid", func() {
			w := h.do(http.MethodPost, "/cron/recompute-matches", cronSecret, "")

			Convey("Then the batch counters are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var res worker.Result
				So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(res, ShouldResemble, worker.Result{Processed: 1, Remaining: 0, Errors: 0, BatchSize: 50})
			})
		})

		Convey("When invalidating a student", func() {
			w := h.do(http.MethodPost, "/internal/invalidations", cronSecret, `{"studentId":"stu-1","reason":"skills_updated"}`)

			Convey("Then one sweep is queued", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				queued := decode(w)["queued"].([]any)
				So(len(queued), ShouldEqual, 1)
				So(queued[0].(map[string]any)["target"], ShouldEqual, "sweep")
			})
		})

		Convey("When the invalidation names both sides", func() {
			w := h.do(http.MethodPost, "/internal/invalidations", cronSecret, `{"studentId":"stu-1","listingId":"lst-1","reason":"x"}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(w.Body.String(), ShouldContainSubstring, `"field":"studentId"`)
		})

		Convey("When the invalidation body is malformed", func() {
			w := h.do(http.MethodPost, "/internal/invalidations", cronSecret, `{"studentId":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode(w)["code"], ShouldEqual, "bad_request")
		})
	})
}

func TestStudentAuth(t *testing.T) {
	Convey("Given the student routes", t, func() {
		h := newHarness()

		Convey("Then a missing token is 401", func() {
			So(h.do(http.MethodGet, "/match-engine/schedules", "", "").Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Then a token signed with another secret is 401", func() {
			bad := token("other", jwt.MapClaims{"sub": "stu-1"})
			So(h.do(http.MethodGet, "/match-engine/schedules", bad, "").Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Then an expired token is 401", func() {
			expired := token(jwtSecret, jwt.MapClaims{"sub": "stu-1", "exp": time.Now().Add(-time.Hour).Unix()})
			So(h.do(http.MethodGet, "/match-engine/schedules", expired, "").Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Then a token without sub is 401", func() {
			anon := token(jwtSecret, jwt.MapClaims{"tenant_id": "uni-a"})
			So(h.do(http.MethodGet, "/match-engine/schedules", anon, "").Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Then a valid token is admitted", func() {
			w := h.do(http.MethodGet, "/match-engine/schedules", studentToken(), "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"schedules":[]`)
		})
	})
}

func TestScheduleRoutes(t *testing.T) {
	Convey("Given an authenticated student", t, func() {
		h := newHarness()
		bearer := studentToken()

		Convey("When creating a sport entry", func() {
			w := h.do(http.MethodPost, "/match-engine/schedules", bearer,
				`{"kind":"sport","sportSeasonId":"season-1","effectiveFrom":"2025-03-01"}`)

			Convey("Then it is created with the season joined", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				body := decode(w)
				So(body["id"], ShouldNotBeEmpty)
				So(body["active"], ShouldEqual, true)
				So(body["effectiveFrom"], ShouldEqual, "2025-03-01")
				So(body["sportSeason"].(map[string]any)["sport"], ShouldEqual, "Soccer")
			})

			Convey("Then it is listed", func() {
				list := h.do(http.MethodGet, "/match-engine/schedules", bearer, "")
				So(list.Code, ShouldEqual, http.StatusOK)
				So(len(decode(list)["schedules"].([]any)), ShouldEqual, 1)
			})

			Convey("Then a sweep is queued for the student", func() {
				items := h.queue.List(context.Background(), "stu-1")
				So(len(items), ShouldEqual, 1)
				So(items[0].Reason, ShouldEqual, service.ReasonScheduleCreated)
			})

			Convey("Then availability reflects the season", func() {
				a := h.do(http.MethodGet, "/match-engine/availability?startDate=2025-03-10&endDate=2025-03-16", bearer, "")
				So(a.Code, ShouldEqual, http.StatusOK)
				body := decode(a)
				So(body["startDate"], ShouldEqual, "2025-03-10")
				windows := body["windows"].([]any)
				So(len(windows), ShouldEqual, 1)
				So(windows[0].(map[string]any)["availableHours"], ShouldEqual, 25)
				So(windows[0].(map[string]any)["bucket"], ShouldEqual, "medium")
			})
		})

		Convey("When the body fails tag validation", func() {
			w := h.do(http.MethodPost, "/match-engine/schedules", bearer,
				`{"kind":"sport","blocks":[{"day":9,"start":"09:00"}],"availableHoursPerWeek":500}`)

			Convey("Then every field is reported with 422", func() {
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				body := decode(w)
				So(body["code"], ShouldEqual, "validation_error")
				fields := map[string]bool{}
				for _, f := range body["fields"].([]any) {
					fields[f.(map[string]any)["field"].(string)] = true
				}
				So(fields["sportSeasonId"], ShouldBeTrue)
				So(fields["blocks[0].day"], ShouldBeTrue)
				So(fields["blocks[0].end"], ShouldBeTrue)
				So(fields["availableHoursPerWeek"], ShouldBeTrue)
			})
		})

		Convey("When the body fails semantic validation", func() {
			w := h.do(http.MethodPost, "/match-engine/schedules", bearer,
				`{"kind":"custom","blocks":[{"day":1,"start":"10:00","end":"09:00"}]}`)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(w.Body.String(), ShouldContainSubstring, "blocks[0].end")
		})

		Convey("When the body carries unknown fields", func() {
			w := h.do(http.MethodPost, "/match-engine/schedules", bearer, `{"kind":"custom","color":"red"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When availability dates are malformed", func() {
			w := h.do(http.MethodGet, "/match-engine/availability?startDate=03/10/2025", bearer, "")
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(w.Body.String(), ShouldContainSubstring, "startDate")
		})

		Convey("When availability spans more than a year", func() {
			w := h.do(http.MethodGet, "/match-engine/availability?startDate=2025-01-01&endDate=2026-06-01", bearer, "")
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("When availability has no dates", func() {
			w := h.do(http.MethodGet, "/match-engine/availability", bearer, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["startDate"], ShouldEqual, "2025-03-05")
			So(body["endDate"], ShouldEqual, "2025-04-01")
		})
	})
}

func TestMatchRoutes(t *testing.T) {
	Convey("Given an authenticated student", t, func() {
		h := newHarness()
		bearer := studentToken()

		Convey("When reading a match", func() {
			w := h.do(http.MethodGet, "/match-engine/matches/lst-1", bearer, "")

			Convey("Then the score and breakdown are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["listingId"], ShouldEqual, "lst-1")
				So(body["score"], ShouldBeBetweenOrEqual, 0, 100)
				So(body["isStale"], ShouldEqual, false)
				So(body["breakdown"].(map[string]any)["skills"].(map[string]any)["value"], ShouldEqual, 1)
			})

			Convey("Then it was cached", func() {
				_, err := h.store.GetScore(context.Background(), model.PairKey{StudentID: "stu-1", ListingID: "lst-1"})
				So(err, ShouldBeNil)
			})
		})

		Convey("When the listing is unknown", func() {
			w := h.do(http.MethodGet, "/match-engine/matches/missing", bearer, "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode(w)["code"], ShouldEqual, "not_found")
		})

		Convey("When the listing belongs to another tenant", func() {
			w := h.do(http.MethodGet, "/match-engine/matches/lst-b", bearer, "")
			So(w.Code, ShouldEqual, http.StatusForbidden)
		})

		Convey("When refresh is not a boolean", func() {
			w := h.do(http.MethodGet, "/match-engine/matches/lst-1?refresh=maybe", bearer, "")
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("When requesting a recompute", func() {
			w := h.do(http.MethodPost, "/match-engine/matches/lst-1/recompute", bearer, "")

			Convey("Then the pair is queued above sweeps", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				body := decode(w)
				So(body["target"], ShouldEqual, "specific:lst-1")
				So(body["status"], ShouldEqual, "pending")
				So(body["priority"], ShouldEqual, service.DefaultPriority+1)
			})
		})
	})
}

func TestErrorMapping(t *testing.T) {
	Convey("Given a failing batch run", t, func() {
		deps := &failingDeps{err: errors.New("db down")}
		server := api.NewServer(deps, statsStub{}, api.WithCronSecret(cronSecret))
		router := server.Routes(context.Background())

		req := httptest.NewRequest(http.MethodPost, "/cron/recompute-matches", http.NoBody)
		req.Header.Set("Authorization", "Bearer "+cronSecret)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Convey("Then it is a 500 that hides the cause", func() {
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(w.Body.String(), ShouldNotContainSubstring, "db down")
			So(w.Body.String(), ShouldContainSubstring, "internal_error")
		})
	})
}

func TestServer_Readiness(t *testing.T) {
	Convey("Given a server with a readiness check", t, func() {
		var readyErr error
		server := api.NewServer(newHarness().svc, statsStub{},
			api.WithReadiness(func(context.Context) error { return readyErr }))
		router := server.Routes(context.Background())

		get := func() *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", http.NoBody))
			return w
		}

		Convey("Then reachable backends are ready", func() {
			w := get()
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["status"], ShouldEqual, "ok")
		})

		Convey("Then an unreachable backend is unavailable", func() {
			readyErr = errors.New("database: connection refused")
			w := get()
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldNotContainSubstring, "connection refused")
		})
	})
}

func TestServer_OverlappingBatch(t *testing.T) {
	Convey("Given a batch run already in progress", t, func() {
		deps := &failingDeps{err: apperr.WrapKind("worker.Run", apperr.ErrConflict, worker.ErrRunInProgress)}
		server := api.NewServer(deps, statsStub{}, api.WithCronSecret(cronSecret))
		router := server.Routes(context.Background())

		req := httptest.NewRequest(http.MethodPost, "/cron/recompute-matches", http.NoBody)
		req.Header.Set("Authorization", "Bearer "+cronSecret)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Convey("Then the cron trigger answers 409", func() {
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(w.Body.String(), ShouldContainSubstring, "conflict")
		})
	})
}

type statsStub struct{}

func (statsStub) GetStats() map[string]interface{} { return map[string]interface{}{} }

type failingDeps struct {
	api.Dependencies
	err error
}

func (f *failingDeps) RunBatch(context.Context) (worker.Result, error) {
	return worker.Result{}, f.err
}
