package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/cfpulse/internal/adapters/codeforces"
	"github.com/okian/cfpulse/internal/adapters/http/api"
	"github.com/okian/cfpulse/internal/domain/model"
	"github.com/okian/cfpulse/internal/domain/streak"
	"github.com/okian/cfpulse/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies records arguments and returns canned results.
type mockDependencies struct {
	err error

	lastHandle  string
	lastHandles []string
	lastTags    []string
	lastGym     bool
	lastID      int
	lastFrom    int
	lastCount   int

	result   streak.Result
	rows     []types.HandleStreak
	subs     []model.Submission
	contests []model.Contest
}

func (m *mockDependencies) UserInfo(_ context.Context, handle string) (json.RawMessage, error) {
	m.lastHandle = handle
	if m.err != nil {
		return nil, m.err
	}
	return json.RawMessage(`{"handle":"` + handle + `","rating":3800}`), nil
}

func (m *mockDependencies) UserRating(_ context.Context, handle string) (json.RawMessage, error) {
	m.lastHandle = handle
	return json.RawMessage(`[]`), m.err
}

func (m *mockDependencies) UserBlogs(_ context.Context, handle string) (json.RawMessage, error) {
	m.lastHandle = handle
	return json.RawMessage(`[{"id":1}]`), m.err
}

func (m *mockDependencies) FetchSubmissions(_ context.Context, handle string) ([]model.Submission, error) {
	m.lastHandle = handle
	if m.err != nil {
		return nil, m.err
	}
	return m.subs, nil
}

func (m *mockDependencies) ComputeStreak(_ context.Context, handle string) (streak.Result, error) {
	m.lastHandle = handle
	return m.result, m.err
}

func (m *mockDependencies) CompareStreaks(_ context.Context, handles []string) ([]types.HandleStreak, error) {
	m.lastHandles = handles
	return m.rows, m.err
}

func (m *mockDependencies) ContestList(_ context.Context, gym bool) (json.RawMessage, error) {
	m.lastGym = gym
	return json.RawMessage(`[]`), m.err
}

func (m *mockDependencies) UpcomingContests(context.Context) ([]model.Contest, error) {
	if m.contests != nil {
		return m.contests, m.err
	}
	return []model.Contest{{ID: 2, Name: "Round B", Phase: model.PhaseBefore, StartTimeSeconds: 200}}, m.err
}

func (m *mockDependencies) ContestStandings(_ context.Context, id, from, count int) (json.RawMessage, error) {
	m.lastID, m.lastFrom, m.lastCount = id, from, count
	return json.RawMessage(`{"rows":[]}`), m.err
}

func (m *mockDependencies) ContestProblems(_ context.Context, id int) (json.RawMessage, error) {
	m.lastID = id
	return json.RawMessage(`[{"index":"A"}]`), m.err
}

func (m *mockDependencies) ContestRows(_ context.Context, id, count int) (json.RawMessage, error) {
	m.lastID, m.lastCount = id, count
	return json.RawMessage(`[]`), m.err
}

func (m *mockDependencies) Problems(_ context.Context, tags []string) (json.RawMessage, error) {
	m.lastTags = tags
	return json.RawMessage(`{"problems":[]}`), m.err
}

func (m *mockDependencies) RecentStatus(_ context.Context, count int) (json.RawMessage, error) {
	m.lastCount = count
	return json.RawMessage(`[]`), m.err
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func serve(h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := &mockDependencies{}
		stats := &mockStatsProvider{stats: map[string]interface{}{"started": true}}
		h := api.NewServer(deps, stats, nil).Handler(context.Background())

		Convey("Then the health endpoint answers", func() {
			w := serve(h, "/healthz")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("Then the stats endpoint answers", func() {
			w := serve(h, "/stats")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then the metrics endpoint exposes the registry", func() {
			_ = serve(h, "/healthz")
			w := serve(h, "/metrics")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "cfpulse_core_http_requests_total")
		})

		Convey("Then every response carries a request id", func() {
			w := serve(h, "/healthz")
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)

			w = serve(h, "/healthz", api.RequestIDHeader, "abc-123")
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})

		Convey("When a user profile is requested", func() {
			w := serve(h, "/api/users/tourist")

			Convey("Then the upstream payload is passed through", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastHandle, ShouldEqual, "tourist")
				So(w.Body.String(), ShouldEqual, `{"handle":"tourist","rating":3800}`)
			})
		})

		Convey("When a streak is requested", func() {
			d, _ := streak.ParseDay("2024-01-03")
			deps.result = streak.Result{CurrentStreak: 3, MaxStreak: 5, Heatmap: streak.Heatmap{d: 2}}
			w := serve(h, "/api/users/tourist/streak")

			Convey("Then the result is serialized with date keys", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body struct {
					Handle        string         `json:"handle"`
					CurrentStreak int            `json:"current_streak"`
					MaxStreak     int            `json:"max_streak"`
					Heatmap       map[string]int `json:"heatmap"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body.Handle, ShouldEqual, "tourist")
				So(body.CurrentStreak, ShouldEqual, 3)
				So(body.MaxStreak, ShouldEqual, 5)
				So(body.Heatmap, ShouldResemble, map[string]int{"2024-01-03": 2})
			})
		})

		Convey("When submissions are empty", func() {
			w := serve(h, "/api/users/tourist/submissions")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, `[]`)
		})

		Convey("When submissions carry fields the service does not model", func() {
			raw := `[{"id":1,"creationTimeSeconds":1704279600,"verdict":"OK",` +
				`"author":{"members":[{"handle":"tourist"}]},"passedTestCount":12,"testset":"TESTS"}]`
			So(json.Unmarshal([]byte(raw), &deps.subs), ShouldBeNil)
			w := serve(h, "/api/users/tourist/submissions")

			Convey("Then every upstream field is served", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body, ShouldHaveLength, 1)
				So(body[0], ShouldContainKey, "author")
				So(body[0]["passedTestCount"], ShouldEqual, float64(12))
				So(body[0]["testset"], ShouldEqual, "TESTS")
			})
		})

		Convey("When a streak is requested for a padded handle", func() {
			w := serve(h, "/api/users/%20tourist%20/streak")

			Convey("Then the trimmed handle is used and echoed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastHandle, ShouldEqual, "tourist")
				So(w.Body.String(), ShouldContainSubstring, `"handle":"tourist"`)
			})
		})

		Convey("When rating and blogs are requested", func() {
			So(serve(h, "/api/users/petr/rating").Code, ShouldEqual, http.StatusOK)
			So(serve(h, "/api/users/petr/blogs").Body.String(), ShouldEqual, `[{"id":1}]`)
		})

		Convey("When streaks are compared", func() {
			deps.rows = []types.HandleStreak{{Rank: 1, Handle: "a", CurrentStreak: 2}}
			w := serve(h, "/api/streaks?handles=a,%20b,,c")

			Convey("Then the handle list is split and trimmed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastHandles, ShouldResemble, []string{"a", "b", "c"})
				So(w.Body.String(), ShouldContainSubstring, `"rank":1`)
			})
		})

		Convey("When contests are listed", func() {
			So(serve(h, "/api/contests?gym=true").Code, ShouldEqual, http.StatusOK)
			So(deps.lastGym, ShouldBeTrue)
			So(serve(h, "/api/contests?gym=maybe").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When upcoming contests are requested", func() {
			w := serve(h, "/api/contests/upcoming")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"Round B"`)
		})

		Convey("When upcoming contests carry extra upstream fields", func() {
			raw := `[{"id":1,"name":"R","phase":"BEFORE","kind":"Official ICPC Contest",` +
				`"websiteUrl":"https://example.org","preparedBy":"setter"}]`
			So(json.Unmarshal([]byte(raw), &deps.contests), ShouldBeNil)
			w := serve(h, "/api/contests/upcoming")

			Convey("Then they are served unchanged", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body, ShouldHaveLength, 1)
				So(body[0]["kind"], ShouldEqual, "Official ICPC Contest")
				So(body[0]["websiteUrl"], ShouldEqual, "https://example.org")
				So(body[0]["preparedBy"], ShouldEqual, "setter")
			})
		})

		Convey("When standings are requested", func() {
			w := serve(h, "/api/contests/1915/standings?count=5")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastID, ShouldEqual, 1915)
			So(deps.lastFrom, ShouldEqual, 1)
			So(deps.lastCount, ShouldEqual, 5)
		})

		Convey("When contest problems and rows are requested", func() {
			So(serve(h, "/api/contests/1915/problems").Body.String(), ShouldEqual, `[{"index":"A"}]`)
			So(serve(h, "/api/contests/1915/rows").Code, ShouldEqual, http.StatusOK)
			So(deps.lastCount, ShouldEqual, 100)
		})

		Convey("When problems are filtered by tags", func() {
			So(serve(h, "/api/problems?tags=dp,greedy").Code, ShouldEqual, http.StatusOK)
			So(deps.lastTags, ShouldResemble, []string{"dp", "greedy"})
		})

		Convey("When recent submissions are requested", func() {
			So(serve(h, "/api/problemset/recent").Code, ShouldEqual, http.StatusOK)
			So(deps.lastCount, ShouldEqual, 50)
			So(serve(h, "/api/problemset/recent?count=5000").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the contest id is not a number", func() {
			w := serve(h, "/api/contests/abc/problems")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decodeError(w)["code"], ShouldEqual, "bad_request")
		})

		Convey("When the route does not exist", func() {
			w := serve(h, "/nope")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decodeError(w)["code"], ShouldEqual, "not_found")
		})
	})
}

func TestServer_ErrorMapping(t *testing.T) {
	Convey("Given upstream failures", t, func() {
		cases := []struct {
			name   string
			err    error
			status int
			code   string
		}{
			{"unknown handle", &codeforces.RejectedError{Method: "user.status", Comment: "handle: User with handle x not found"}, http.StatusNotFound, "not_found"},
			{"other rejection", &codeforces.RejectedError{Method: "user.status", Comment: "count: Field should be positive"}, http.StatusBadRequest, "upstream_rejected"},
			{"transport failure", &codeforces.UnavailableError{Method: "user.status", StatusCode: 503}, http.StatusBadGateway, "upstream_unavailable"},
			{"timeout", &codeforces.UnavailableError{Method: "user.status", Err: context.DeadlineExceeded}, http.StatusGatewayTimeout, "upstream_timeout"},
			{"invalid argument", fmt.Errorf("%w: too many handles", codeforces.ErrInvalidArgument), http.StatusBadRequest, "bad_request"},
			{"anything else", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
		}

		for _, tc := range cases {
			Convey("Then "+tc.name+" maps to its status", func() {
				deps := &mockDependencies{err: tc.err}
				h := api.NewServer(deps, &mockStatsProvider{}, nil).Handler(context.Background())

				w := serve(h, "/api/users/x/streak")
				So(w.Code, ShouldEqual, tc.status)
				body := decodeError(w)
				So(body["code"], ShouldEqual, tc.code)
				So(body["message"], ShouldNotBeEmpty)
			})
		}
	})
}

func TestServer_Recoverer(t *testing.T) {
	Convey("Given a handler that panics", t, func() {
		srv := api.NewServer(&mockDependencies{}, &mockStatsProvider{}, nil)
		r := srv.NewRouter()
		r.Get("/panic", func(http.ResponseWriter, *http.Request) { panic("kaboom") })

		w := serve(r, "/panic")

		Convey("Then a 500 JSON error is returned", func() {
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decodeError(w)["code"], ShouldEqual, "internal_error")
		})
	})
}
