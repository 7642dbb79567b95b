package codeforces_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/cfpulse/internal/adapters/cache"
	"github.com/okian/cfpulse/internal/adapters/codeforces"
	. "github.com/smartystreets/goconvey/convey"
)

// upstream is a scripted stand-in for the API.
type upstream struct {
	calls   atomic.Int64
	mu      sync.Mutex
	lastURL *url.URL
	handler http.HandlerFunc
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.calls.Add(1)
	u.mu.Lock()
	u.lastURL = r.URL
	u.mu.Unlock()
	u.handler(w, r)
}

func (u *upstream) LastQuery() url.Values {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastURL.Query()
}

func (u *upstream) LastPath() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastURL.Path
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func newClient(srvURL string, store cache.Store, opts ...codeforces.Option) *codeforces.Client {
	base := []codeforces.Option{
		codeforces.WithBaseURL(srvURL + "/api"),
		codeforces.WithStore(store),
		codeforces.WithTimeout(2 * time.Second),
	}
	return codeforces.New(append(base, opts...)...)
}

const twoSubmissions = `{"status":"OK","result":[
 {"id":2,"contestId":1915,"creationTimeSeconds":1704279600,"verdict":"OK","problem":{"index":"A"}},
 {"id":1,"contestId":1915,"creationTimeSeconds":1704193200,"verdict":"WRONG_ANSWER","problem":{"index":"A"}}
]}`

func TestClient_CacheThenFetch(t *testing.T) {
	Convey("Given an upstream serving submissions", t, func() {
		ctx := context.Background()
		up := &upstream{handler: reply(http.StatusOK, twoSubmissions)}
		srv := httptest.NewServer(up)
		Reset(srv.Close)
		store := cache.NewMemory()
		c := newClient(srv.URL, store)

		Convey("When submissions are fetched twice", func() {
			first, err := c.UserStatus(ctx, "tourist", 1, 10000)
			So(err, ShouldBeNil)
			second, err := c.UserStatus(ctx, "tourist", 1, 10000)
			So(err, ShouldBeNil)

			Convey("Then the upstream is called once", func() {
				So(up.calls.Load(), ShouldEqual, 1)
				So(second, ShouldResemble, first)
			})

			Convey("Then the request carries the method and parameters", func() {
				So(up.LastPath(), ShouldEqual, "/api/user.status")
				q := up.LastQuery()
				So(q.Get("handle"), ShouldEqual, "tourist")
				So(q.Get("from"), ShouldEqual, "1")
				So(q.Get("count"), ShouldEqual, "10000")
			})

			Convey("Then the records are decoded", func() {
				So(len(first), ShouldEqual, 2)
				So(first[0].Accepted(), ShouldBeTrue)
				So(first[0].CreationTimeSeconds, ShouldEqual, 1704279600)
				So(first[1].Verdict, ShouldEqual, "WRONG_ANSWER")
			})

			Convey("Then only the unwrapped result is cached", func() {
				v, found, err := store.Get(ctx, "user.status?count=10000&from=1&handle=tourist")
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				var arr []json.RawMessage
				So(json.Unmarshal(v, &arr), ShouldBeNil)
				So(len(arr), ShouldEqual, 2)
			})
		})

		Convey("When a different handle is fetched", func() {
			_, err := c.UserStatus(ctx, "tourist", 1, 10000)
			So(err, ShouldBeNil)
			_, err = c.UserStatus(ctx, "petr", 1, 10000)
			So(err, ShouldBeNil)

			Convey("Then each key misses once", func() {
				So(up.calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When the handle is blank", func() {
			_, err := c.UserStatus(ctx, "  ", 1, 10)

			Convey("Then no call is made", func() {
				So(errors.Is(err, codeforces.ErrInvalidArgument), ShouldBeTrue)
				So(up.calls.Load(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given an upstream returning an empty result", t, func() {
		ctx := context.Background()
		up := &upstream{handler: reply(http.StatusOK, `{"status":"OK","result":[]}`)}
		srv := httptest.NewServer(up)
		Reset(srv.Close)
		c := newClient(srv.URL, cache.NewMemory())

		Convey("When fetched twice", func() {
			first, err := c.UserStatus(ctx, "newbie", 1, 10000)
			So(err, ShouldBeNil)
			_, err = c.UserStatus(ctx, "newbie", 1, 10000)
			So(err, ShouldBeNil)

			Convey("Then the empty result is served from the cache", func() {
				So(first, ShouldBeEmpty)
				So(up.calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When user.info finds nobody", func() {
			info, err := c.UserInfo(ctx, "ghost")

			Convey("Then it returns an empty object", func() {
				So(err, ShouldBeNil)
				So(string(info), ShouldEqual, `{}`)
			})
		})
	})
}

func TestClient_Errors(t *testing.T) {
	Convey("Given an upstream that rejects the handle", t, func() {
		ctx := context.Background()
		up := &upstream{handler: reply(http.StatusOK, `{"status":"FAILED","comment":"handle not found"}`)}
		srv := httptest.NewServer(up)
		Reset(srv.Close)
		store := cache.NewMemory()
		c := newClient(srv.URL, store)

		_, err := c.UserStatus(ctx, "nobody", 1, 10000)

		Convey("Then the error is a rejection carrying the comment", func() {
			So(errors.Is(err, codeforces.ErrUpstreamRejected), ShouldBeTrue)
			So(errors.Is(err, codeforces.ErrUpstreamUnavailable), ShouldBeFalse)
			var rej *codeforces.RejectedError
			So(errors.As(err, &rej), ShouldBeTrue)
			So(rej.Comment, ShouldEqual, "handle not found")
			So(rej.Method, ShouldEqual, codeforces.MethodUserStatus)
		})

		Convey("Then nothing is cached", func() {
			So(store.Len(), ShouldEqual, 0)
			_, err := c.UserStatus(ctx, "nobody", 1, 10000)
			So(err, ShouldNotBeNil)
			So(up.calls.Load(), ShouldEqual, 2)
		})
	})

	Convey("Given an upstream answering 400 with a FAILED envelope", t, func() {
		up := &upstream{handler: reply(http.StatusBadRequest, `{"status":"FAILED","comment":"handles: User with handle x not found"}`)}
		srv := httptest.NewServer(up)
		Reset(srv.Close)
		c := newClient(srv.URL, cache.NewMemory())

		_, err := c.UserRating(context.Background(), "x")

		Convey("Then it is a rejection", func() {
			var rej *codeforces.RejectedError
			So(errors.As(err, &rej), ShouldBeTrue)
			So(rej.Comment, ShouldContainSubstring, "not found")
		})
	})

	Convey("Given an upstream answering 429 without an envelope", t, func() {
		up := &upstream{handler: reply(http.StatusTooManyRequests, `slow down`)}
		srv := httptest.NewServer(up)
		Reset(srv.Close)
		c := newClient(srv.URL, cache.NewMemory())

		_, err := c.UserRating(context.Background(), "x")

		Convey("Then it is unavailable, not a rejection", func() {
			So(errors.Is(err, codeforces.ErrUpstreamUnavailable), ShouldBeTrue)
			So(errors.Is(err, codeforces.ErrUpstreamRejected), ShouldBeFalse)
		})
	})

	Convey("Given an upstream failing with 503", t, func() {
		up := &upstream{handler: reply(http.StatusServiceUnavailable, `<html>busy</html>`)}
		srv := httptest.NewServer(up)
		Reset(srv.Close)
		store := cache.NewMemory()
		c := newClient(srv.URL, store)

		_, err := c.ContestList(context.Background(), false)

		Convey("Then it is unavailable with the status code", func() {
			So(errors.Is(err, codeforces.ErrUpstreamUnavailable), ShouldBeTrue)
			var un *codeforces.UnavailableError
			So(errors.As(err, &un), ShouldBeTrue)
			So(un.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
			So(store.Len(), ShouldEqual, 0)
		})
	})

	Convey("Given an upstream returning garbage with 200", t, func() {
		up := &upstream{handler: reply(http.StatusOK, `not json`)}
		srv := httptest.NewServer(up)
		Reset(srv.Close)
		c := newClient(srv.URL, cache.NewMemory())

		_, err := c.RecentStatus(context.Background(), 50)

		Convey("Then it is unavailable", func() {
			So(errors.Is(err, codeforces.ErrUpstreamUnavailable), ShouldBeTrue)
		})
	})

	Convey("Given an upstream body larger than the limit", t, func() {
		up := &upstream{handler: reply(http.StatusOK, `{"status":"OK","result":[1,2,3,4,5,6,7,8,9]}`)}
		srv := httptest.NewServer(up)
		Reset(srv.Close)
		store := cache.NewMemory()
		c := newClient(srv.URL, store, codeforces.WithMaxBodyBytes(16))

		_, err := c.ContestList(context.Background(), false)

		Convey("Then it is unavailable because the response is too large", func() {
			So(errors.Is(err, codeforces.ErrUpstreamUnavailable), ShouldBeTrue)
			So(errors.Is(err, codeforces.ErrResponseTooLarge), ShouldBeTrue)
			So(store.Len(), ShouldEqual, 0)
		})
	})

	Convey("Given an upstream body exactly at the limit", t, func() {
		body := `{"status":"OK","result":[]}`
		up := &upstream{handler: reply(http.StatusOK, body)}
		srv := httptest.NewServer(up)
		Reset(srv.Close)
		c := newClient(srv.URL, cache.NewMemory(), codeforces.WithMaxBodyBytes(int64(len(body))))

		raw, err := c.ContestList(context.Background(), false)

		Convey("Then it is accepted", func() {
			So(err, ShouldBeNil)
			So(string(raw), ShouldEqual, `[]`)
		})
	})

	Convey("Given an upstream that cannot be reached", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()
		c := newClient(addr, cache.NewMemory())

		_, err := c.UserInfo(context.Background(), "tourist")

		Convey("Then it is unavailable with a transport cause", func() {
			So(errors.Is(err, codeforces.ErrUpstreamUnavailable), ShouldBeTrue)
			var un *codeforces.UnavailableError
			So(errors.As(err, &un), ShouldBeTrue)
			So(un.StatusCode, ShouldEqual, 0)
			So(un.Err, ShouldNotBeNil)
		})
	})

	Convey("Given an upstream slower than the client timeout", t, func() {
		release := make(chan struct{})
		up := &upstream{handler: func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			reply(http.StatusOK, twoSubmissions)(w, r)
		}}
		srv := httptest.NewServer(up)
		Reset(func() {
			close(release)
			srv.Close()
		})
		store := cache.NewMemory()
		c := newClient(srv.URL, store, codeforces.WithTimeout(50*time.Millisecond))

		_, err := c.UserStatus(context.Background(), "tourist", 1, 10000)

		Convey("Then it times out as unavailable and caches nothing", func() {
			So(errors.Is(err, codeforces.ErrUpstreamUnavailable), ShouldBeTrue)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(store.Len(), ShouldEqual, 0)
		})
	})
}

func TestClient_Cancellation(t *testing.T) {
	Convey("Given a caller that cancels while the upstream is stuck", t, func() {
		started := make(chan struct{}, 1)
		up := &upstream{handler: func(w http.ResponseWriter, r *http.Request) {
			started <- struct{}{}
			<-r.Context().Done()
		}}
		srv := httptest.NewServer(up)
		Reset(srv.Close)
		store := cache.NewMemory()
		c := newClient(srv.URL, store, codeforces.WithTimeout(200*time.Millisecond))

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() {
			_, err := c.UserStatus(ctx, "tourist", 1, 10000)
			errCh <- err
		}()
		<-started
		cancel()
		err := <-errCh

		Convey("Then the caller gets an unavailable error wrapping the cancellation", func() {
			So(errors.Is(err, codeforces.ErrUpstreamUnavailable), ShouldBeTrue)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("Then no entry is written", func() {
			time.Sleep(300 * time.Millisecond)
			So(store.Len(), ShouldEqual, 0)
		})
	})
}

func TestClient_SharedMiss(t *testing.T) {
	Convey("Given many concurrent misses on one key", t, func() {
		gate := make(chan struct{})
		up := &upstream{handler: func(w http.ResponseWriter, r *http.Request) {
			<-gate
			reply(http.StatusOK, twoSubmissions)(w, r)
		}}
		srv := httptest.NewServer(up)
		Reset(srv.Close)
		c := newClient(srv.URL, cache.NewMemory())

		const callers = 10
		var (
			wg     sync.WaitGroup
			failed atomic.Int64
			ready  sync.WaitGroup
		)
		ready.Add(callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ready.Done()
				if _, err := c.UserStatus(context.Background(), "tourist", 1, 10000); err != nil {
					failed.Add(1)
				}
			}()
		}
		ready.Wait()
		time.Sleep(50 * time.Millisecond)
		close(gate)
		wg.Wait()

		Convey("Then they share one upstream request", func() {
			So(failed.Load(), ShouldEqual, 0)
			So(up.calls.Load(), ShouldEqual, 1)
		})
	})
}

func TestClient_Parameters(t *testing.T) {
	Convey("Given a recording upstream", t, func() {
		ctx := context.Background()
		up := &upstream{handler: reply(http.StatusOK, `{"status":"OK","result":{"contest":{},"problems":[],"rows":[]}}`)}
		srv := httptest.NewServer(up)
		Reset(srv.Close)
		c := newClient(srv.URL, cache.NewMemory())

		Convey("When problems are filtered by tags", func() {
			_, err := c.ProblemsetProblems(ctx, []string{"dp", " greedy ", ""})
			So(err, ShouldBeNil)

			Convey("Then tags are joined with semicolons in order", func() {
				So(up.LastPath(), ShouldEqual, "/api/problemset.problems")
				So(up.LastQuery().Get("tags"), ShouldEqual, "dp;greedy")
			})

			Convey("Then the same tags hit the cache", func() {
				_, err := c.ProblemsetProblems(ctx, []string{"dp", "greedy"})
				So(err, ShouldBeNil)
				So(up.calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When no tags are given", func() {
			_, err := c.ProblemsetProblems(ctx, nil)
			So(err, ShouldBeNil)
			So(up.LastQuery().Has("tags"), ShouldBeFalse)
		})

		Convey("When standings are requested", func() {
			_, err := c.ContestStandings(ctx, 1915, 1, 5)
			So(err, ShouldBeNil)
			q := up.LastQuery()
			So(q.Get("contestId"), ShouldEqual, "1915")
			So(q.Get("from"), ShouldEqual, "1")
			So(q.Get("count"), ShouldEqual, "5")
		})

		Convey("When the contest list is requested for gyms", func() {
			_, err := c.ContestList(ctx, true)
			So(err, ShouldBeNil)
			So(up.LastQuery().Get("gym"), ShouldEqual, "true")
		})

		Convey("When arguments are out of range", func() {
			_, err := c.ContestStandings(ctx, 0, 1, 5)
			So(errors.Is(err, codeforces.ErrInvalidArgument), ShouldBeTrue)
			_, err = c.RecentStatus(ctx, 0)
			So(errors.Is(err, codeforces.ErrInvalidArgument), ShouldBeTrue)
			So(up.calls.Load(), ShouldEqual, 0)
		})
	})
}
