package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/virtualmirror/kinescreen/internal/adapters/http/api"
	"github.com/virtualmirror/kinescreen/internal/adapters/repository"
	service "github.com/virtualmirror/kinescreen/internal/app"
	"github.com/virtualmirror/kinescreen/internal/domain/assessment"
	"github.com/virtualmirror/kinescreen/internal/domain/model"
	"github.com/virtualmirror/kinescreen/internal/domain/task"
	"github.com/virtualmirror/kinescreen/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// mockDependencies implements api.Dependencies with canned state.
type mockDependencies struct {
	sessions  map[string]api.Session
	followups map[string][]api.Session
	results   map[string][]api.TaskResult
	stats     api.SessionStats

	createErr    error
	recordErr    error
	summarizeErr error

	lastListLimit int
}

func newMockDependencies() *mockDependencies {
	started := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	return &mockDependencies{
		sessions: map[string]api.Session{
			"sess-1": {
				ID:        "sess-1",
				DisplayID: 4217,
				Child:     model.Child{Name: "Lina", AgeYears: 6},
				Type:      model.SessionInitial,
				StartedAt: started,
			},
		},
		followups: map[string][]api.Session{},
		results:   map[string][]api.TaskResult{},
		stats:     api.SessionStats{TotalSessions: 1},
	}
}

func (m *mockDependencies) CreateSession(ctx context.Context, child model.Child, typ model.SessionType, parentID string) (api.Session, error) {
	if m.createErr != nil {
		return api.Session{}, m.createErr
	}
	return api.Session{
		ID:              "sess-new",
		DisplayID:       5823,
		Child:           child,
		Type:            typ,
		ParentSessionID: parentID,
		StartedAt:       time.Now().UTC(),
	}, nil
}

func (m *mockDependencies) Session(ctx context.Context, id string) (api.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return api.Session{}, repository.ErrNotFound
	}
	return s, nil
}

func (m *mockDependencies) Sessions(ctx context.Context, limit int) ([]api.Session, error) {
	m.lastListLimit = limit
	out := make([]api.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockDependencies) Followups(ctx context.Context, parentID string) ([]api.Session, error) {
	return m.followups[parentID], nil
}

func (m *mockDependencies) DeleteSession(ctx context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.sessions, id)
	delete(m.results, id)
	return nil
}

func (m *mockDependencies) RecordResult(ctx context.Context, sessionID string, in api.ResultInput) (api.TaskResult, error) {
	if m.recordErr != nil {
		return api.TaskResult{}, m.recordErr
	}
	if _, ok := m.sessions[sessionID]; !ok {
		return api.TaskResult{}, repository.ErrNotFound
	}
	res := api.TaskResult{
		SessionID:  sessionID,
		Kind:       in.Kind,
		Score:      2,
		Metrics:    in.Metrics,
		DurationS:  in.DurationS,
		Notes:      in.Notes,
		RecordedAt: time.Now().UTC(),
	}
	m.results[sessionID] = append(m.results[sessionID], res)
	return res, nil
}

func (m *mockDependencies) Results(ctx context.Context, sessionID string) ([]api.TaskResult, error) {
	if _, ok := m.sessions[sessionID]; !ok {
		return nil, repository.ErrNotFound
	}
	return m.results[sessionID], nil
}

func (m *mockDependencies) Summarize(ctx context.Context, sessionID string) (api.Outcome, error) {
	if m.summarizeErr != nil {
		return api.Outcome{}, m.summarizeErr
	}
	sess, ok := m.sessions[sessionID]
	if !ok {
		return api.Outcome{}, repository.ErrNotFound
	}
	return api.Outcome{
		Session: sess,
		Summary: assessment.Aggregate(map[task.Kind]int{task.ArmRaise: 2, task.OneLeg: 1}),
	}, nil
}

func (m *mockDependencies) Report(ctx context.Context, sessionID string) (api.Report, error) {
	sess, ok := m.sessions[sessionID]
	if !ok {
		return api.Report{}, repository.ErrNotFound
	}
	return api.Report{
		GeneratedAt: time.Now().UTC(),
		Session:     sess,
		Results:     m.results[sessionID],
		Summary:     assessment.Aggregate(map[task.Kind]int{task.ArmRaise: 2, task.OneLeg: 1}),
	}, nil
}

func (m *mockDependencies) Stats(ctx context.Context) (api.SessionStats, error) {
	return m.stats, nil
}

// Local copy of the wire error shape; the real one is unexported.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newTestServer(deps api.Dependencies) http.Handler {
	return api.NewServer(deps, api.Config{MaxSessionList: 100}).Router()
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a server with mock dependencies", t, func() {
		deps := newMockDependencies()
		router := newTestServer(deps)

		Convey("Then the health endpoint should respond", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
		})

		Convey("And the metrics endpoint should respond", func() {
			req := httptest.NewRequest("GET", "/metrics", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("And the stats endpoint should respond", func() {
			req := httptest.NewRequest("GET", "/api/stats", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusOK)

			var stats api.SessionStats
			So(json.NewDecoder(w.Body).Decode(&stats), ShouldBeNil)
			So(stats.TotalSessions, ShouldEqual, 1)
		})

		Convey("And an unknown path should 404", func() {
			req := httptest.NewRequest("GET", "/api/unknown", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("And a wrong method should 405", func() {
			req := httptest.NewRequest("DELETE", "/api/sessions", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestCreateSession(t *testing.T) {
	Convey("Given a server with mock dependencies", t, func() {
		deps := newMockDependencies()
		router := newTestServer(deps)

		Convey("When posting a valid session", func() {
			body := `{"name":"Lina","ageYears":6,"heightCm":115,"weightKg":20.5,"gender":"female"}`
			req := httptest.NewRequest("POST", "/api/sessions", strings.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return the created session", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)

				var sess api.Session
				So(json.NewDecoder(w.Body).Decode(&sess), ShouldBeNil)
				So(sess.ID, ShouldEqual, "sess-new")
				So(sess.DisplayID, ShouldEqual, 5823)
				So(sess.Child.Name, ShouldEqual, "Lina")
				So(sess.Type, ShouldEqual, model.SessionInitial)
			})
		})

		Convey("When posting invalid JSON", func() {
			req := httptest.NewRequest("POST", "/api/sessions", strings.NewReader(`{invalid`))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posting an unknown session type", func() {
			body := `{"name":"Lina","sessionType":"checkup"}`
			req := httptest.NewRequest("POST", "/api/sessions", strings.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)

				var resp errorResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Code, ShouldEqual, "bad_request")
			})
		})

		Convey("When posting an impossible age", func() {
			body := `{"name":"Lina","ageYears":42}`
			req := httptest.NewRequest("POST", "/api/sessions", strings.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the parent session is unknown", func() {
			deps.createErr = repository.ErrNotFound
			body := `{"name":"Lina","sessionType":"followup","parentSessionId":"gone"}`
			req := httptest.NewRequest("POST", "/api/sessions", strings.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestGetSession(t *testing.T) {
	Convey("Given a server with one stored session", t, func() {
		deps := newMockDependencies()
		router := newTestServer(deps)

		Convey("When fetching it by id", func() {
			req := httptest.NewRequest("GET", "/api/sessions/sess-1", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return the session", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var sess api.Session
				So(json.NewDecoder(w.Body).Decode(&sess), ShouldBeNil)
				So(sess.DisplayID, ShouldEqual, 4217)
			})
		})

		Convey("When fetching an unknown id", func() {
			req := httptest.NewRequest("GET", "/api/sessions/missing", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)

				var resp errorResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Code, ShouldEqual, "not_found")
			})
		})

		Convey("When listing followups for a session without any", func() {
			req := httptest.NewRequest("GET", "/api/sessions/sess-1/followups", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return an empty list", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})
	})
}

func TestDeleteSession(t *testing.T) {
	Convey("Given a server with one stored session", t, func() {
		deps := newMockDependencies()
		router := newTestServer(deps)

		Convey("When deleting it by id", func() {
			req := httptest.NewRequest("DELETE", "/api/sessions/sess-1", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should confirm the removal", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"sessionId":"sess-1"`)
				So(deps.sessions, ShouldNotContainKey, "sess-1")
			})
		})

		Convey("When deleting an unknown id", func() {
			req := httptest.NewRequest("DELETE", "/api/sessions/missing", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)

				var resp errorResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Code, ShouldEqual, "not_found")
			})
		})
	})
}

func TestListSessions(t *testing.T) {
	Convey("Given a server with mock dependencies", t, func() {
		deps := newMockDependencies()
		router := newTestServer(deps)

		Convey("When listing without a limit", func() {
			req := httptest.NewRequest("GET", "/api/sessions", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then the configured cap should apply", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastListLimit, ShouldEqual, 100)
			})
		})

		Convey("When listing with a valid limit", func() {
			req := httptest.NewRequest("GET", "/api/sessions?limit=5", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(deps.lastListLimit, ShouldEqual, 5)
		})

		Convey("When the limit is not a number", func() {
			req := httptest.NewRequest("GET", "/api/sessions?limit=abc", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit exceeds the cap", func() {
			req := httptest.NewRequest("GET", "/api/sessions?limit=5000", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)

			var resp errorResponse
			So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
			So(resp.Code, ShouldEqual, "limit_exceeded")
		})
	})
}

func TestRecordResult(t *testing.T) {
	Convey("Given a server with one stored session", t, func() {
		deps := newMockDependencies()
		router := newTestServer(deps)

		Convey("When posting a valid result", func() {
			body := `{"task":"one_leg","metrics":{"holdSeconds":6.0,"oneLegScore":2},"durationSeconds":6.0}`
			req := httptest.NewRequest("POST", "/api/sessions/sess-1/results", strings.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return the recorded result", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)

				var res api.TaskResult
				So(json.NewDecoder(w.Body).Decode(&res), ShouldBeNil)
				So(res.Kind, ShouldEqual, task.OneLeg)
				So(res.SessionID, ShouldEqual, "sess-1")
			})
		})

		Convey("When posting an unknown task name", func() {
			body := `{"task":"cartwheel","metrics":{}}`
			req := httptest.NewRequest("POST", "/api/sessions/sess-1/results", strings.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posting without a task name", func() {
			body := `{"metrics":{"holdSeconds":6.0}}`
			req := httptest.NewRequest("POST", "/api/sessions/sess-1/results", strings.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When posting a negative duration", func() {
			body := `{"task":"walk","durationSeconds":-1}`
			req := httptest.NewRequest("POST", "/api/sessions/sess-1/results", strings.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the session is already complete", func() {
			deps.recordErr = service.ErrSessionComplete
			body := `{"task":"walk","metrics":{"walkScore":2}}`
			req := httptest.NewRequest("POST", "/api/sessions/sess-1/results", strings.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return conflict", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)

				var resp errorResponse
				So(json.NewDecoder(w.Body).Decode(&resp), ShouldBeNil)
				So(resp.Code, ShouldEqual, "session_complete")
			})
		})

		Convey("When the session does not exist", func() {
			body := `{"task":"walk","metrics":{"walkScore":2}}`
			req := httptest.NewRequest("POST", "/api/sessions/missing/results", strings.NewReader(body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When listing results for a session without any", func() {
			req := httptest.NewRequest("GET", "/api/sessions/sess-1/results", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
		})
	})
}

func TestGetSummary(t *testing.T) {
	Convey("Given a server with one stored session", t, func() {
		deps := newMockDependencies()
		router := newTestServer(deps)

		Convey("When requesting the summary", func() {
			req := httptest.NewRequest("GET", "/api/sessions/sess-1/summary", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return the outcome", func() {
				So(w.Code, ShouldEqual, http.StatusOK)

				var out api.Outcome
				So(json.NewDecoder(w.Body).Decode(&out), ShouldBeNil)
				So(out.Session.ID, ShouldEqual, "sess-1")
				So(out.Summary.TotalScore, ShouldEqual, 3)
				So(out.Summary.Risk, ShouldEqual, assessment.RiskNormal)
			})
		})

		Convey("When the session does not exist", func() {
			req := httptest.NewRequest("GET", "/api/sessions/missing/summary", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestGetReport(t *testing.T) {
	Convey("Given a server with one stored session", t, func() {
		deps := newMockDependencies()
		router := newTestServer(deps)

		Convey("When requesting the default format", func() {
			req := httptest.NewRequest("GET", "/api/sessions/sess-1/report", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return inline JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "application/json")
				So(w.Header().Get("Content-Disposition"), ShouldBeEmpty)

				var rep api.Report
				So(json.NewDecoder(w.Body).Decode(&rep), ShouldBeNil)
				So(rep.Session.DisplayID, ShouldEqual, 4217)
			})
		})

		Convey("When requesting csv", func() {
			req := httptest.NewRequest("GET", "/api/sessions/sess-1/report?format=csv", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return a csv download", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/csv")
				So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, `screening_4217.csv`)
				So(w.Body.String(), ShouldContainSubstring, "record,field,value")
			})
		})

		Convey("When requesting text", func() {
			req := httptest.NewRequest("GET", "/api/sessions/sess-1/report?format=text", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Convey("Then it should return a text download", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldContainSubstring, "text/plain")
				So(w.Header().Get("Content-Disposition"), ShouldContainSubstring, `screening_4217.txt`)
				So(w.Body.String(), ShouldContainSubstring, "MOVEMENT SCREENING REPORT")
			})
		})

		Convey("When requesting an unsupported format", func() {
			req := httptest.NewRequest("GET", "/api/sessions/sess-1/report?format=pdf", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the session does not exist", func() {
			req := httptest.NewRequest("GET", "/api/sessions/missing/report", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
