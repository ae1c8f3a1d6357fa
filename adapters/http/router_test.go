package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/khoahotran/town-notes/adapters/event"
	"github.com/khoahotran/town-notes/adapters/persistence"
	fieldReportUC "github.com/khoahotran/town-notes/internal/application/usecase/fieldreport"
	profileUC "github.com/khoahotran/town-notes/internal/application/usecase/profile"
	"github.com/khoahotran/town-notes/internal/domain/fieldreport"
	"github.com/khoahotran/town-notes/pkg/auth"
	"github.com/khoahotran/town-notes/pkg/envelope"
	"github.com/khoahotran/town-notes/pkg/logger"
)

type RouterTestSuite struct {
	suite.Suite
	router *gin.Engine
	store  *persistence.MemoryStore
	jwtSvc *auth.JWTService
	token  string
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

func (s *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()

	s.store = persistence.NewMemoryStore()
	s.jwtSvc = auth.NewJWTService("router-test-secret", time.Hour)

	var err error
	s.token, err = s.jwtSvc.GenerateToken("alice@town.test")
	s.Require().NoError(err)

	profileUseCase := profileUC.NewProfileUseCase(s.store.Profiles(), event.NopPublisher{}, log)
	fieldReportUseCase := fieldReportUC.NewFieldReportUseCase(s.store.FieldReports(), event.NopPublisher{}, log)

	s.router = NewRouter(RouterConfig{
		ProfileHandler:     NewProfileHandler(profileUseCase, log),
		FieldReportHandler: NewFieldReportHandler(fieldReportUseCase, log),
		JWTService:         s.jwtSvc,
		Metrics:            NewMetrics(),
		Logger:             log,
	})
}

func (s *RouterTestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](s *RouterTestSuite, rr *httptest.ResponseRecorder) envelope.Envelope[T] {
	var env envelope.Envelope[T]
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	s.True(env.Valid(), "envelope must populate exactly one path: %s", rr.Body.String())
	return env
}

func (s *RouterTestSuite) Test_Health_IsPublic() {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	s.Equal(http.StatusOK, rr.Code)
}

func (s *RouterTestSuite) Test_Metrics_IsExposed() {
	s.do(http.MethodGet, "/api/profiles/nobody@town.test", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	s.Equal(http.StatusOK, rr.Code)
	s.Contains(rr.Body.String(), "townnotes_http_requests_total")
}

func (s *RouterTestSuite) Test_MissingBearer_IsUnauthorized() {
	req := httptest.NewRequest(http.MethodGet, "/api/profiles/alice@town.test", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	s.Equal(http.StatusUnauthorized, rr.Code)
	env := decode[envelope.Ack](s, rr)
	s.False(env.IsOK)
}

func (s *RouterTestSuite) Test_Profile_Lifecycle() {
	rr := s.do(http.MethodGet, "/api/profiles/alice@town.test", nil)
	s.Equal(http.StatusNotFound, rr.Code)
	missing := decode[ProfileDTO](s, rr)
	s.False(missing.IsOK)
	s.Equal("profile not found", *missing.Message)

	rr = s.do(http.MethodPost, "/api/profiles", map[string]any{
		"email": "alice@town.test", "username": "alice", "firstName": "Alice", "lastName": "Liddell",
		"bio": "curious",
	})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[string](s, rr)
	s.NotEmpty(*created.Response)

	rr = s.do(http.MethodPost, "/api/profiles", map[string]any{"email": "alice@town.test", "username": "again"})
	s.Equal(http.StatusConflict, rr.Code)
	s.False(decode[string](s, rr).IsOK)

	rr = s.do(http.MethodPatch, "/api/profiles/alice@town.test", map[string]any{
		"username": "alice2", "firstName": "Alice", "lastName": "Liddell", "pronouns": "she/her",
	})
	s.Require().Equal(http.StatusOK, rr.Code)
	updated := decode[UpdateResultDTO](s, rr)
	s.Equal(UpdateResultDTO{MatchedCount: 1, ModifiedCount: 1}, *updated.Response)

	rr = s.do(http.MethodGet, "/api/profiles/alice@town.test", nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	fetched := decode[ProfileDTO](s, rr)
	s.Equal("alice2", fetched.Response.Username)
	s.Equal("alice@town.test", fetched.Response.Email)
	s.Require().NotNil(fetched.Response.Pronouns)
	s.Equal("she/her", *fetched.Response.Pronouns)
	s.Nil(fetched.Response.Bio)
	s.NotContains(rr.Body.String(), `"bio"`)
}

func (s *RouterTestSuite) Test_Profile_UpdateMissing_ReportsZeroMatches() {
	rr := s.do(http.MethodPatch, "/api/profiles/ghost@town.test", map[string]any{"username": "ghost"})
	s.Require().Equal(http.StatusOK, rr.Code)
	env := decode[UpdateResultDTO](s, rr)
	s.Equal(UpdateResultDTO{}, *env.Response)
}

func (s *RouterTestSuite) Test_Profile_CreateWithoutEmail_IsBadRequest() {
	rr := s.do(http.MethodPost, "/api/profiles", map[string]any{"username": "nobody"})
	s.Equal(http.StatusBadRequest, rr.Code)
	s.False(decode[string](s, rr).IsOK)
}

func (s *RouterTestSuite) Test_StorageFailure_IsServerError() {
	s.store.FailWith(errBackendDown)
	rr := s.do(http.MethodGet, "/api/profiles/alice@town.test", nil)
	s.Equal(http.StatusInternalServerError, rr.Code)
	env := decode[ProfileDTO](s, rr)
	s.Equal("failed to query profile", *env.Message)
}

var errBackendDown = errors.New("backend down")

func (s *RouterTestSuite) Test_FieldReport_FirstVisitAndReturn() {
	path := "/api/sessions/s1/field-reports/alice"

	rr := s.do(http.MethodGet, path, nil)
	s.Equal(http.StatusNotFound, rr.Code)

	t1 := time.Date(2020, 5, 1, 9, 0, 0, 0, time.UTC)
	rr = s.do(http.MethodPost, "/api/sessions/s1/field-reports", map[string]any{
		"username": "alice", "fieldReports": "first note", "time": t1,
	})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	s.True(decode[envelope.Ack](s, rr).IsOK)

	rr = s.do(http.MethodGet, path, nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	got := decode[FieldReportDTO](s, rr)
	s.Equal("first note", got.Response.FieldReports)
	s.True(t1.Equal(got.Response.Time))

	rr = s.do(http.MethodPatch, path, map[string]any{"fieldReports": "second note"})
	s.Require().Equal(http.StatusOK, rr.Code)

	rr = s.do(http.MethodGet, path, nil)
	got = decode[FieldReportDTO](s, rr)
	s.Equal("second note", got.Response.FieldReports)
	s.True(got.Response.Time.After(t1))
	s.Equal(1, s.store.ReportCount(fieldreport.Key{Username: "alice", SessionID: "s1"}))
}

func (s *RouterTestSuite) Test_FieldReport_CreateDefaultsToCaller() {
	rr := s.do(http.MethodPost, "/api/sessions/s2/field-reports", map[string]any{"fieldReports": "mine"})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	s.Equal(1, s.store.ReportCount(fieldreport.Key{Username: "alice@town.test", SessionID: "s2"}))
}

func (s *RouterTestSuite) Test_FieldReport_UpdateMissing_IsNotFound() {
	rr := s.do(http.MethodPatch, "/api/sessions/s3/field-reports/bob", map[string]any{"fieldReports": "x"})
	s.Equal(http.StatusNotFound, rr.Code)
	s.False(decode[envelope.Ack](s, rr).IsOK)
	s.Equal(0, s.store.ReportCount(fieldreport.Key{Username: "bob", SessionID: "s3"}))
}

func (s *RouterTestSuite) Test_FieldReport_Save() {
	path := "/api/sessions/s4/field-reports/carol"

	rr := s.do(http.MethodPut, path, map[string]any{"fieldReports": "draft"})
	s.Require().Equal(http.StatusCreated, rr.Code)
	s.True(decode[SaveFieldReportDTO](s, rr).Response.Created)

	rr = s.do(http.MethodPut, path, map[string]any{"fieldReports": "final"})
	s.Require().Equal(http.StatusOK, rr.Code)
	s.False(decode[SaveFieldReportDTO](s, rr).Response.Created)
}

func (s *RouterTestSuite) Test_FieldReport_RacingCreates() {
	const n = 6
	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := strings.NewReader(`{"username":"dan","fieldReports":"race"}`)
			req := httptest.NewRequest(http.MethodPost, "/api/sessions/s5/field-reports", body)
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+s.token)
			rr := httptest.NewRecorder()
			s.router.ServeHTTP(rr, req)
			codes <- rr.Code
		}()
	}
	wg.Wait()
	close(codes)

	created := 0
	for code := range codes {
		if code == http.StatusCreated {
			created++
			continue
		}
		s.Equal(http.StatusConflict, code)
	}
	s.Equal(1, created)
	s.Equal(1, s.store.ReportCount(fieldreport.Key{Username: "dan", SessionID: "s5"}))
}
